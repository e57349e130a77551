// Package routepath holds the HTTP paths served by the cafes app.
package routepath

import "strconv"

const (
	Root    = "/"
	Healthz = "/healthz"
	Metrics = "/metrics"
)

// JSON API.
const (
	All          = "/all"
	Search       = "/search"
	UpdatePrice  = "/update-price/{id}"
	ReportClosed = "/report-closed/{id}"
)

// Shared between the JSON API and the pages; the Accept header picks one.
const (
	Add    = "/add"
	Random = "/random"
)

// Pages.
const (
	GetCafe = "/get-cafe"
	Post    = "/post/{id}"
	Update  = "/update/{id}"
	Delete  = "/delete/{id}"
)

// IDParam is the path wildcard holding a cafe id.
const IDParam = "id"

func CafePost(id int64) string {
	return "/post/" + strconv.FormatInt(id, 10)
}

func CafeUpdate(id int64) string {
	return "/update/" + strconv.FormatInt(id, 10)
}

func CafeDelete(id int64) string {
	return "/delete/" + strconv.FormatInt(id, 10)
}

func CafeUpdatePrice(id int64) string {
	return "/update-price/" + strconv.FormatInt(id, 10)
}

func CafeReportClosed(id int64) string {
	return "/report-closed/" + strconv.FormatInt(id, 10)
}

package web

import (
	"net/http"

	"github.com/louisbranch/cafes/internal/services/cafes/routepath"
	"github.com/louisbranch/cafes/internal/services/cafes/service"
	"github.com/louisbranch/cafes/internal/services/cafes/storage"
	"github.com/louisbranch/cafes/internal/services/shared/i18nhttp"
	"golang.org/x/text/message"
)

type cafeView struct {
	ID           int64
	Name         string
	MapURL       string
	ImgURL       string
	Location     string
	Seats        string
	HasToilet    bool
	HasWifi      bool
	HasSockets   bool
	CanTakeCalls bool
	CoffeePrice  string
	DetailURL    string
	UpdateURL    string
	DeleteURL    string
}

func newCafeView(c storage.Cafe) cafeView {
	view := cafeView{
		ID:           c.ID,
		Name:         c.Name,
		MapURL:       c.MapURL,
		ImgURL:       c.ImgURL,
		Location:     c.Location,
		Seats:        c.Seats,
		HasToilet:    c.HasToilet,
		HasWifi:      c.HasWifi,
		HasSockets:   c.HasSockets,
		CanTakeCalls: c.CanTakeCalls,
		DetailURL:    routepath.CafePost(c.ID),
		UpdateURL:    routepath.CafeUpdate(c.ID),
		DeleteURL:    routepath.CafeDelete(c.ID),
	}
	if c.CoffeePrice != nil {
		view.CoffeePrice = *c.CoffeePrice
	}
	return view
}

func cafeViews(cafes []storage.Cafe) []cafeView {
	out := make([]cafeView, 0, len(cafes))
	for _, c := range cafes {
		out = append(out, newCafeView(c))
	}
	return out
}

type listView struct {
	Cafes []cafeView
}

type detailView struct {
	Cafe      cafeView
	CanDelete bool
}

type formField struct {
	Name  string
	Label string
	Value string
	Error string
}

type formCheckbox struct {
	Name    string
	Label   string
	Checked bool
}

type addView struct {
	Fields     []formField
	Checkboxes []formCheckbox
}

// newAddView lays out the creation form. fieldErrors is keyed by cafe field
// name (name, map_url, ...), which differs from the form input names.
func newAddView(p *message.Printer, in service.CreateInput, fieldErrors map[string]string) addView {
	fieldError := func(key string) string {
		if _, ok := fieldErrors[key]; !ok {
			return ""
		}
		if key == "name" && fieldErrors[key] == service.MsgDuplicateName {
			return p.Sprintf("errors.duplicate_name")
		}
		return p.Sprintf("cafes.field.required")
	}
	return addView{
		Fields: []formField{
			{Name: "name", Label: p.Sprintf("cafes.field.name"), Value: in.Name, Error: fieldError("name")},
			{Name: "map", Label: p.Sprintf("cafes.field.map"), Value: in.MapURL, Error: fieldError("map_url")},
			{Name: "img", Label: p.Sprintf("cafes.field.img"), Value: in.ImgURL, Error: fieldError("img_url")},
			{Name: "loc", Label: p.Sprintf("cafes.field.loc"), Value: in.Location, Error: fieldError("location")},
			{Name: "seats", Label: p.Sprintf("cafes.field.seats"), Value: in.Seats, Error: fieldError("seats")},
			{Name: "price", Label: p.Sprintf("cafes.field.price"), Value: in.CoffeePrice},
		},
		Checkboxes: []formCheckbox{
			{Name: "toilet", Label: p.Sprintf("cafes.field.toilet"), Checked: in.HasToilet},
			{Name: "wifi", Label: p.Sprintf("cafes.field.wifi"), Checked: in.HasWifi},
			{Name: "sockets", Label: p.Sprintf("cafes.field.sockets"), Checked: in.HasSockets},
			{Name: "calls", Label: p.Sprintf("cafes.field.calls"), Checked: in.CanTakeCalls},
		},
	}
}

type updateView struct {
	CafeName string
	Action   string
	Value    string
	Error    string
}

type errorView struct {
	Code    string
	Message string
}

// i18nPrinter resolves the request printer without persisting the choice.
func i18nPrinter(r *http.Request) *message.Printer {
	tag, _ := i18nhttp.ResolveTag(r)
	return i18nhttp.Printer(tag)
}

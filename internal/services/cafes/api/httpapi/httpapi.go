// Package httpapi serves the cafe operations as JSON over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/cafes/internal/platform/errors"
	"github.com/louisbranch/cafes/internal/services/cafes/routepath"
	"github.com/louisbranch/cafes/internal/services/cafes/service"
	"github.com/louisbranch/cafes/internal/services/cafes/storage"
)

// Error body keys. Most errors use keyErrorMessage; some routes name the
// failure in the key itself.
const (
	keyErrorMessage = "error_message"
	keyNoCafe       = "No Cafe"
	keyNoPrice      = "No Price"
	keyNotFound     = "Not Found"
	keyNotAllowed   = "Not Allowed"
)

// Service is the subset of cafe operations served as JSON.
type Service interface {
	List(ctx context.Context, filterExpr string) ([]storage.Cafe, error)
	Search(ctx context.Context, location string) ([]storage.Cafe, error)
	Random(ctx context.Context) (storage.Cafe, error)
	Create(ctx context.Context, input service.CreateInput) (storage.Cafe, error)
	UpdatePrice(ctx context.Context, id int64, newPrice string) (storage.Cafe, error)
	Delete(ctx context.Context, id int64, apiKey string) error
}

// Handler serves the JSON routes.
type Handler struct {
	svc Service
}

// New builds a JSON handler over svc.
func New(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the JSON-only routes. The routes shared with the pages
// (Add, Random) are mounted by the caller, which picks a representation.
func (h *Handler) Register(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc(http.MethodGet+" "+routepath.All, h.HandleAll)
	mux.HandleFunc(http.MethodGet+" "+routepath.Search, h.HandleSearch)
	mux.HandleFunc(http.MethodPatch+" "+routepath.UpdatePrice, h.HandleUpdatePrice)
	mux.HandleFunc(http.MethodDelete+" "+routepath.ReportClosed, h.HandleReportClosed)
}

// Cafe is the JSON representation of a cafe.
type Cafe struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	MapURL       string  `json:"map_url"`
	ImgURL       string  `json:"img_url"`
	Location     string  `json:"location"`
	Seats        string  `json:"seats"`
	HasToilet    bool    `json:"has_toilet"`
	HasWifi      bool    `json:"has_wifi"`
	HasSockets   bool    `json:"has_sockets"`
	CanTakeCalls bool    `json:"can_take_calls"`
	CoffeePrice  *string `json:"coffee_price"`
}

// CafeFromStorage converts a stored cafe to its JSON form.
func CafeFromStorage(c storage.Cafe) Cafe {
	return Cafe{
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
		CoffeePrice:  c.CoffeePrice,
	}
}

// CafesFromStorage converts a slice of stored cafes, never returning nil.
func CafesFromStorage(cafes []storage.Cafe) []Cafe {
	out := make([]Cafe, 0, len(cafes))
	for _, c := range cafes {
		out = append(out, CafeFromStorage(c))
	}
	return out
}

// HandleAll lists every cafe, optionally narrowed by ?filter=.
func (h *Handler) HandleAll(w http.ResponseWriter, r *http.Request) {
	cafes, err := h.svc.List(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cafes": CafesFromStorage(cafes)})
}

// HandleSearch lists the cafes at ?loc=.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	cafes, err := h.svc.Search(r.Context(), r.URL.Query().Get("loc"))
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cafe": CafesFromStorage(cafes)})
}

// HandleRandom returns one random cafe.
func (h *Handler) HandleRandom(w http.ResponseWriter, r *http.Request) {
	cafe, err := h.svc.Random(r.Context())
	if err != nil {
		writeServiceError(w, r, err, map[apperrors.Code]string{apperrors.CodeEmptyStore: keyNoCafe})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cafe": CafeFromStorage(cafe)})
}

// HandleAdd creates a cafe from form fields.
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, keyErrorMessage, "invalid form data")
		return
	}
	cafe, err := h.svc.Create(r.Context(), DecodeCreateForm(r))
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"response": map[string]string{"success": service.MsgCreated},
		"cafe":     CafeFromStorage(cafe),
	})
}

// HandleUpdatePrice sets the price of one cafe from ?new_price=.
func (h *Handler) HandleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cafe, err := h.svc.UpdatePrice(r.Context(), id, r.URL.Query().Get("new_price"))
	if err != nil {
		writeServiceError(w, r, err, map[apperrors.Code]string{
			apperrors.CodeMissingArgument: keyNoPrice,
			apperrors.CodeNotFound:        keyNotFound,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": service.MsgPriceUpdated,
		"cafe":    CafeFromStorage(cafe),
	})
}

// HandleReportClosed deletes one cafe when ?api_key= matches.
func (h *Handler) HandleReportClosed(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	err := h.svc.Delete(r.Context(), id, r.URL.Query().Get("api_key"))
	if err != nil {
		writeServiceError(w, r, err, map[apperrors.Code]string{
			apperrors.CodeUnauthorized: keyNotAllowed,
			apperrors.CodeNotFound:     keyNoCafe,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"success": service.MsgDeleted})
}

// DecodeCreateForm reads the cafe creation fields from a parsed form.
func DecodeCreateForm(r *http.Request) service.CreateInput {
	return service.CreateInput{
		Name:         r.FormValue("name"),
		MapURL:       r.FormValue("map"),
		ImgURL:       r.FormValue("img"),
		Location:     r.FormValue("loc"),
		Seats:        r.FormValue("seats"),
		HasToilet:    ParseBool(r.FormValue("toilet")),
		HasWifi:      ParseBool(r.FormValue("wifi")),
		HasSockets:   ParseBool(r.FormValue("sockets")),
		CanTakeCalls: ParseBool(r.FormValue("calls")),
		CoffeePrice:  strings.TrimSpace(r.FormValue("price")),
	}
}

// ParseBool maps a form value to a boolean. Only y, yes, on, true and 1
// (any case) are true.
func ParseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "y", "yes", "on", "true", "1":
		return true
	default:
		return false
	}
}

// ParseID parses a positive cafe id.
func ParseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := ParseID(r.PathValue(routepath.IDParam))
	if !ok {
		writeError(w, http.StatusBadRequest, keyErrorMessage, service.MsgInvalidCafeID)
		return 0, false
	}
	return id, true
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error, keys map[apperrors.Code]string) {
	status := apperrors.HTTPStatus(err)
	domainErr, ok := apperrors.As(err)
	if !ok || domainErr.Code == apperrors.CodeUnknown {
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, keyErrorMessage, service.MsgStoreFailure)
		return
	}

	key := keyErrorMessage
	if override, ok := keys[domainErr.Code]; ok {
		key = override
	}
	body := map[string]any{key: domainErr.Message}
	if len(domainErr.Metadata) > 0 {
		body["fields"] = domainErr.Metadata
	}
	writeJSON(w, status, map[string]any{"error": body})
}

func writeError(w http.ResponseWriter, status int, key, message string) {
	writeJSON(w, status, map[string]any{"error": map[string]string{key: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}

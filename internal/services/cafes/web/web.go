// Package web serves the HTML pages for browsing and editing cafes.
package web

import (
	"context"
	"log"
	"net/http"
	"strings"

	apperrors "github.com/louisbranch/cafes/internal/platform/errors"
	"github.com/louisbranch/cafes/internal/services/cafes/api/httpapi"
	"github.com/louisbranch/cafes/internal/services/cafes/routepath"
	"github.com/louisbranch/cafes/internal/services/cafes/service"
	"github.com/louisbranch/cafes/internal/services/cafes/storage"
)

// Service is the set of cafe operations the pages use.
type Service interface {
	List(ctx context.Context, filterExpr string) ([]storage.Cafe, error)
	Get(ctx context.Context, id int64) (storage.Cafe, error)
	Search(ctx context.Context, location string) ([]storage.Cafe, error)
	Random(ctx context.Context) (storage.Cafe, error)
	Create(ctx context.Context, input service.CreateInput) (storage.Cafe, error)
	UpdatePrice(ctx context.Context, id int64, newPrice string) (storage.Cafe, error)
	Delete(ctx context.Context, id int64, apiKey string) error
	DeleteEnabled() bool
	APIKey() string
}

// Handler serves the pages.
type Handler struct {
	svc   Service
	pages pages
}

// New parses the embedded templates and builds a page handler.
func New(svc Service) (*Handler, error) {
	parsed, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &Handler{svc: svc, pages: parsed}, nil
}

// Register mounts the page-only routes. The routes shared with the JSON API
// (Add submit, Random) are mounted by the caller.
func (h *Handler) Register(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc(http.MethodGet+" "+routepath.Root+"{$}", h.HandleHome)
	mux.HandleFunc(http.MethodGet+" "+routepath.GetCafe, h.HandleSearch)
	mux.HandleFunc(http.MethodPost+" "+routepath.GetCafe, h.HandleSearch)
	mux.HandleFunc(http.MethodGet+" "+routepath.Post, h.HandleDetail)
	mux.HandleFunc(http.MethodGet+" "+routepath.Add, h.HandleAddForm)
	mux.HandleFunc(http.MethodGet+" "+routepath.Update, h.HandleUpdateForm)
	mux.HandleFunc(http.MethodPost+" "+routepath.Update, h.HandleUpdateSubmit)
	mux.HandleFunc(http.MethodGet+" "+routepath.Delete, h.HandleDelete)
	mux.HandleFunc(http.MethodPost+" "+routepath.Delete, h.HandleDelete)
}

// HandleHome lists every cafe.
func (h *Handler) HandleHome(w http.ResponseWriter, r *http.Request) {
	cafes, err := h.svc.List(r.Context(), "")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writePage(w, r, http.StatusOK, pageList, titleKey("cafes.list.title"), listView{Cafes: cafeViews(cafes)})
}

// HandleSearch lists the cafes at the submitted location.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	cafes, err := h.svc.Search(r.Context(), r.FormValue("loc"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	title := titleText(strings.TrimSpace(r.FormValue("loc")))
	h.writePage(w, r, http.StatusOK, pageList, title, listView{Cafes: cafeViews(cafes)})
}

// HandleDetail shows one cafe.
func (h *Handler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := httpapi.ParseID(r.PathValue(routepath.IDParam))
	if !ok {
		h.writeError(w, r, apperrors.New(apperrors.CodeNotFound, service.MsgNotFound))
		return
	}
	cafe, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeDetail(w, r, cafe)
}

// HandleRandom shows a random cafe.
func (h *Handler) HandleRandom(w http.ResponseWriter, r *http.Request) {
	cafe, err := h.svc.Random(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeDetail(w, r, cafe)
}

// HandleAddForm shows an empty creation form.
func (h *Handler) HandleAddForm(w http.ResponseWriter, r *http.Request) {
	h.writeAddForm(w, r, http.StatusOK, service.CreateInput{}, nil)
}

// HandleAddSubmit creates a cafe and redirects home, or re-renders the form
// with the submitted values and field errors.
func (h *Handler) HandleAddSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeError(w, r, apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid form data", err))
		return
	}
	input := httpapi.DecodeCreateForm(r)
	if _, err := h.svc.Create(r.Context(), input); err != nil {
		domainErr, ok := apperrors.As(err)
		if !ok {
			h.writeError(w, r, err)
			return
		}
		switch domainErr.Code {
		case apperrors.CodeValidationFailed:
			h.writeAddForm(w, r, http.StatusUnprocessableEntity, input, domainErr.Metadata)
		case apperrors.CodeDuplicateName:
			h.writeAddForm(w, r, http.StatusConflict, input, domainErr.Metadata)
		default:
			h.writeError(w, r, err)
		}
		return
	}
	http.Redirect(w, r, routepath.Root, http.StatusSeeOther)
}

// HandleUpdateForm shows the price form for one cafe.
func (h *Handler) HandleUpdateForm(w http.ResponseWriter, r *http.Request) {
	cafe, ok := h.loadCafe(w, r)
	if !ok {
		return
	}
	h.writeUpdateForm(w, r, http.StatusOK, cafe, "", "")
}

// HandleUpdateSubmit sets the price and redirects home, or re-renders the
// form when the price is blank.
func (h *Handler) HandleUpdateSubmit(w http.ResponseWriter, r *http.Request) {
	cafe, ok := h.loadCafe(w, r)
	if !ok {
		return
	}
	newPrice := r.FormValue("new_price")
	if _, err := h.svc.UpdatePrice(r.Context(), cafe.ID, newPrice); err != nil {
		if apperrors.GetCode(err) == apperrors.CodeMissingArgument {
			printer := i18nPrinter(r)
			h.writeUpdateForm(w, r, http.StatusUnprocessableEntity, cafe, newPrice, printer.Sprintf("cafes.field.required"))
			return
		}
		h.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, routepath.Root, http.StatusSeeOther)
}

// HandleDelete removes a cafe using the server's credential. Failures are
// rendered instead of silently redirecting.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpapi.ParseID(r.PathValue(routepath.IDParam))
	if !ok {
		h.writeError(w, r, apperrors.New(apperrors.CodeNotFound, service.MsgNoCafeWithID))
		return
	}
	if err := h.svc.Delete(r.Context(), id, h.svc.APIKey()); err != nil {
		h.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, routepath.Root, http.StatusSeeOther)
}

func (h *Handler) loadCafe(w http.ResponseWriter, r *http.Request) (storage.Cafe, bool) {
	id, ok := httpapi.ParseID(r.PathValue(routepath.IDParam))
	if !ok {
		h.writeError(w, r, apperrors.New(apperrors.CodeNotFound, service.MsgNotFound))
		return storage.Cafe{}, false
	}
	cafe, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return storage.Cafe{}, false
	}
	return cafe, true
}

func (h *Handler) writeDetail(w http.ResponseWriter, r *http.Request, cafe storage.Cafe) {
	view := detailView{Cafe: newCafeView(cafe), CanDelete: h.svc.DeleteEnabled()}
	h.writePage(w, r, http.StatusOK, pageDetail, titleText(cafe.Name), view)
}

func (h *Handler) writeAddForm(w http.ResponseWriter, r *http.Request, status int, input service.CreateInput, fieldErrors map[string]string) {
	view := newAddView(i18nPrinter(r), input, fieldErrors)
	h.writePage(w, r, status, pageAdd, titleKey("cafes.add.title"), view)
}

func (h *Handler) writeUpdateForm(w http.ResponseWriter, r *http.Request, status int, cafe storage.Cafe, value, fieldError string) {
	view := updateView{
		CafeName: cafe.Name,
		Action:   routepath.CafeUpdate(cafe.ID),
		Value:    value,
		Error:    fieldError,
	}
	h.writePage(w, r, status, pageUpdate, titleKey("cafes.update.title"), view)
}

// writeError renders the error page with the status mapped from err's code.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.GetCode(err)
	if code == apperrors.CodeUnknown {
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	status := code.HTTPStatus()
	key := code.LocalizationKey()
	if code == apperrors.CodeMissingArgument && r.URL.Path == routepath.GetCafe {
		key = "errors.missing_location"
	}
	view := errorView{Code: string(code), Message: i18nPrinter(r).Sprintf(key)}
	h.writePage(w, r, status, pageError, titleKey("errors.page.title"), view)
}

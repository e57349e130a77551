package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/a-h/templ"
	"github.com/louisbranch/cafes/internal/services/shared/i18nhttp"
	"golang.org/x/text/message"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

const (
	pageList   = "list.gohtml"
	pageDetail = "detail.gohtml"
	pageAdd    = "add.gohtml"
	pageUpdate = "update.gohtml"
	pageError  = "error.gohtml"
)

// pages holds one template set per page, each sharing the layout.
type pages map[string]*template.Template

func parsePages() (pages, error) {
	out := make(pages)
	for _, name := range []string{pageList, pageDetail, pageAdd, pageUpdate, pageError} {
		tmpl, err := template.New(name).ParseFS(templateFS, "templates/layout.gohtml", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		out[name] = tmpl
	}
	return out, nil
}

// layoutData is passed to every page; Page carries the page-specific view.
type layoutData struct {
	Title     string
	Lang      string
	T         func(key string, args ...any) string
	Languages []i18nhttp.LanguageOption
	Page      any
}

// page builds the templ component for one page render.
func (p pages) page(name string, data layoutData) (templ.Component, error) {
	tmpl, ok := p[name]
	if !ok {
		return nil, fmt.Errorf("unknown page %q", name)
	}
	return templ.FromGoHTML(tmpl.Lookup("layout"), data), nil
}

// writePage renders a page with status, resolving the request language.
func (h *Handler) writePage(w http.ResponseWriter, r *http.Request, status int, name string, title func(*message.Printer) string, view any) {
	printer, tag := i18nhttp.Resolve(w, r)
	data := layoutData{
		Title:     title(printer),
		Lang:      tag.String(),
		T:         translator(printer),
		Languages: i18nhttp.LanguageOptions(r, tag),
		Page:      view,
	}
	component, err := h.pages.page(name, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	templ.Handler(component, templ.WithStatus(status)).ServeHTTP(w, r)
}

func translator(p *message.Printer) func(string, ...any) string {
	return func(key string, args ...any) string {
		return p.Sprintf(key, args...)
	}
}

func titleKey(key string) func(*message.Printer) string {
	return func(p *message.Printer) string {
		return p.Sprintf(key)
	}
}

func titleText(text string) func(*message.Printer) string {
	return func(*message.Printer) string {
		return text
	}
}

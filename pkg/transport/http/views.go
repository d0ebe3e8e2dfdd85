package http

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/NikolayKlyatishev/vector-view/pkg/api"
	"github.com/NikolayKlyatishev/vector-view/pkg/transport"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"index", "collections", "chunks", "search", "vectors", "settings", "connections", "error"}

// views holds one template set per page, each sharing the layout.
type views struct {
	pages map[string]*template.Template
}

func mustLoadViews() *views {
	v := &views{pages: make(map[string]*template.Template, len(pageNames))}
	funcs := template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}
	for _, name := range pageNames {
		t := template.Must(template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", "templates/"+name+".html"))
		v.pages[name] = t
	}
	return v
}

// pageData is passed to every template.
type pageData struct {
	Title     string
	Active    string
	Connected bool
	Status    api.Status
	Error     string
	Data      any
}

// render executes the page into a buffer first so a template failure still
// produces a clean 500.
func (v *views) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	t, ok := v.pages[page]
	if !ok {
		transport.WriteErrorMessage(w, http.StatusInternalServerError, fmt.Sprintf("unknown view %q", page))
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		slog.Error("rendering view failed", "view", page, "error", err)
		transport.WriteErrorMessage(w, http.StatusInternalServerError, "rendering "+page+" failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (a *Adapter) page(r *http.Request, name, title string) pageData {
	st := a.svc.Connections.Status()
	return pageData{Title: title, Active: name, Connected: st.IsConnected, Status: st}
}

// renderError shows err on the error page with the status of its type.
func (a *Adapter) renderError(w http.ResponseWriter, r *http.Request, name string, err error) {
	data := a.page(r, name, "Error")
	data.Error = err.Error()
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		data.Error = apiErr.Message
	}
	a.views.render(w, r, transport.HTTPStatus(err), "error", data)
}

func (a *Adapter) staticView(name string) http.HandlerFunc {
	title := map[string]string{"search": "Search", "vectors": "Vectors"}[name]
	return func(w http.ResponseWriter, r *http.Request) {
		a.views.render(w, r, http.StatusOK, name, a.page(r, name, title))
	}
}

func (a *Adapter) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := a.page(r, "index", "Vector View")
	data.Data = a.svc.Connections.DBStatus()
	a.views.render(w, r, http.StatusOK, "index", data)
}

func (a *Adapter) handleCollectionsView(w http.ResponseWriter, r *http.Request) {
	cols, err := a.svc.Queries.ListCollections(r.Context())
	if err != nil {
		a.renderError(w, r, "collections", err)
		return
	}
	data := a.page(r, "collections", "Collections")
	data.Data = cols
	a.views.render(w, r, http.StatusOK, "collections", data)
}

func (a *Adapter) handleChunksView(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := pageParams(r)
	if err != nil {
		a.renderError(w, r, "chunks", err)
		return
	}
	res, err := a.svc.Queries.Chunks(r.Context(), page, perPage)
	if err != nil {
		a.renderError(w, r, "chunks", err)
		return
	}
	data := a.page(r, "chunks", "Chunks")
	data.Data = res
	a.views.render(w, r, http.StatusOK, "chunks", data)
}

func (a *Adapter) handleSettingsView(w http.ResponseWriter, r *http.Request) {
	data := a.page(r, "settings", "Settings")
	data.Data = a.svc.Settings.Current().Settings()
	a.views.render(w, r, http.StatusOK, "settings", data)
}

func (a *Adapter) handleConnectionsView(w http.ResponseWriter, r *http.Request) {
	a.views.render(w, r, http.StatusOK, "connections", a.page(r, "connections", "Connections"))
}

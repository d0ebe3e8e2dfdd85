package http

import (
	"net/http"

	"github.com/NikolayKlyatishev/vector-view/pkg/api"
	"github.com/NikolayKlyatishev/vector-view/pkg/query"
	"github.com/NikolayKlyatishev/vector-view/pkg/transport"
)

func (a *Adapter) handleListCollections(w http.ResponseWriter, r *http.Request) {
	cols, err := a.svc.Queries.ListCollections(r.Context())
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, cols)
}

// handleChunks handles GET /api/chunks?page=&per_page=.
func (a *Adapter) handleChunks(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := pageParams(r)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	res, err := a.svc.Queries.Chunks(r.Context(), page, perPage)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, res)
}

func pageParams(r *http.Request) (page, perPage int, err error) {
	if page, err = queryInt(r, "page", 1); err != nil {
		return 0, 0, err
	}
	if perPage, err = queryInt(r, "per_page", query.DefaultPerPage); err != nil {
		return 0, 0, err
	}
	return page, perPage, nil
}

func (a *Adapter) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req api.SearchRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	res, err := a.svc.Queries.Search(r.Context(), req)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, res)
}

// handleVectors handles GET /api/vectors?limit=&schema=.
func (a *Adapter) handleVectors(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", query.DefaultVectorLimit)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	res, err := a.svc.Queries.Vectors(r.Context(), limit, r.URL.Query().Get("schema"))
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, res)
}

type validateFolderRequest struct {
	FolderPath string `json:"folder_path"`
}

// handleValidateFolder always answers 200; invalid folders are reported in
// the body.
func (a *Adapter) handleValidateFolder(w http.ResponseWriter, r *http.Request) {
	var req validateFolderRequest
	if !a.decodeValidation(w, r, &req) {
		return
	}
	transport.WriteJSON(w, http.StatusOK, a.svc.Queries.ValidateFolder(r.Context(), req.FolderPath))
}

// decodeValidation is decodeJSON for validation endpoints, which report an
// unreadable body as an invalid result rather than an error status.
func (a *Adapter) decodeValidation(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)
	if err := decodeBody(r, v); err != nil {
		transport.WriteJSON(w, http.StatusOK, api.Invalid("Validation error: "+err.Error()))
		return false
	}
	return true
}

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/NikolayKlyatishev/vector-view/pkg/api"
	"github.com/NikolayKlyatishev/vector-view/pkg/transport"
)

// decodeJSON reads the request body into v. It writes the error response
// itself and returns false when the body is unusable. An empty body leaves
// v untouched.
func (a *Adapter) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)
	err := decodeBody(r, v)
	if err == nil {
		return true
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		transport.WriteErrorMessage(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize))
		return false
	}
	transport.WriteError(w, api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()))
	return false
}

// decodeBody decodes the JSON body into v. An empty body is not an error.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, api.NewInvalidRequestError(name, name+" must be an integer")
	}
	return n, nil
}

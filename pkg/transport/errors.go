package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/NikolayKlyatishev/vector-view/pkg/api"
)

// HTTPStatus maps an error to its status code: invalid requests are 400,
// missing resources 404, everything else 500.
func HTTPStatus(err error) int {
	switch api.TypeOf(err) {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing response body failed", "error", err)
	}
}

// WriteError writes err as {"error": message} with the status derived
// from its type. APIErrors contribute their message; other errors their
// text.
func WriteError(w http.ResponseWriter, err error) {
	msg := err.Error()
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}
	WriteErrorMessage(w, HTTPStatus(err), msg)
}

// WriteErrorMessage writes {"error": msg} with status.
func WriteErrorMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, api.ErrorResponse{Error: msg})
}

package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/redirex/shipglobal-backend/internal/apperr"
)

type APIError struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

// WriteAppErr maps the error taxonomy to HTTP statuses. Unclassified errors
// become an opaque 500; their message is not exposed to the client.
func WriteAppErr(w http.ResponseWriter, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		WriteError(w, http.StatusBadRequest, apperr.CodeOf(err), err.Error(), nil)
	case apperr.KindUnauthorized:
		WriteError(w, http.StatusUnauthorized, apperr.CodeOf(err), err.Error(), nil)
	case apperr.KindNotFound:
		WriteError(w, http.StatusNotFound, apperr.CodeOf(err), err.Error(), nil)
	case apperr.KindConflict:
		WriteError(w, http.StatusConflict, apperr.CodeOf(err), err.Error(), nil)
	case apperr.KindInsufficientFunds:
		WriteError(w, http.StatusUnprocessableEntity, apperr.CodeOf(err), err.Error(), nil)
	case apperr.KindGateway:
		WriteError(w, http.StatusBadGateway, apperr.CodeOf(err), err.Error(), nil)
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}

package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nordlane/cloudcrm/internal/common"
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

// detailer is implemented by errors that carry field-level details, such
// as validate.Errs.
type detailer interface {
	Details() interface{}
}

type mapping struct {
	sentinel error
	status   int
	code     string
}

// Order matters: the first sentinel err matches wins.
var mappings = []mapping{
	{common.ErrInternal, http.StatusInternalServerError, CodeInternal},
	{common.ErrTokenExpired, http.StatusUnauthorized, CodeTokenExpired},
	{common.ErrTokenMalformed, http.StatusUnauthorized, CodeUnauthenticated},
	{common.ErrUnauthenticated, http.StatusUnauthorized, CodeUnauthenticated},
	{common.ErrInvalidSignature, http.StatusUnauthorized, CodeInvalidSignature},
	{common.ErrForbidden, http.StatusForbidden, CodeForbidden},
	{common.ErrUnknownUser, http.StatusNotFound, CodeUnknownUser},
	{common.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{common.ErrConflict, http.StatusBadRequest, CodeConflict},
	{common.ErrInsufficientFunds, http.StatusBadRequest, CodeInsufficientFunds},
	{common.ErrDuplicateEvent, http.StatusOK, CodeDuplicateEvent},
	{common.ErrBadRequest, http.StatusBadRequest, CodeBadRequest},
}

// Classify maps err onto an HTTP status and a stable error code. Anything
// outside the shared taxonomy is internal.
func Classify(err error) (int, string) {
	for _, m := range mappings {
		if errors.Is(err, m.sentinel) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// WriteErr writes err as a localized APIError. Internal errors are logged
// and replaced by a generic message.
func WriteErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code := Classify(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "err", err)
	}

	var details interface{}
	var d detailer
	if errors.As(err, &d) {
		details = d.Details()
	}
	WriteError(w, status, code, Message(r, code), details)
}

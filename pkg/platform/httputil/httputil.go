// Package httputil centralizes JSON response and error envelope rendering so
// every handler emits the same shapes.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "civreg/pkg/domain-errors"
)

// errorBody is the wire envelope for failed requests. Structured detail is
// included only when present on the domain error.
type errorBody struct {
	Error         string                  `json:"error"`
	Description   string                  `json:"error_description,omitempty"`
	MissingGroups []string                `json:"missing_groups,omitempty"`
	Conflict      *dErrors.ConflictDetail `json:"conflict,omitempty"`
}

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeBadRequest:         http.StatusBadRequest,
	dErrors.CodeInvalidInput:       http.StatusBadRequest,
	dErrors.CodeValidation:         http.StatusUnprocessableEntity,
	dErrors.CodeUnauthorized:       http.StatusUnauthorized,
	dErrors.CodeForbidden:          http.StatusForbidden,
	dErrors.CodeNotFound:           http.StatusNotFound,
	dErrors.CodeConflict:           http.StatusConflict,
	dErrors.CodeInvalidState:       http.StatusConflict,
	dErrors.CodeInvariantViolation: http.StatusConflict,
	dErrors.CodeDownstream:         http.StatusBadGateway,
	dErrors.CodeUnavailable:        http.StatusServiceUnavailable,
	dErrors.CodeInternal:           http.StatusInternalServerError,
}

// WriteJSON renders v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope. Internal
// errors omit the description so infrastructure detail never leaks to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.GetCode(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
		code = dErrors.CodeInternal
	}

	body := errorBody{Error: string(code)}
	if detail := dErrors.Details(err); detail != nil && code != dErrors.CodeInternal {
		body.Description = detail.Message
		body.MissingGroups = detail.MissingGroups
		body.Conflict = detail.Conflict
	}
	WriteJSON(w, status, body)
}

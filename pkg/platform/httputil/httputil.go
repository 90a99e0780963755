// Package httputil maps coded domain errors onto HTTP responses.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "provena/pkg/domain-errors"
	"provena/pkg/requestcontext"
)

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeBadRequest:          http.StatusBadRequest,
	dErrors.CodeInvalidInput:        http.StatusBadRequest,
	dErrors.CodeInvalidAmount:       http.StatusBadRequest,
	dErrors.CodeInvalidRange:        http.StatusBadRequest,
	dErrors.CodeInvalidAction:       http.StatusBadRequest,
	dErrors.CodeInvalidParties:      http.StatusBadRequest,
	dErrors.CodeSelfTransfer:        http.StatusBadRequest,
	dErrors.CodeUnauthorized:        http.StatusForbidden,
	dErrors.CodeNotAuthorized:       http.StatusForbidden,
	dErrors.CodeNotFound:            http.StatusNotFound,
	dErrors.CodeAlreadyExists:       http.StatusConflict,
	dErrors.CodeAlreadyAuthorized:   http.StatusConflict,
	dErrors.CodeConflict:            http.StatusConflict,
	dErrors.CodeInvalidState:        http.StatusConflict,
	dErrors.CodeInsufficientBalance: http.StatusUnprocessableEntity,
	dErrors.CodePolicyDenied:        http.StatusUnprocessableEntity,
	dErrors.CodeInternal:            http.StatusInternalServerError,
}

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteError renders err as a JSON error response. Internal errors keep their
// details server-side.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		code = dErrors.CodeInternal
		status = http.StatusInternalServerError
	}

	body := errorBody{Error: string(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body.Description = de.Message()
		}
	}

	WriteJSON(w, status, body)
}

// WriteJSON renders v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "decode request body")
	}
	return nil
}

// Validatable is implemented by request bodies that can validate and parse
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// DecodeAndPrepare decodes the request body into T, runs its validation, and
// writes the error response itself on failure. The bool reports success.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (PT, bool) {
	req := PT(new(T))
	if err := DecodeJSON(r, req); err != nil {
		logger.WarnContext(r.Context(), "malformed request body",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		WriteError(w, err)
		return nil, false
	}
	if err := req.Validate(); err != nil {
		WriteError(w, err)
		return nil, false
	}
	return req, true
}

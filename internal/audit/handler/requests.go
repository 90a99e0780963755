package handler

import (
	"strings"

	id "provena/pkg/domain"
	dErrors "provena/pkg/domain-errors"
)

// ActionRequest is the body for POST /audit/actions.
type ActionRequest struct {
	Code string `json:"code"`
}

func (r *ActionRequest) Validate() error {
	r.Code = strings.TrimSpace(r.Code)
	if r.Code == "" {
		return dErrors.New(dErrors.CodeBadRequest, "code is required")
	}
	return nil
}

// WriterRequest is the body for POST /audit/writers.
type WriterRequest struct {
	WriterID string `json:"writer_id"`

	parsedWriter id.PrincipalID
}

func (r *WriterRequest) Validate() error {
	writer, err := id.ParsePrincipalID(r.WriterID)
	if err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "writer_id must be a UUID")
	}
	r.parsedWriter = writer
	return nil
}

// Writer returns the validated writer principal.
func (r *WriterRequest) Writer() id.PrincipalID {
	return r.parsedWriter
}

package handler

import (
	id "provena/pkg/domain"
	dErrors "provena/pkg/domain-errors"
)

// InitializeRequest is the body for POST fragments.
type InitializeRequest struct {
	TotalFragments uint64 `json:"total_fragments"`
	InitialHolder  string `json:"initial_holder"`

	parsedHolder id.PrincipalID
}

func (r *InitializeRequest) Validate() error {
	if r.TotalFragments == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "total_fragments must be positive")
	}
	holder, err := id.ParsePrincipalID(r.InitialHolder)
	if err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "initial_holder must be a UUID")
	}
	r.parsedHolder = holder
	return nil
}

// Holder returns the validated initial holder.
func (r *InitializeRequest) Holder() id.PrincipalID {
	return r.parsedHolder
}

package handler

import (
	"strings"

	id "provena/pkg/domain"
	dErrors "provena/pkg/domain-errors"
)

// ProposeRequest is the body for POST /transfers. The proposer comes from the
// bearer token, never from the body.
type ProposeRequest struct {
	To                        string `json:"to"`
	ItemID                    string `json:"item_id"`
	Amount                    uint64 `json:"amount"`
	ComplianceAttestationHash string `json:"compliance_attestation_hash"`
	LegalDocumentHash         string `json:"legal_document_hash"`

	parsedTo   id.PrincipalID
	parsedItem id.ItemID
}

func (r *ProposeRequest) Validate() error {
	to, err := id.ParsePrincipalID(r.To)
	if err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "to must be a UUID")
	}
	r.parsedTo = to

	item, err := id.ParseItemID(r.ItemID)
	if err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "item_id must be a UUID")
	}
	r.parsedItem = item

	if r.Amount == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "amount must be positive")
	}
	if strings.TrimSpace(r.ComplianceAttestationHash) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "compliance_attestation_hash is required")
	}
	if strings.TrimSpace(r.LegalDocumentHash) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "legal_document_hash is required")
	}
	return nil
}

// Recipient returns the validated recipient.
func (r *ProposeRequest) Recipient() id.PrincipalID {
	return r.parsedTo
}

// Item returns the validated item ID.
func (r *ProposeRequest) Item() id.ItemID {
	return r.parsedItem
}

// RejectRequest is the body for POST reject.
type RejectRequest struct {
	Reason string `json:"reason"`
}

func (r *RejectRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeBadRequest, "reason is required")
	}
	return nil
}

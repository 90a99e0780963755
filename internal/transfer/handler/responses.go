package handler

import (
	"time"

	"provena/internal/transfer"
)

// ProposeResponse is the HTTP response for POST /transfers.
type ProposeResponse struct {
	TransferID uint64 `json:"transfer_id"`
}

// StatusResponse is the HTTP response for the status lookup.
type StatusResponse struct {
	TransferID uint64 `json:"transfer_id"`
	Status     string `json:"status"`
	ElapsedMS  int64  `json:"elapsed_ms"`
}

// TransferResponse is the HTTP shape of a transfer record.
type TransferResponse struct {
	TransferID                uint64    `json:"transfer_id"`
	ItemID                    string    `json:"item_id"`
	From                      string    `json:"from"`
	To                        string    `json:"to"`
	Amount                    uint64    `json:"amount"`
	Status                    string    `json:"status"`
	ProposedAt                time.Time `json:"proposed_at"`
	ComplianceAttestationHash string    `json:"compliance_attestation_hash"`
	LegalDocumentHash         string    `json:"legal_document_hash"`
}

// FromTransfer converts a domain transfer to an HTTP response.
func FromTransfer(t transfer.Transfer) TransferResponse {
	return TransferResponse{
		TransferID:                uint64(t.ID),
		ItemID:                    t.ItemID.String(),
		From:                      t.From.String(),
		To:                        t.To.String(),
		Amount:                    t.Amount,
		Status:                    string(t.Status),
		ProposedAt:                t.ProposedAt,
		ComplianceAttestationHash: t.ComplianceAttestationHash,
		LegalDocumentHash:         t.LegalDocumentHash,
	}
}

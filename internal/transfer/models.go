// Package transfer sequences a fragment transfer through proposal,
// approval or rejection, and settlement. Approval and completion are separate
// steps so the compliance re-check happens close to settlement, and so
// settlement has exactly one precondition state to reason about.
package transfer

import (
	"time"

	id "provena/pkg/domain"
	dErrors "provena/pkg/domain-errors"
)

// Status is a transfer's state-machine position.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted || s == StatusCancelled
}

// Transfer is one proposed fragment movement. Records are never deleted;
// terminal transfers are retained for audit purposes.
type Transfer struct {
	ID                        id.TransferID
	ItemID                    id.ItemID
	From                      id.PrincipalID
	To                        id.PrincipalID
	Amount                    uint64
	Status                    Status
	ProposedAt                time.Time
	ComplianceAttestationHash string
	LegalDocumentHash         string
}

// NewTransfer validates a proposal and returns the Pending record. The ID is
// assigned by the store on create.
func NewTransfer(from, to id.PrincipalID, itemID id.ItemID, amount uint64, attestationHash, legalHash string, now time.Time) (*Transfer, error) {
	if from.IsNil() || to.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidParties, "transfer requires both parties")
	}
	if from == to {
		return nil, dErrors.New(dErrors.CodeSelfTransfer, "transfer parties must differ")
	}
	if itemID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "item_id is required")
	}
	if amount == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "amount must be positive")
	}
	return &Transfer{
		ItemID:                    itemID,
		From:                      from,
		To:                        to,
		Amount:                    amount,
		Status:                    StatusPending,
		ProposedAt:                now,
		ComplianceAttestationHash: attestationHash,
		LegalDocumentHash:         legalHash,
	}, nil
}

func (t *Transfer) requireStatus(want Status) error {
	if t.Status != want {
		return dErrors.Newf(dErrors.CodeInvalidState, "transfer %d is %s, not %s", t.ID, t.Status, want)
	}
	return nil
}

// Approve transitions Pending -> Approved.
func (t *Transfer) Approve() error {
	if err := t.requireStatus(StatusPending); err != nil {
		return err
	}
	t.Status = StatusApproved
	return nil
}

// Reject transitions Pending -> Rejected.
func (t *Transfer) Reject() error {
	if err := t.requireStatus(StatusPending); err != nil {
		return err
	}
	t.Status = StatusRejected
	return nil
}

// Cancel transitions Pending -> Cancelled.
func (t *Transfer) Cancel() error {
	if err := t.requireStatus(StatusPending); err != nil {
		return err
	}
	t.Status = StatusCancelled
	return nil
}

// Complete transitions Approved -> Completed. The caller settles the ledger
// move first; completion failure must leave the transfer Approved.
func (t *Transfer) Complete() error {
	if err := t.requireStatus(StatusApproved); err != nil {
		return err
	}
	t.Status = StatusCompleted
	return nil
}

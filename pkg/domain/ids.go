// Package domain defines the typed identifiers shared across the registry.
//
// IDs are distinct uuid-backed types so the compiler rejects cross-type
// assignment (a PrincipalID can never be passed where an ItemID is expected).
// Parse functions enforce the invariant that IDs are valid, non-nil UUIDs at
// trust boundaries.
package domain

import (
	"fmt"

	"github.com/google/uuid"

	dErrors "provena/pkg/domain-errors"
)

// PrincipalID identifies an identity that can hold compliance status and
// fragment balances.
type PrincipalID uuid.UUID

// ItemID identifies a registered real-world asset whose fractional ownership
// is tracked.
type ItemID uuid.UUID

// TransferID identifies a proposed fragment movement. IDs are assigned by a
// monotonic counter starting at 1.
type TransferID uint64

// AuditEntryID identifies an audit log entry. IDs form a dense sequence
// starting at 1 with no gaps.
type AuditEntryID uint64

// JurisdictionCode is an ISO-style jurisdiction identifier (e.g. "US", "DE").
type JurisdictionCode string

func parseUUID(kind, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s is required", kind))
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, fmt.Sprintf("%s must be a valid UUID", kind))
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s must not be the nil UUID", kind))
	}
	return u, nil
}

// ParsePrincipalID parses and validates a principal ID from its string form.
func ParsePrincipalID(raw string) (PrincipalID, error) {
	u, err := parseUUID("principal_id", raw)
	if err != nil {
		return PrincipalID(uuid.Nil), err
	}
	return PrincipalID(u), nil
}

// ParseItemID parses and validates an item ID from its string form.
func ParseItemID(raw string) (ItemID, error) {
	u, err := parseUUID("item_id", raw)
	if err != nil {
		return ItemID(uuid.Nil), err
	}
	return ItemID(u), nil
}

// IsNil reports whether the principal is the null/unset principal.
func (p PrincipalID) IsNil() bool { return uuid.UUID(p) == uuid.Nil }

func (p PrincipalID) String() string { return uuid.UUID(p).String() }

// IsNil reports whether the item ID is unset.
func (i ItemID) IsNil() bool { return uuid.UUID(i) == uuid.Nil }

func (i ItemID) String() string { return uuid.UUID(i).String() }

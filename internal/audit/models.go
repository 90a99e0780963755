// Package audit implements the append-only audit log at the heart of the
// registry: a single ordered sequence of immutable, densely numbered entries,
// an administrator-maintained whitelist of action codes, and a per-writer
// authorization set. Derived views (e.g. the by-actor index) are rebuilt from
// the sequence rather than maintained as separate mutable state.
package audit

import (
	"context"
	"time"

	id "provena/pkg/domain"
)

// EventCategory classifies audit actions by their primary purpose.
// This enables different retention policies and sink routing downstream.
type EventCategory string

const (
	// CategoryCompliance covers actions with legal/regulatory significance.
	// These require tamper-evident storage and long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers actions relevant to security monitoring,
	// e.g. changes to the writer authorization set.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers actions useful for operational visibility.
	CategoryOperations EventCategory = "operations"
)

// Core action codes. The whitelist is mutable at runtime via the
// administrative surface; these are the codes the registry itself emits.
const (
	ActionTransferProposed     = "transfer_proposed"
	ActionTransferApproved     = "transfer_approved"
	ActionTransferRejected     = "transfer_rejected"
	ActionTransferCompleted    = "transfer_completed"
	ActionTransferCancelled    = "transfer_cancelled"
	ActionFragmentsInitialized = "fragments_initialized"
	ActionFragmentsMoved       = "fragments_moved"
)

// CoreActions lists every action code the registry's own components emit,
// in the order they should be registered at bootstrap.
func CoreActions() []string {
	return []string{
		ActionTransferProposed,
		ActionTransferApproved,
		ActionTransferRejected,
		ActionTransferCompleted,
		ActionTransferCancelled,
		ActionFragmentsInitialized,
		ActionFragmentsMoved,
	}
}

var actionCategories = map[string]EventCategory{
	ActionTransferProposed:     CategoryCompliance,
	ActionTransferApproved:     CategoryCompliance,
	ActionTransferRejected:     CategoryCompliance,
	ActionTransferCompleted:    CategoryCompliance,
	ActionTransferCancelled:    CategoryCompliance,
	ActionFragmentsInitialized: CategoryCompliance,
	ActionFragmentsMoved:       CategoryCompliance,
}

// Category returns the EventCategory for an action code.
// Unknown (externally registered) actions default to CategoryOperations.
func Category(action string) EventCategory {
	if cat, ok := actionCategories[action]; ok {
		return cat
	}
	return CategoryOperations
}

// Entry is one accepted event. Immutable once appended; the store assigns the
// ID as the next value of a dense sequence starting at 1.
type Entry struct {
	ID            id.AuditEntryID
	Actor         id.PrincipalID
	Action        string
	SubjectItemID id.ItemID
	Timestamp     time.Time
	Payload       []byte
}

// Store persists the ordered entry sequence. Implementations assign IDs on
// append and must never mutate or delete stored entries.
type Store interface {
	Append(ctx context.Context, entry Entry) (id.AuditEntryID, error)
	Get(ctx context.Context, entryID id.AuditEntryID) (Entry, error)
	Range(ctx context.Context, startID, endID id.AuditEntryID) ([]Entry, error)
	Count(ctx context.Context) (uint64, error)
	ListByActor(ctx context.Context, actor id.PrincipalID) ([]Entry, error)
}

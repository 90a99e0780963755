package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"provena/internal/audit"
	transfermetrics "provena/internal/transfer/metrics"
	id "provena/pkg/domain"
	dErrors "provena/pkg/domain-errors"
	"provena/pkg/platform/sentinel"
	"provena/pkg/requestcontext"
)

// Store persists transfer records and assigns monotonic IDs on create.
type Store interface {
	Create(ctx context.Context, t *Transfer) (id.TransferID, error)
	Get(ctx context.Context, transferID id.TransferID) (*Transfer, error)
	Update(ctx context.Context, t *Transfer) error
	ListByItem(ctx context.Context, itemID id.ItemID) ([]Transfer, error)
}

// Ledger is the settlement surface the workflow drives.
type Ledger interface {
	Move(ctx context.Context, itemID id.ItemID, from, to id.PrincipalID, amount uint64) error
	HolderCount(ctx context.Context, itemID id.ItemID) (uint64, error)
}

// PolicyChecker is consulted at approval time, never cached from proposal
// time: compliance facts change between the two steps.
type PolicyChecker interface {
	CanReceive(ctx context.Context, principal id.PrincipalID, amount uint64, holderCount uint64) bool
}

// Auditor records every accepted transition.
type Auditor interface {
	Append(ctx context.Context, actor id.PrincipalID, action string, subjectItemID id.ItemID, payload []byte) (id.AuditEntryID, error)
}

// Service orchestrates the transfer state machine. Transitions on transfers
// of the same item are serialized by a per-item lock; the surrounding
// deployment guarantees a single mutation authority per item, and the lock
// preserves that property inside the process.
type Service struct {
	transfers Store
	ledger    Ledger
	policy    PolicyChecker
	auditor   Auditor
	writerID  id.PrincipalID
	logger    *slog.Logger
	metrics   *transfermetrics.Metrics
	tracer    trace.Tracer
	now       func() time.Time

	locksMu sync.Mutex
	locks   map[id.ItemID]*sync.Mutex
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *transfermetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the ProposedAt and elapsed time source. Without an
// override, the request-scoped time is used when the context carries one.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(transfers Store, ledger Ledger, policy PolicyChecker, auditor Auditor, writerID id.PrincipalID, opts ...Option) *Service {
	s := &Service{
		transfers: transfers,
		ledger:    ledger,
		policy:    policy,
		auditor:   auditor,
		writerID:  writerID,
		tracer:    otel.Tracer("provena/internal/transfer"),
		locks:     make(map[id.ItemID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) timestamp(ctx context.Context) time.Time {
	if s.now != nil {
		return s.now()
	}
	return requestcontext.Now(ctx)
}

func (s *Service) itemLock(itemID id.ItemID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	if _, ok := s.locks[itemID]; !ok {
		s.locks[itemID] = &sync.Mutex{}
	}
	return s.locks[itemID]
}

type proposePayload struct {
	TransferID uint64 `json:"transfer_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	Amount     uint64 `json:"amount"`
}

// Propose creates a Pending transfer. The policy engine is deliberately not
// consulted here; the check happens at approval time.
func (s *Service) Propose(ctx context.Context, from, to id.PrincipalID, itemID id.ItemID, amount uint64, attestationHash, legalHash string) (id.TransferID, error) {
	ctx, span := s.tracer.Start(ctx, "transfer.Propose")
	defer span.End()

	t, err := NewTransfer(from, to, itemID, amount, attestationHash, legalHash, s.timestamp(ctx))
	if err != nil {
		return 0, err
	}

	transferID, err := s.transfers.Create(ctx, t)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "create transfer")
	}

	s.observe(ctx, t, audit.ActionTransferProposed, proposePayload{
		TransferID: uint64(transferID),
		From:       from.String(),
		To:         to.String(),
		Amount:     amount,
	})
	return transferID, nil
}

// Approve re-evaluates the policy predicate against current compliance state
// and transitions Pending -> Approved. Using a result cached from proposal
// time would be a correctness bug, not an optimization.
func (s *Service) Approve(ctx context.Context, transferID id.TransferID) error {
	ctx, span := s.tracer.Start(ctx, "transfer.Approve")
	defer span.End()

	return s.transition(ctx, transferID, func(t *Transfer) error {
		if t.Status != StatusPending {
			return t.Approve() // surfaces the InvalidState error
		}
		holderCount, err := s.ledger.HolderCount(ctx, t.ItemID)
		if err != nil {
			return err
		}
		if !s.policy.CanReceive(ctx, t.To, t.Amount, holderCount) {
			return dErrors.Newf(dErrors.CodePolicyDenied, "principal %s may not receive %d fragments of item %s",
				t.To, t.Amount, t.ItemID)
		}
		return t.Approve()
	}, audit.ActionTransferApproved, nil)
}

type rejectPayload struct {
	Reason string `json:"reason"`
}

// Reject transitions Pending -> Rejected, recording the reason in the audit
// payload.
func (s *Service) Reject(ctx context.Context, transferID id.TransferID, reason string) error {
	ctx, span := s.tracer.Start(ctx, "transfer.Reject")
	defer span.End()

	return s.transition(ctx, transferID, func(t *Transfer) error {
		return t.Reject()
	}, audit.ActionTransferRejected, rejectPayload{Reason: reason})
}

// Cancel transitions Pending -> Cancelled.
func (s *Service) Cancel(ctx context.Context, transferID id.TransferID) error {
	ctx, span := s.tracer.Start(ctx, "transfer.Cancel")
	defer span.End()

	return s.transition(ctx, transferID, func(t *Transfer) error {
		return t.Cancel()
	}, audit.ActionTransferCancelled, nil)
}

// Complete settles an Approved transfer through the ledger. A ledger failure
// (policy denial, balance shortfall) propagates to the caller and leaves the
// transfer Approved: completion is retryable, it never silently terminalizes.
func (s *Service) Complete(ctx context.Context, transferID id.TransferID) error {
	ctx, span := s.tracer.Start(ctx, "transfer.Complete")
	defer span.End()

	return s.transition(ctx, transferID, func(t *Transfer) error {
		if t.Status != StatusApproved {
			return t.Complete() // surfaces the InvalidState error
		}
		if err := s.ledger.Move(ctx, t.ItemID, t.From, t.To, t.Amount); err != nil {
			if s.metrics != nil {
				s.metrics.IncSettlementFailure()
			}
			return err
		}
		return t.Complete()
	}, audit.ActionTransferCompleted, nil)
}

// Status returns the transfer's current state-machine position.
func (s *Service) Status(ctx context.Context, transferID id.TransferID) (Status, error) {
	t, err := s.get(ctx, transferID)
	if err != nil {
		return "", err
	}
	return t.Status, nil
}

// Elapsed returns the duration since the transfer was proposed.
func (s *Service) Elapsed(ctx context.Context, transferID id.TransferID) (time.Duration, error) {
	t, err := s.get(ctx, transferID)
	if err != nil {
		return 0, err
	}
	return s.timestamp(ctx).Sub(t.ProposedAt), nil
}

// Get returns the full transfer record.
func (s *Service) Get(ctx context.Context, transferID id.TransferID) (*Transfer, error) {
	return s.get(ctx, transferID)
}

// ListByItem returns an item's transfers in proposal order.
func (s *Service) ListByItem(ctx context.Context, itemID id.ItemID) ([]Transfer, error) {
	transfers, err := s.transfers.ListByItem(ctx, itemID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list transfers")
	}
	return transfers, nil
}

func (s *Service) get(ctx context.Context, transferID id.TransferID) (*Transfer, error) {
	t, err := s.transfers.Get(ctx, transferID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "transfer %d does not exist", transferID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "get transfer")
	}
	return t, nil
}

// transition loads the transfer under its item's lock, applies fn, persists
// the new state, and audits the accepted transition. fn returning an error
// leaves the stored record untouched.
func (s *Service) transition(ctx context.Context, transferID id.TransferID, fn func(*Transfer) error, action string, payload any) error {
	t, err := s.get(ctx, transferID)
	if err != nil {
		return err
	}

	lock := s.itemLock(t.ItemID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock; the first read raced with other transitions.
	t, err = s.get(ctx, transferID)
	if err != nil {
		return err
	}

	if err := fn(t); err != nil {
		return err
	}

	if err := s.transfers.Update(ctx, t); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "update transfer")
	}

	s.observe(ctx, t, action, payload)
	return nil
}

// observe audits and counts an accepted transition. The state change has
// already been committed; failures here are wiring faults and are logged.
func (s *Service) observe(ctx context.Context, t *Transfer, action string, payload any) {
	if s.metrics != nil {
		s.metrics.IncTransition(string(t.Status))
	}

	var data []byte
	var err error
	if payload != nil {
		data, err = json.Marshal(payload)
	}
	if err == nil {
		_, err = s.auditor.Append(ctx, s.writerID, action, t.ItemID, data)
	}
	if err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to audit transfer transition",
			"action", action,
			"transfer_id", uint64(t.ID),
			"error", err,
		)
	}
}

package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"provena/internal/audit"
	ledgermetrics "provena/internal/ledger/metrics"
	id "provena/pkg/domain"
	dErrors "provena/pkg/domain-errors"
	"provena/pkg/platform/sentinel"
)

// ItemStore persists fragment records. Get/Save exchange copies; the service
// serializes mutations per item, so a staged copy never races with another
// writer of the same item.
type ItemStore interface {
	Get(ctx context.Context, itemID id.ItemID) (Item, error)
	Create(ctx context.Context, item Item) error
	Save(ctx context.Context, item Item) error
}

// PolicyChecker is the compliance predicate consulted before every credit.
type PolicyChecker interface {
	CanReceive(ctx context.Context, principal id.PrincipalID, amount uint64, holderCount uint64) bool
}

// Auditor records accepted ledger mutations.
type Auditor interface {
	Append(ctx context.Context, actor id.PrincipalID, action string, subjectItemID id.ItemID, payload []byte) (id.AuditEntryID, error)
}

// Service is the only mutator of fragment balances. Every mutation on an item
// runs under that item's lock, so no observer sees a debit without its credit;
// operations on different items proceed in parallel.
type Service struct {
	items   ItemStore
	policy  PolicyChecker
	auditor Auditor
	// writerID is the identity this service appends audit entries under. It
	// must be authorized as an audit writer at bootstrap.
	writerID id.PrincipalID
	logger   *slog.Logger
	metrics  *ledgermetrics.Metrics

	locksMu sync.Mutex
	locks   map[id.ItemID]*sync.Mutex
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *ledgermetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(items ItemStore, policy PolicyChecker, auditor Auditor, writerID id.PrincipalID, opts ...Option) *Service {
	s := &Service{
		items:    items,
		policy:   policy,
		auditor:  auditor,
		writerID: writerID,
		locks:    make(map[id.ItemID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) itemLock(itemID id.ItemID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	if _, ok := s.locks[itemID]; !ok {
		s.locks[itemID] = &sync.Mutex{}
	}
	return s.locks[itemID]
}

// InitializeFragments establishes the fragment record for a newly registered
// item, crediting the full amount to the initial holder. Invoked once by the
// external registration flow.
func (s *Service) InitializeFragments(ctx context.Context, itemID id.ItemID, totalFragments uint64, initialHolder id.PrincipalID) error {
	if itemID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "item_id is required")
	}
	if initialHolder.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "initial holder is required")
	}
	if totalFragments == 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "total fragments must be positive")
	}

	lock := s.itemLock(itemID)
	lock.Lock()
	defer lock.Unlock()

	if existing, err := s.items.Get(ctx, itemID); err == nil && existing.IsFragmented {
		return dErrors.Newf(dErrors.CodeAlreadyExists, "item %s is already fragmented", itemID)
	} else if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load item")
	}

	item := Item{
		ID:             itemID,
		TotalFragments: totalFragments,
		IsFragmented:   true,
		Balances:       map[id.PrincipalID]uint64{initialHolder: totalFragments},
	}
	if err := s.items.Create(ctx, item); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Newf(dErrors.CodeAlreadyExists, "item %s is already fragmented", itemID)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "create fragment record")
	}

	if s.metrics != nil {
		s.metrics.IncItemInitialized()
	}
	s.audit(ctx, audit.ActionFragmentsInitialized, itemID, initPayload{
		TotalFragments: totalFragments,
		InitialHolder:  initialHolder.String(),
	})
	return nil
}

// Move atomically debits from and credits to. The policy engine is consulted
// before the mutation; the conservation invariant is re-checked before the
// mutated record becomes observable. On any failure the stored state is
// untouched.
func (s *Service) Move(ctx context.Context, itemID id.ItemID, from, to id.PrincipalID, amount uint64) error {
	err := s.move(ctx, itemID, from, to, amount)
	if s.metrics != nil {
		outcome := "moved"
		if err != nil {
			outcome = string(dErrors.CodeOf(err))
		}
		s.metrics.IncMove(outcome)
	}
	return err
}

func (s *Service) move(ctx context.Context, itemID id.ItemID, from, to id.PrincipalID, amount uint64) error {
	if from.IsNil() || to.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "from and to principals are required")
	}
	if amount == 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "amount must be positive")
	}

	lock := s.itemLock(itemID)
	lock.Lock()
	defer lock.Unlock()

	item, err := s.getFragmented(ctx, itemID)
	if err != nil {
		return err
	}

	if item.BalanceOf(from) < amount {
		return dErrors.Newf(dErrors.CodeInsufficientBalance, "principal %s holds %d of item %s, needs %d",
			from, item.BalanceOf(from), itemID, amount)
	}
	if !s.policy.CanReceive(ctx, to, amount, item.HolderCount()) {
		return dErrors.Newf(dErrors.CodePolicyDenied, "principal %s may not receive %d fragments of item %s",
			to, amount, itemID)
	}

	// Stage the mutation on the copy; it becomes observable only via Save.
	item.Balances[from] -= amount
	if item.Balances[from] == 0 {
		delete(item.Balances, from)
	}
	item.Balances[to] += amount

	if sum := item.balanceSum(); sum != item.TotalFragments {
		return dErrors.Newf(dErrors.CodeInternal, "conservation violated for item %s: sum %d != total %d",
			itemID, sum, item.TotalFragments)
	}

	if err := s.items.Save(ctx, item); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "save fragment record")
	}

	s.audit(ctx, audit.ActionFragmentsMoved, itemID, movePayload{
		From:   from.String(),
		To:     to.String(),
		Amount: amount,
	})
	return nil
}

// BalanceOf returns the principal's balance for an item. Absent entries read
// as zero.
func (s *Service) BalanceOf(ctx context.Context, itemID id.ItemID, principal id.PrincipalID) (uint64, error) {
	item, err := s.getFragmented(ctx, itemID)
	if err != nil {
		return 0, err
	}
	return item.BalanceOf(principal), nil
}

// HolderCount returns the number of principals with a balance above zero.
func (s *Service) HolderCount(ctx context.Context, itemID id.ItemID) (uint64, error) {
	item, err := s.getFragmented(ctx, itemID)
	if err != nil {
		return 0, err
	}
	return item.HolderCount(), nil
}

// FragmentValue prices a fragment count against the item's current total
// value: totalValue * fragmentCount / totalFragments, truncated toward zero.
// The truncation remainder accrues to no holder; callers that need exactness
// must reconcile remainders themselves. Decimal arithmetic keeps the
// intermediate product from overflowing uint64.
func (s *Service) FragmentValue(ctx context.Context, itemID id.ItemID, fragmentCount, totalValue uint64) (uint64, error) {
	item, err := s.getFragmented(ctx, itemID)
	if err != nil {
		return 0, err
	}
	product := decimal.NewFromUint64(totalValue).Mul(decimal.NewFromUint64(fragmentCount))
	quotient, _ := product.QuoRem(decimal.NewFromUint64(item.TotalFragments), 0)
	return quotient.BigInt().Uint64(), nil
}

func (s *Service) getFragmented(ctx context.Context, itemID id.ItemID) (Item, error) {
	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Item{}, dErrors.Newf(dErrors.CodeNotFound, "item %s is not fragmented", itemID)
		}
		return Item{}, dErrors.Wrap(err, dErrors.CodeInternal, "load item")
	}
	if !item.IsFragmented {
		return Item{}, dErrors.Newf(dErrors.CodeNotFound, "item %s is not fragmented", itemID)
	}
	return item, nil
}

type initPayload struct {
	TotalFragments uint64 `json:"total_fragments"`
	InitialHolder  string `json:"initial_holder"`
}

type movePayload struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// audit records an accepted mutation. The balance change has already been
// committed; a failure here is a wiring fault (unregistered action or
// deauthorized writer) and is logged rather than unwinding the mutation.
func (s *Service) audit(ctx context.Context, action string, itemID id.ItemID, payload any) {
	data, err := json.Marshal(payload)
	if err == nil {
		_, err = s.auditor.Append(ctx, s.writerID, action, itemID, data)
	}
	if err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to audit ledger mutation",
			"action", action,
			"item_id", itemID,
			"error", err,
		)
	}
}

package ledger_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"provena/internal/audit"
	auditmemory "provena/internal/audit/store/memory"
	"provena/internal/ledger"
	ledgermetrics "provena/internal/ledger/metrics"
	ledgermemory "provena/internal/ledger/store/memory"
	"provena/internal/policy"
	policymemory "provena/internal/policy/store/memory"
	id "provena/pkg/domain"
	dErrors "provena/pkg/domain-errors"
)

// LedgerSuite wires real policy and audit services behind the ledger,
// mirroring production composition. No mocks.
type LedgerSuite struct {
	suite.Suite
	ledger *ledger.Service
	policy *policy.Service
	audit  *audit.Service
	admin  id.PrincipalID
	writer id.PrincipalID
	item   id.ItemID
	alice  id.PrincipalID
	bob    id.PrincipalID
	ctx    context.Context
}

func (s *LedgerSuite) SetupTest() {
	s.ctx = context.Background()
	s.admin = id.PrincipalID(uuid.New())
	s.writer = id.PrincipalID(uuid.New())
	s.item = id.ItemID(uuid.New())
	s.alice = id.PrincipalID(uuid.New())
	s.bob = id.PrincipalID(uuid.New())

	s.audit = audit.NewService(auditmemory.NewInMemoryStore(), s.admin)
	for _, action := range audit.CoreActions() {
		s.Require().NoError(s.audit.RegisterAction(s.ctx, s.admin, action))
	}
	s.Require().NoError(s.audit.AuthorizeWriter(s.ctx, s.admin, s.writer))

	s.policy = policy.NewService(policymemory.NewInMemoryProfileStore(), s.admin, policy.DefaultConfig())
	s.ledger = ledger.NewService(ledgermemory.NewInMemoryItemStore(), s.policy, s.audit, s.writer)

	// Both parties clear every predicate unless a test says otherwise.
	for _, p := range []id.PrincipalID{s.alice, s.bob} {
		s.Require().NoError(s.policy.SetKYC(s.ctx, s.admin, p, true))
		s.Require().NoError(s.policy.SetRiskScore(s.ctx, s.admin, p, 10))
	}
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

// sumOfBalances recomputes the conservation sum from the query surface.
func (s *LedgerSuite) sumOfBalances(principals ...id.PrincipalID) uint64 {
	var sum uint64
	for _, p := range principals {
		balance, err := s.ledger.BalanceOf(s.ctx, s.item, p)
		s.Require().NoError(err)
		sum += balance
	}
	return sum
}

func (s *LedgerSuite) TestInitializeFragments() {
	s.Run("credits full amount to initial holder", func() {
		s.Require().NoError(s.ledger.InitializeFragments(s.ctx, s.item, 100, s.alice))

		balance, err := s.ledger.BalanceOf(s.ctx, s.item, s.alice)
		s.Require().NoError(err)
		s.Equal(uint64(100), balance)

		count, err := s.ledger.HolderCount(s.ctx, s.item)
		s.Require().NoError(err)
		s.Equal(uint64(1), count)
	})

	s.Run("rejects double fragmentation", func() {
		err := s.ledger.InitializeFragments(s.ctx, s.item, 50, s.bob)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyExists))
	})

	s.Run("rejects zero total", func() {
		err := s.ledger.InitializeFragments(s.ctx, id.ItemID(uuid.New()), 0, s.alice)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	})

	s.Run("writes an audit entry", func() {
		entries, err := s.audit.ListByActor(s.ctx, s.writer)
		s.Require().NoError(err)
		s.Require().NotEmpty(entries)
		s.Equal(audit.ActionFragmentsInitialized, entries[0].Action)
		s.Equal(s.item, entries[0].SubjectItemID)
	})
}

func (s *LedgerSuite) TestMove() {
	s.Require().NoError(s.ledger.InitializeFragments(s.ctx, s.item, 100, s.alice))

	s.Run("moves and conserves", func() {
		s.Require().NoError(s.ledger.Move(s.ctx, s.item, s.alice, s.bob, 40))

		s.Equal(uint64(100), s.sumOfBalances(s.alice, s.bob))
		balance, err := s.ledger.BalanceOf(s.ctx, s.item, s.bob)
		s.Require().NoError(err)
		s.Equal(uint64(40), balance)
	})

	s.Run("rejects unfragmented item", func() {
		err := s.ledger.Move(s.ctx, id.ItemID(uuid.New()), s.alice, s.bob, 1)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("rejects insufficient balance without partial mutation", func() {
		err := s.ledger.Move(s.ctx, s.item, s.alice, s.bob, 61)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientBalance))

		aliceBalance, err := s.ledger.BalanceOf(s.ctx, s.item, s.alice)
		s.Require().NoError(err)
		s.Equal(uint64(60), aliceBalance)
		bobBalance, err := s.ledger.BalanceOf(s.ctx, s.item, s.bob)
		s.Require().NoError(err)
		s.Equal(uint64(40), bobBalance)
	})

	s.Run("rejects policy denial without partial mutation", func() {
		s.Require().NoError(s.policy.SetBlacklisted(s.ctx, s.admin, s.bob, true))

		err := s.ledger.Move(s.ctx, s.item, s.alice, s.bob, 10)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePolicyDenied))
		s.False(dErrors.HasCode(err, dErrors.CodeInsufficientBalance),
			"policy denial must be distinguishable from a balance shortfall")

		s.Equal(uint64(100), s.sumOfBalances(s.alice, s.bob))
		s.Require().NoError(s.policy.SetBlacklisted(s.ctx, s.admin, s.bob, false))
	})

	s.Run("removes zeroed holders from the count", func() {
		s.Require().NoError(s.ledger.Move(s.ctx, s.item, s.alice, s.bob, 60))

		count, err := s.ledger.HolderCount(s.ctx, s.item)
		s.Require().NoError(err)
		s.Equal(uint64(1), count)

		aliceBalance, err := s.ledger.BalanceOf(s.ctx, s.item, s.alice)
		s.Require().NoError(err)
		s.Zero(aliceBalance)
	})
}

// TestConservationUnderSequences drives a longer call sequence and checks the
// invariant after every successful move.
func (s *LedgerSuite) TestConservationUnderSequences() {
	carol := id.PrincipalID(uuid.New())
	s.Require().NoError(s.policy.SetKYC(s.ctx, s.admin, carol, true))

	s.Require().NoError(s.ledger.InitializeFragments(s.ctx, s.item, 1000, s.alice))

	moves := []struct {
		from, to id.PrincipalID
		amount   uint64
	}{
		{s.alice, s.bob, 250},
		{s.alice, carol, 100},
		{s.bob, carol, 50},
		{carol, s.alice, 150},
		{s.bob, s.alice, 200},
	}
	for _, m := range moves {
		s.Require().NoError(s.ledger.Move(s.ctx, s.item, m.from, m.to, m.amount))
		s.Equal(uint64(1000), s.sumOfBalances(s.alice, s.bob, carol))
	}
}

func (s *LedgerSuite) TestFragmentValue() {
	s.Require().NoError(s.ledger.InitializeFragments(s.ctx, s.item, 100, s.alice))

	s.Run("proportional value", func() {
		value, err := s.ledger.FragmentValue(s.ctx, s.item, 40, 1_000_000)
		s.Require().NoError(err)
		s.Equal(uint64(400_000), value)
	})

	s.Run("truncates toward zero", func() {
		value, err := s.ledger.FragmentValue(s.ctx, s.item, 1, 99)
		s.Require().NoError(err)
		s.Equal(uint64(0), value)

		value, err = s.ledger.FragmentValue(s.ctx, s.item, 33, 100)
		s.Require().NoError(err)
		s.Equal(uint64(33), value)
	})

	s.Run("survives large intermediate products", func() {
		// totalValue * fragmentCount overflows uint64; decimal math must not.
		value, err := s.ledger.FragmentValue(s.ctx, s.item, 50, 1<<63)
		s.Require().NoError(err)
		s.Equal(uint64(1<<62), value)
	})
}

func (s *LedgerSuite) TestMoveOutcomesAreCounted() {
	m := ledgermetrics.New()
	svc := ledger.NewService(ledgermemory.NewInMemoryItemStore(), s.policy, s.audit, s.writer,
		ledger.WithMetrics(m),
	)
	s.Require().NoError(svc.InitializeFragments(s.ctx, s.item, 100, s.alice))
	s.Require().NoError(svc.Move(s.ctx, s.item, s.alice, s.bob, 40))

	err := svc.Move(s.ctx, s.item, s.alice, s.bob, 1000)
	s.Require().Error(err)

	s.Equal(1.0, promtestutil.ToFloat64(m.ItemsInitialized))
	s.Equal(1.0, promtestutil.ToFloat64(m.MovesTotal.WithLabelValues("moved")))
	s.Equal(1.0, promtestutil.ToFloat64(m.MovesTotal.WithLabelValues("insufficient_balance")))
}

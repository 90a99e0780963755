package policy_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"provena/internal/policy"
	policymetrics "provena/internal/policy/metrics"
	"provena/internal/policy/store/memory"
	id "provena/pkg/domain"
	dErrors "provena/pkg/domain-errors"
)

type PolicySuite struct {
	suite.Suite
	svc       *policy.Service
	admin     id.PrincipalID
	principal id.PrincipalID
	ctx       context.Context
}

func (s *PolicySuite) SetupTest() {
	s.ctx = context.Background()
	s.admin = id.PrincipalID(uuid.New())
	s.principal = id.PrincipalID(uuid.New())
	s.svc = policy.NewService(memory.NewInMemoryProfileStore(), s.admin, policy.DefaultConfig())
}

func TestPolicySuite(t *testing.T) {
	suite.Run(t, new(PolicySuite))
}

// compliant makes the principal pass every predicate.
func (s *PolicySuite) compliant(p id.PrincipalID) {
	s.Require().NoError(s.svc.SetKYC(s.ctx, s.admin, p, true))
	s.Require().NoError(s.svc.SetRiskScore(s.ctx, s.admin, p, 10))
}

func (s *PolicySuite) TestSettersRequireAdmin() {
	stranger := id.PrincipalID(uuid.New())

	err := s.svc.SetKYC(s.ctx, stranger, s.principal, true)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	err = s.svc.SetConfig(s.ctx, stranger, policy.DefaultConfig())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *PolicySuite) TestProfile() {
	s.Run("created lazily on first write", func() {
		_, err := s.svc.Profile(s.ctx, s.principal)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		s.Require().NoError(s.svc.SetAccredited(s.ctx, s.admin, s.principal, true))

		profile, err := s.svc.Profile(s.ctx, s.principal)
		s.Require().NoError(err)
		s.True(profile.Accredited)
		s.False(profile.KYCApproved)
	})

	s.Run("writes stamp LastCheckedAt", func() {
		fixed := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
		svc := policy.NewService(memory.NewInMemoryProfileStore(), s.admin, policy.DefaultConfig(),
			policy.WithClock(func() time.Time { return fixed }),
		)
		s.Require().NoError(svc.SetKYC(s.ctx, s.admin, s.principal, true))

		profile, err := svc.Profile(s.ctx, s.principal)
		s.Require().NoError(err)
		s.Equal(fixed, profile.LastCheckedAt)
	})

	s.Run("jurisdiction approvals accumulate", func() {
		s.Require().NoError(s.svc.SetJurisdiction(s.ctx, s.admin, s.principal, "US", true))
		s.Require().NoError(s.svc.SetJurisdiction(s.ctx, s.admin, s.principal, "DE", true))
		s.Require().NoError(s.svc.SetJurisdiction(s.ctx, s.admin, s.principal, "US", false))

		profile, err := s.svc.Profile(s.ctx, s.principal)
		s.Require().NoError(err)
		s.False(profile.ApprovedIn("US"))
		s.True(profile.ApprovedIn("DE"))
	})

	s.Run("risk score is bounded", func() {
		err := s.svc.SetRiskScore(s.ctx, s.admin, s.principal, 101)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		err = s.svc.SetRiskScore(s.ctx, s.admin, s.principal, -1)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *PolicySuite) TestCanReceive() {
	s.Run("denies principal with no profile", func() {
		s.False(s.svc.CanReceive(s.ctx, id.PrincipalID(uuid.New()), 10, 1))
	})

	s.Run("allows compliant principal", func() {
		s.compliant(s.principal)
		s.True(s.svc.CanReceive(s.ctx, s.principal, 10, 1))
	})

	s.Run("denies without KYC approval", func() {
		p := id.PrincipalID(uuid.New())
		s.Require().NoError(s.svc.SetAccredited(s.ctx, s.admin, p, true))
		s.False(s.svc.CanReceive(s.ctx, p, 10, 1))
	})

	s.Run("denies blacklisted principal", func() {
		s.compliant(s.principal)
		s.Require().NoError(s.svc.SetBlacklisted(s.ctx, s.admin, s.principal, true))
		s.False(s.svc.CanReceive(s.ctx, s.principal, 10, 1))

		s.Require().NoError(s.svc.SetBlacklisted(s.ctx, s.admin, s.principal, false))
		s.True(s.svc.CanReceive(s.ctx, s.principal, 10, 1))
	})

	s.Run("denies critical risk score regardless of other state", func() {
		s.compliant(s.principal)
		s.Require().NoError(s.svc.SetAccredited(s.ctx, s.admin, s.principal, true))
		s.Require().NoError(s.svc.SetRiskScore(s.ctx, s.admin, s.principal, 80))
		s.False(s.svc.CanReceive(s.ctx, s.principal, 10, 1))

		// Exactly at the threshold still denies.
		s.Require().NoError(s.svc.SetRiskScore(s.ctx, s.admin, s.principal, policy.CriticalRiskThreshold))
		s.False(s.svc.CanReceive(s.ctx, s.principal, 10, 1))

		s.Require().NoError(s.svc.SetRiskScore(s.ctx, s.admin, s.principal, policy.CriticalRiskThreshold-1))
		s.True(s.svc.CanReceive(s.ctx, s.principal, 10, 1))
	})

	s.Run("enforces transfer amount cap only while restricted", func() {
		s.compliant(s.principal)
		cfg := policy.DefaultConfig()
		cfg.MaxTransferAmount = 50
		cfg.TransfersRestricted = false
		s.Require().NoError(s.svc.SetConfig(s.ctx, s.admin, cfg))
		s.True(s.svc.CanReceive(s.ctx, s.principal, 51, 1))

		cfg.TransfersRestricted = true
		s.Require().NoError(s.svc.SetConfig(s.ctx, s.admin, cfg))
		s.False(s.svc.CanReceive(s.ctx, s.principal, 51, 1))
		s.True(s.svc.CanReceive(s.ctx, s.principal, 50, 1))
	})

	s.Run("enforces holder count cap", func() {
		s.compliant(s.principal)
		cfg := policy.DefaultConfig()
		cfg.MaxPrincipalCount = 3
		s.Require().NoError(s.svc.SetConfig(s.ctx, s.admin, cfg))

		s.True(s.svc.CanReceive(s.ctx, s.principal, 10, 2))
		s.False(s.svc.CanReceive(s.ctx, s.principal, 10, 3))
	})
}

func (s *PolicySuite) TestHasMinHoldingPeriodElapsed() {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	svc := policy.NewService(memory.NewInMemoryProfileStore(), s.admin, policy.Config{
		MinHoldingPeriod: 24 * time.Hour,
	}, policy.WithClock(func() time.Time { return now }))

	s.False(svc.HasMinHoldingPeriodElapsed(s.ctx, now.Add(-23 * time.Hour)))
	s.True(svc.HasMinHoldingPeriodElapsed(s.ctx, now.Add(-24 * time.Hour)))
	s.True(svc.HasMinHoldingPeriodElapsed(s.ctx, now.Add(-48 * time.Hour)))
}

func (s *PolicySuite) TestDenialsAreCounted() {
	m := policymetrics.New()
	svc := policy.NewService(memory.NewInMemoryProfileStore(), s.admin, policy.DefaultConfig(),
		policy.WithMetrics(m),
	)
	blocked := id.PrincipalID(uuid.New())
	s.Require().NoError(svc.SetKYC(s.ctx, s.admin, blocked, true))
	s.Require().NoError(svc.SetBlacklisted(s.ctx, s.admin, blocked, true))

	s.False(svc.CanReceive(s.ctx, blocked, 1, 0))

	s.Equal(1.0, promtestutil.ToFloat64(m.ChecksTotal.WithLabelValues("denied")))
	s.Equal(1.0, promtestutil.ToFloat64(m.DenialsTotal.WithLabelValues("blacklist")))
}

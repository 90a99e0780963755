package policy

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	policymetrics "provena/internal/policy/metrics"
	id "provena/pkg/domain"
	dErrors "provena/pkg/domain-errors"
	"provena/pkg/platform/sentinel"
	"provena/pkg/requestcontext"
)

// ProfileStore persists compliance profiles.
type ProfileStore interface {
	Get(ctx context.Context, principal id.PrincipalID) (ComplianceProfile, error)
	Save(ctx context.Context, profile ComplianceProfile) error
}

// Service holds compliance state and the global policy parameters. Setters
// are restricted to the configured administrator identity; CanReceive never
// fails, a denial is a normal outcome.
type Service struct {
	profiles ProfileStore
	admin    id.PrincipalID
	logger   *slog.Logger
	metrics  *policymetrics.Metrics
	now      func() time.Time

	cfgMu sync.RWMutex
	cfg   Config
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *policymetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the LastCheckedAt and holding-period time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(profiles ProfileStore, admin id.PrincipalID, cfg Config, opts ...Option) *Service {
	s := &Service{
		profiles: profiles,
		admin:    admin,
		cfg:      cfg,
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

func (s *Service) requireAdmin(actor id.PrincipalID) error {
	if actor != s.admin {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the policy administrator")
	}
	return nil
}

// mutateProfile loads (or lazily creates) the principal's profile, applies fn,
// stamps LastCheckedAt, and saves. The policy administrator is the only
// logical writer, so load-modify-save needs no further exclusion.
func (s *Service) mutateProfile(ctx context.Context, actor, principal id.PrincipalID, fn func(*ComplianceProfile)) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	if principal.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "principal is required")
	}

	profile, err := s.profiles.Get(ctx, principal)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load compliance profile")
		}
		profile = ComplianceProfile{
			Principal:             principal,
			JurisdictionApprovals: make(map[id.JurisdictionCode]bool),
		}
	}
	if profile.JurisdictionApprovals == nil {
		profile.JurisdictionApprovals = make(map[id.JurisdictionCode]bool)
	}

	fn(&profile)
	profile.LastCheckedAt = s.timestamp(ctx)

	if err := s.profiles.Save(ctx, profile); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "save compliance profile")
	}
	return nil
}

// SetKYC overwrites the principal's KYC approval flag.
func (s *Service) SetKYC(ctx context.Context, actor, principal id.PrincipalID, approved bool) error {
	return s.mutateProfile(ctx, actor, principal, func(p *ComplianceProfile) {
		p.KYCApproved = approved
	})
}

// SetAccredited overwrites the principal's accreditation flag.
func (s *Service) SetAccredited(ctx context.Context, actor, principal id.PrincipalID, accredited bool) error {
	return s.mutateProfile(ctx, actor, principal, func(p *ComplianceProfile) {
		p.Accredited = accredited
	})
}

// SetBlacklisted overwrites the principal's blacklist membership.
func (s *Service) SetBlacklisted(ctx context.Context, actor, principal id.PrincipalID, blacklisted bool) error {
	return s.mutateProfile(ctx, actor, principal, func(p *ComplianceProfile) {
		p.Blacklisted = blacklisted
	})
}

// SetJurisdiction overwrites the principal's approval in one jurisdiction.
func (s *Service) SetJurisdiction(ctx context.Context, actor, principal id.PrincipalID, code id.JurisdictionCode, approved bool) error {
	if code == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "jurisdiction code is required")
	}
	return s.mutateProfile(ctx, actor, principal, func(p *ComplianceProfile) {
		p.JurisdictionApprovals[code] = approved
	})
}

// SetRiskScore overwrites the principal's risk score (0..100).
func (s *Service) SetRiskScore(ctx context.Context, actor, principal id.PrincipalID, score int) error {
	if score < 0 || score > MaxRiskScore {
		return dErrors.Newf(dErrors.CodeInvalidInput, "risk score %d is outside [0, %d]", score, MaxRiskScore)
	}
	return s.mutateProfile(ctx, actor, principal, func(p *ComplianceProfile) {
		p.RiskScore = score
	})
}

// Profile returns the principal's compliance profile.
func (s *Service) Profile(ctx context.Context, principal id.PrincipalID) (ComplianceProfile, error) {
	profile, err := s.profiles.Get(ctx, principal)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return ComplianceProfile{}, dErrors.Newf(dErrors.CodeNotFound, "no compliance profile for %s", principal)
		}
		return ComplianceProfile{}, dErrors.Wrap(err, dErrors.CodeInternal, "load compliance profile")
	}
	return profile, nil
}

// SetConfig overwrites the global policy parameters.
func (s *Service) SetConfig(ctx context.Context, actor id.PrincipalID, cfg Config) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
	if s.logger != nil {
		s.logger.InfoContext(ctx, "policy config updated",
			"max_principal_count", cfg.MaxPrincipalCount,
			"min_holding_period", cfg.MinHoldingPeriod,
			"max_transfer_amount", cfg.MaxTransferAmount,
			"transfers_restricted", cfg.TransfersRestricted,
		)
	}
	return nil
}

// Config returns the current global policy parameters.
func (s *Service) Config() Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// CanReceive decides whether the principal may receive amount fragments of an
// item that currently has holderCount holders. Predicates are evaluated in a
// fixed order (KYC, blacklist, restricted amount cap, risk score, holder cap);
// only the aggregate decision is returned. The check reads the profile fresh
// on every call - compliance facts change between proposal and approval, and
// a cached result would reintroduce a time-of-check/time-of-use gap.
func (s *Service) CanReceive(ctx context.Context, principal id.PrincipalID, amount uint64, holderCount uint64) bool {
	allowed, predicate := s.evaluate(ctx, principal, amount, holderCount)
	if s.metrics != nil {
		s.metrics.IncCheck(allowed)
		if !allowed {
			s.metrics.IncDenial(predicate)
		}
	}
	if !allowed && s.logger != nil {
		s.logger.DebugContext(ctx, "receive denied",
			"principal", principal,
			"amount", amount,
			"predicate", predicate,
		)
	}
	return allowed
}

func (s *Service) evaluate(ctx context.Context, principal id.PrincipalID, amount uint64, holderCount uint64) (bool, string) {
	profile, err := s.profiles.Get(ctx, principal)
	if err != nil {
		// No profile means no KYC approval; store failures also deny, the
		// engine fails closed.
		return false, "kyc"
	}

	cfg := s.Config()

	if !profile.KYCApproved {
		return false, "kyc"
	}
	if profile.Blacklisted {
		return false, "blacklist"
	}
	if cfg.TransfersRestricted && amount > cfg.MaxTransferAmount {
		return false, "transfer_amount"
	}
	if profile.RiskScore >= CriticalRiskThreshold {
		return false, "risk_score"
	}
	if holderCount+1 > cfg.MaxPrincipalCount {
		return false, "holder_count"
	}
	return true, ""
}

// HasMinHoldingPeriodElapsed reports whether the minimum holding period has
// passed since acquiredAt.
func (s *Service) HasMinHoldingPeriodElapsed(ctx context.Context, acquiredAt time.Time) bool {
	return s.timestamp(ctx).Sub(acquiredAt) >= s.Config().MinHoldingPeriod
}

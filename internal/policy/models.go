// Package policy is the single source of truth for "is principal P currently
// allowed to hold or receive amount A of item I". It holds per-principal
// compliance state and the global policy parameters, both mutable at any time
// by the policy administrator.
package policy

import (
	"time"

	id "provena/pkg/domain"
)

// CriticalRiskThreshold is the fixed risk score at or above which a principal
// may not receive fragments, regardless of other compliance state.
const CriticalRiskThreshold = 75

// MaxRiskScore bounds the risk score scale.
const MaxRiskScore = 100

// ComplianceProfile is the compliance state of one principal. Created lazily
// on first policy write; overwritten in place, never deleted. History lives in
// the audit log, not here.
type ComplianceProfile struct {
	Principal             id.PrincipalID
	KYCApproved           bool
	Accredited            bool
	Blacklisted           bool
	JurisdictionApprovals map[id.JurisdictionCode]bool
	RiskScore             int
	LastCheckedAt         time.Time
}

// ApprovedIn reports whether the principal is approved in the jurisdiction.
func (p *ComplianceProfile) ApprovedIn(code id.JurisdictionCode) bool {
	return p.JurisdictionApprovals[code]
}

// Config is the global, mutable policy parameter set.
type Config struct {
	// MaxPrincipalCount caps the number of holders per item.
	MaxPrincipalCount uint64
	// MinHoldingPeriod is the minimum time between acquisition and resale.
	MinHoldingPeriod time.Duration
	// MaxTransferAmount caps single transfers while TransfersRestricted is set.
	MaxTransferAmount uint64
	// TransfersRestricted enables the MaxTransferAmount cap.
	TransfersRestricted bool
}

// DefaultConfig returns the parameters a fresh registry starts with. The
// administrator overwrites these through SetConfig.
func DefaultConfig() Config {
	return Config{
		MaxPrincipalCount: 100,
	}
}

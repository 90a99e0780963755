package handler

import (
	"time"

	"provena/internal/policy"
)

// ProfileResponse is the HTTP shape of a compliance profile.
type ProfileResponse struct {
	PrincipalID           string          `json:"principal_id"`
	KYCApproved           bool            `json:"kyc_approved"`
	Accredited            bool            `json:"accredited"`
	Blacklisted           bool            `json:"blacklisted"`
	JurisdictionApprovals map[string]bool `json:"jurisdiction_approvals"`
	RiskScore             int             `json:"risk_score"`
	LastCheckedAt         time.Time       `json:"last_checked_at"`
}

// FromProfile converts a domain profile to an HTTP response.
func FromProfile(p policy.ComplianceProfile) ProfileResponse {
	approvals := make(map[string]bool, len(p.JurisdictionApprovals))
	for code, approved := range p.JurisdictionApprovals {
		approvals[string(code)] = approved
	}
	return ProfileResponse{
		PrincipalID:           p.Principal.String(),
		KYCApproved:           p.KYCApproved,
		Accredited:            p.Accredited,
		Blacklisted:           p.Blacklisted,
		JurisdictionApprovals: approvals,
		RiskScore:             p.RiskScore,
		LastCheckedAt:         p.LastCheckedAt,
	}
}

// ConfigResponse is the HTTP shape of the policy configuration.
type ConfigResponse struct {
	MaxPrincipalCount   uint64 `json:"max_principal_count"`
	MinHoldingPeriod    string `json:"min_holding_period"`
	MaxTransferAmount   uint64 `json:"max_transfer_amount"`
	TransfersRestricted bool   `json:"transfers_restricted"`
}

// FromConfig converts the policy config to an HTTP response.
func FromConfig(cfg policy.Config) ConfigResponse {
	return ConfigResponse{
		MaxPrincipalCount:   cfg.MaxPrincipalCount,
		MinHoldingPeriod:    cfg.MinHoldingPeriod.String(),
		MaxTransferAmount:   cfg.MaxTransferAmount,
		TransfersRestricted: cfg.TransfersRestricted,
	}
}

// RiskLevelResponse is the HTTP response for the risk level lookup.
type RiskLevelResponse struct {
	RiskLevel string `json:"risk_level"`
}

// HoldingPeriodResponse is the HTTP response for the holding period query.
type HoldingPeriodResponse struct {
	Elapsed bool `json:"elapsed"`
}

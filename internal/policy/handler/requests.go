package handler

import (
	"time"

	"provena/internal/policy"
	dErrors "provena/pkg/domain-errors"
)

// FlagRequest is the shared body for the boolean profile mutations.
type FlagRequest struct {
	Approved *bool `json:"approved"`
}

func (r *FlagRequest) Validate() error {
	if r.Approved == nil {
		return dErrors.New(dErrors.CodeBadRequest, "approved is required")
	}
	return nil
}

// Value returns the validated flag value.
func (r *FlagRequest) Value() bool {
	return *r.Approved
}

// RiskScoreRequest is the body for PUT risk-score.
type RiskScoreRequest struct {
	Score int `json:"score"`
}

func (r *RiskScoreRequest) Validate() error {
	if r.Score < 0 || r.Score > policy.MaxRiskScore {
		return dErrors.Newf(dErrors.CodeBadRequest, "score must be between 0 and %d", policy.MaxRiskScore)
	}
	return nil
}

// ConfigRequest is the body for policy config updates.
type ConfigRequest struct {
	MaxPrincipalCount   uint64 `json:"max_principal_count"`
	MinHoldingPeriod    string `json:"min_holding_period"`
	MaxTransferAmount   uint64 `json:"max_transfer_amount"`
	TransfersRestricted bool   `json:"transfers_restricted"`

	parsedHoldingPeriod time.Duration
}

func (r *ConfigRequest) Validate() error {
	if r.MaxPrincipalCount == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "max_principal_count must be positive")
	}
	if r.MinHoldingPeriod != "" {
		d, err := time.ParseDuration(r.MinHoldingPeriod)
		if err != nil || d < 0 {
			return dErrors.New(dErrors.CodeBadRequest, "min_holding_period must be a non-negative duration")
		}
		r.parsedHoldingPeriod = d
	}
	return nil
}

// ToConfig converts the validated request into a policy config.
func (r *ConfigRequest) ToConfig() policy.Config {
	return policy.Config{
		MaxPrincipalCount:   r.MaxPrincipalCount,
		MinHoldingPeriod:    r.parsedHoldingPeriod,
		MaxTransferAmount:   r.MaxTransferAmount,
		TransfersRestricted: r.TransfersRestricted,
	}
}

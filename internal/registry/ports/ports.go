// Package ports declares the collaborator interfaces the registry consumes
// from its surrounding deployment. Implementations live outside this module;
// handlers accept them, core services never call them.
package ports

import (
	"context"

	id "provena/pkg/domain"
)

// RiskLevel is a coarse, display-oriented banding of a principal's risk.
// Admission decisions use the raw numeric score, never this enum.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Valuation resolves the current total value of a registered item, in the
// smallest unit of the deployment's reporting currency.
type Valuation interface {
	CurrentValue(ctx context.Context, itemID id.ItemID) (uint64, error)
}

// Risk derives the banded risk level for a principal.
type Risk interface {
	RiskLevel(ctx context.Context, principal id.PrincipalID) (RiskLevel, error)
}

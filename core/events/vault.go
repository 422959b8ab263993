package events

import (
	"math/big"

	"meridian/core/types"
	"meridian/crypto"
)

const (
	// TypeVaultCreated marks the first deposit into a missing or dormant vault.
	TypeVaultCreated = "vault.created"
	// TypeVaultModified captures collateral or debt growth on a live vault.
	TypeVaultModified = "vault.modified"
	// TypeVaultRepaid captures debt repayment and optional collateral release.
	TypeVaultRepaid = "vault.repaid"
	// TypeVaultLiquidated records a seizure executed against an unhealthy vault.
	TypeVaultLiquidated = "vault.liquidated"
	// TypeCollateralListed announces a newly accepted collateral asset.
	TypeCollateralListed = "vault.collateralListed"
	// TypeCollateralDelisted announces removal of an asset from the registry.
	TypeCollateralDelisted = "vault.collateralDelisted"
)

// VaultCreated captures the opening balances of a freshly created vault.
type VaultCreated struct {
	Account    [20]byte
	Asset      string
	Collateral *big.Int
	Debt       *big.Int
}

// EventType satisfies the Event interface.
func (VaultCreated) EventType() string { return TypeVaultCreated }

// Event converts the structured payload into a broadcastable event.
func (e VaultCreated) Event() *types.Event {
	return &types.Event{Type: TypeVaultCreated, Attributes: map[string]string{
		"addr":       crypto.NewAddress(e.Account[:]).String(),
		"asset":      normalizeAsset(e.Asset),
		"collateral": formatAmount(e.Collateral),
		"debt":       formatAmount(e.Debt),
	}}
}

// VaultModified captures the deltas and resulting totals of a top-up.
type VaultModified struct {
	Account         [20]byte
	Asset           string
	CollateralAdded *big.Int
	DebtDrawn       *big.Int
	Collateral      *big.Int
	Debt            *big.Int
}

// EventType satisfies the Event interface.
func (VaultModified) EventType() string { return TypeVaultModified }

// Event converts the structured payload into a broadcastable event.
func (e VaultModified) Event() *types.Event {
	return &types.Event{Type: TypeVaultModified, Attributes: map[string]string{
		"addr":            crypto.NewAddress(e.Account[:]).String(),
		"asset":           normalizeAsset(e.Asset),
		"collateralAdded": formatAmount(e.CollateralAdded),
		"debtDrawn":       formatAmount(e.DebtDrawn),
		"collateral":      formatAmount(e.Collateral),
		"debt":            formatAmount(e.Debt),
	}}
}

// VaultRepaid captures a repayment, its stability fee, and any withdrawal.
type VaultRepaid struct {
	Account    [20]byte
	Asset      string
	Repaid     *big.Int
	Fee        *big.Int
	Withdrawn  *big.Int
	Collateral *big.Int
	Debt       *big.Int
}

// EventType satisfies the Event interface.
func (VaultRepaid) EventType() string { return TypeVaultRepaid }

// Event converts the structured payload into a broadcastable event.
func (e VaultRepaid) Event() *types.Event {
	attrs := map[string]string{
		"addr":       crypto.NewAddress(e.Account[:]).String(),
		"asset":      normalizeAsset(e.Asset),
		"repaid":     formatAmount(e.Repaid),
		"fee":        formatAmount(e.Fee),
		"collateral": formatAmount(e.Collateral),
		"debt":       formatAmount(e.Debt),
	}
	if e.Withdrawn != nil && e.Withdrawn.Sign() > 0 {
		attrs["withdrawn"] = formatAmount(e.Withdrawn)
	}
	return &types.Event{Type: TypeVaultRepaid, Attributes: attrs}
}

// VaultLiquidated captures the seizure executed by a liquidator.
type VaultLiquidated struct {
	Liquidator  [20]byte
	Owner       [20]byte
	Asset       string
	DebtCovered *big.Int
	Seized      *big.Int
	Collateral  *big.Int
	Debt        *big.Int
}

// EventType satisfies the Event interface.
func (VaultLiquidated) EventType() string { return TypeVaultLiquidated }

// Event converts the structured payload into a broadcastable event.
func (e VaultLiquidated) Event() *types.Event {
	return &types.Event{Type: TypeVaultLiquidated, Attributes: map[string]string{
		"liquidator":  crypto.NewAddress(e.Liquidator[:]).String(),
		"owner":       crypto.NewAddress(e.Owner[:]).String(),
		"asset":       normalizeAsset(e.Asset),
		"debtCovered": formatAmount(e.DebtCovered),
		"seized":      formatAmount(e.Seized),
		"collateral":  formatAmount(e.Collateral),
		"debt":        formatAmount(e.Debt),
	}}
}

// CollateralListed announces a registry addition.
type CollateralListed struct {
	Asset     string
	Authority [20]byte
}

// EventType satisfies the Event interface.
func (CollateralListed) EventType() string { return TypeCollateralListed }

// Event converts the structured payload into a broadcastable event.
func (e CollateralListed) Event() *types.Event {
	attrs := map[string]string{"asset": normalizeAsset(e.Asset)}
	if !zeroAddress(e.Authority) {
		attrs["authority"] = crypto.NewAddress(e.Authority[:]).String()
	}
	return &types.Event{Type: TypeCollateralListed, Attributes: attrs}
}

// CollateralDelisted announces a registry removal.
type CollateralDelisted struct {
	Asset     string
	Authority [20]byte
}

// EventType satisfies the Event interface.
func (CollateralDelisted) EventType() string { return TypeCollateralDelisted }

// Event converts the structured payload into a broadcastable event.
func (e CollateralDelisted) Event() *types.Event {
	attrs := map[string]string{"asset": normalizeAsset(e.Asset)}
	if !zeroAddress(e.Authority) {
		attrs["authority"] = crypto.NewAddress(e.Authority[:]).String()
	}
	return &types.Event{Type: TypeCollateralDelisted, Attributes: attrs}
}

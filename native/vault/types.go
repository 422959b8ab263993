package vault

import "math/big"

// Vault captures a single account's collateralized position. Amounts are
// base units of the respective assets and stay non-negative for every
// reachable state.
type Vault struct {
	// CollateralAsset is the registry symbol backing the position. A vault
	// keeps its asset for life; a dormant vault may adopt a new one.
	CollateralAsset string
	// CollateralAmount is the custody-held collateral in base units.
	CollateralAmount *big.Int
	// DebtAmount is the outstanding liability in base units.
	DebtAmount *big.Int
	// LastAccrualTime is the unix timestamp of the last stability fee
	// settlement.
	LastAccrualTime uint64
}

// Clone returns a deep copy safe to hand to callers.
func (v *Vault) Clone() *Vault {
	if v == nil {
		return nil
	}
	out := &Vault{
		CollateralAsset: v.CollateralAsset,
		LastAccrualTime: v.LastAccrualTime,
	}
	if v.CollateralAmount != nil {
		out.CollateralAmount = new(big.Int).Set(v.CollateralAmount)
	}
	if v.DebtAmount != nil {
		out.DebtAmount = new(big.Int).Set(v.DebtAmount)
	}
	return out.withDefaults()
}

// Dormant reports whether both legs of the position have reached zero.
func (v *Vault) Dormant() bool {
	if v == nil {
		return true
	}
	collateral := v.CollateralAmount == nil || v.CollateralAmount.Sign() == 0
	debt := v.DebtAmount == nil || v.DebtAmount.Sign() == 0
	return collateral && debt
}

func (v *Vault) withDefaults() *Vault {
	if v == nil {
		return nil
	}
	if v.CollateralAmount == nil {
		v.CollateralAmount = big.NewInt(0)
	}
	if v.DebtAmount == nil {
		v.DebtAmount = big.NewInt(0)
	}
	return v
}

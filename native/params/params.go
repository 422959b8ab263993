package params

import (
	"encoding/json"
	"fmt"
	"math/big"
)

const (
	// KeyVaultRisk stores the vault engine's governed risk settings.
	KeyVaultRisk = "vault.risk"
	// KeyStakingEmission stores the staking pool's emission settings.
	KeyStakingEmission = "rewards.staking"
	// KeyLPMiningEmission stores the liquidity mining pool's emission settings.
	KeyLPMiningEmission = "rewards.lpmining"
)

// Keys lists every parameter a governance proposal may target.
func Keys() []string {
	return []string{KeyVaultRisk, KeyStakingEmission, KeyLPMiningEmission}
}

// VaultRisk bundles the vault engine's governed risk settings. Ratios,
// thresholds, and penalties are whole percentages (150 means 150%); the
// stability fee is basis points of outstanding debt per year.
type VaultRisk struct {
	MinCollateralRatio   uint64 `json:"minCollateralRatio"`
	LiquidationThreshold uint64 `json:"liquidationThreshold"`
	StabilityFeeBps      uint64 `json:"stabilityFeeBps"`
	LiquidationPenalty   uint64 `json:"liquidationPenalty"`
}

// Validate enforces the internal consistency rules for a risk setting set.
func (p VaultRisk) Validate() error {
	if p.MinCollateralRatio < 100 {
		return fmt.Errorf("params: minimum collateral ratio must be at least 100%%, got %d", p.MinCollateralRatio)
	}
	if p.LiquidationThreshold < 100 {
		return fmt.Errorf("params: liquidation threshold must be at least 100%%, got %d", p.LiquidationThreshold)
	}
	if p.LiquidationThreshold >= p.MinCollateralRatio {
		return fmt.Errorf("params: liquidation threshold %d must stay below the minimum collateral ratio %d", p.LiquidationThreshold, p.MinCollateralRatio)
	}
	if p.StabilityFeeBps > 10_000 {
		return fmt.Errorf("params: stability fee %d exceeds 10000 bps", p.StabilityFeeBps)
	}
	if p.LiquidationPenalty < 100 {
		return fmt.Errorf("params: liquidation penalty must be at least 100%%, got %d", p.LiquidationPenalty)
	}
	return nil
}

// PoolEmission bundles the governed emission settings for one reward pool.
// The rate is expressed in base units of the reward asset emitted per day.
type PoolEmission struct {
	RewardRatePerDay *big.Int `json:"rewardRatePerDay"`
}

// Validate rejects missing or negative emission rates. A zero rate is legal
// and stops emission without unwinding participant stakes.
func (p PoolEmission) Validate() error {
	if p.RewardRatePerDay == nil {
		return fmt.Errorf("params: reward rate must be set")
	}
	if p.RewardRatePerDay.Sign() < 0 {
		return fmt.Errorf("params: reward rate must not be negative")
	}
	return nil
}

// ParseVaultRisk decodes and validates a JSON-encoded risk setting set.
func ParseVaultRisk(raw []byte) (VaultRisk, error) {
	var value VaultRisk
	if err := json.Unmarshal(raw, &value); err != nil {
		return VaultRisk{}, fmt.Errorf("params: decode %s: %w", KeyVaultRisk, err)
	}
	if err := value.Validate(); err != nil {
		return VaultRisk{}, err
	}
	return value, nil
}

// ParsePoolEmission decodes and validates a JSON-encoded emission setting.
func ParsePoolEmission(raw []byte) (PoolEmission, error) {
	var value PoolEmission
	if err := json.Unmarshal(raw, &value); err != nil {
		return PoolEmission{}, fmt.Errorf("params: decode emission: %w", err)
	}
	if err := value.Validate(); err != nil {
		return PoolEmission{}, err
	}
	return value, nil
}

// DecodeValue validates the raw JSON value proposed for a parameter key and
// returns its canonical encoding. Unknown keys are rejected so proposals can
// never smuggle unvetted settings into the store.
func DecodeValue(key string, raw []byte) ([]byte, error) {
	switch key {
	case KeyVaultRisk:
		value, err := ParseVaultRisk(raw)
		if err != nil {
			return nil, err
		}
		return json.Marshal(value)
	case KeyStakingEmission, KeyLPMiningEmission:
		value, err := ParsePoolEmission(raw)
		if err != nil {
			return nil, err
		}
		return json.Marshal(value)
	default:
		return nil, fmt.Errorf("params: unknown parameter %q", key)
	}
}

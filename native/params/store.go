package params

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StoreState captures the subset of state manager capabilities required by
// the parameter helpers.
type StoreState interface {
	ParamStoreSet(name string, value []byte) error
	ParamStoreGet(name string) ([]byte, bool, error)
}

// Store provides typed accessors for governance-controlled parameters.
type Store struct {
	state StoreState
}

// NewStore constructs a parameter store wrapper using the supplied state
// backend.
func NewStore(state StoreState) *Store {
	return &Store{state: state}
}

func (s *Store) withState() (StoreState, error) {
	if s == nil || s.state == nil {
		return nil, fmt.Errorf("params: state not configured")
	}
	return s.state, nil
}

// SetVaultRisk persists the vault risk settings under the canonical key.
// Values are marshalled as JSON to align with governance proposal payloads.
func (s *Store) SetVaultRisk(risk VaultRisk) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	if err := risk.Validate(); err != nil {
		return err
	}
	encoded, err := json.Marshal(risk)
	if err != nil {
		return fmt.Errorf("params: encode vault risk: %w", err)
	}
	return state.ParamStoreSet(KeyVaultRisk, encoded)
}

// VaultRisk loads the persisted vault risk settings. The boolean reports
// whether a value has been stored.
func (s *Store) VaultRisk() (VaultRisk, bool, error) {
	state, err := s.withState()
	if err != nil {
		return VaultRisk{}, false, err
	}
	raw, ok, err := state.ParamStoreGet(KeyVaultRisk)
	if err != nil {
		return VaultRisk{}, false, err
	}
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return VaultRisk{}, false, nil
	}
	var risk VaultRisk
	if err := json.Unmarshal(raw, &risk); err != nil {
		return VaultRisk{}, false, fmt.Errorf("params: decode vault risk: %w", err)
	}
	return risk, true, nil
}

// SetEmission persists the emission settings for the pool parameter key.
func (s *Store) SetEmission(key string, emission PoolEmission) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	if key != KeyStakingEmission && key != KeyLPMiningEmission {
		return fmt.Errorf("params: unknown emission parameter %q", key)
	}
	if err := emission.Validate(); err != nil {
		return err
	}
	encoded, err := json.Marshal(emission)
	if err != nil {
		return fmt.Errorf("params: encode emission: %w", err)
	}
	return state.ParamStoreSet(key, encoded)
}

// Emission loads the persisted emission settings for the pool parameter
// key. The boolean reports whether a value has been stored.
func (s *Store) Emission(key string) (PoolEmission, bool, error) {
	state, err := s.withState()
	if err != nil {
		return PoolEmission{}, false, err
	}
	if key != KeyStakingEmission && key != KeyLPMiningEmission {
		return PoolEmission{}, false, fmt.Errorf("params: unknown emission parameter %q", key)
	}
	raw, ok, err := state.ParamStoreGet(key)
	if err != nil {
		return PoolEmission{}, false, err
	}
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return PoolEmission{}, false, nil
	}
	var emission PoolEmission
	if err := json.Unmarshal(raw, &emission); err != nil {
		return PoolEmission{}, false, fmt.Errorf("params: decode emission: %w", err)
	}
	return emission, true, nil
}

package state

import (
	"fmt"
	"sort"

	"meridian/native/vault"
)

// VaultGet loads the vault row for an account. Missing rows return nil
// without an error; the engine reads that as "no vault yet".
func (m *Manager) VaultGet(addr []byte) (*vault.Vault, error) {
	if len(addr) == 0 {
		return nil, fmt.Errorf("state: vault address must not be empty")
	}
	row := new(vault.Vault)
	ok, err := m.KVGet(VaultKey(addr), row)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return row.Clone(), nil
}

// VaultPut persists the vault row, overwriting any previous version.
func (m *Manager) VaultPut(addr []byte, row *vault.Vault) error {
	if len(addr) == 0 {
		return fmt.Errorf("state: vault address must not be empty")
	}
	if row == nil {
		return fmt.Errorf("state: vault row must not be nil")
	}
	return m.KVPut(VaultKey(addr), row.Clone())
}

// VaultCollateralAssets returns the collateral registry in sorted order.
func (m *Manager) VaultCollateralAssets() ([]string, error) {
	var list []string
	if err := m.KVGetList(CollateralRegistryKey(), &list); err != nil {
		return nil, err
	}
	return list, nil
}

// VaultCollateralSupported reports whether the symbol is registered as an
// accepted collateral asset.
func (m *Manager) VaultCollateralSupported(symbol string) (bool, error) {
	normalized := normalizeSymbol(symbol)
	list, err := m.VaultCollateralAssets()
	if err != nil {
		return false, err
	}
	for _, existing := range list {
		if existing == normalized {
			return true, nil
		}
	}
	return false, nil
}

// VaultAddCollateralAsset adds the symbol to the collateral registry. Adding
// an asset twice is a no-op.
func (m *Manager) VaultAddCollateralAsset(symbol string) error {
	normalized := normalizeSymbol(symbol)
	if normalized == "" {
		return fmt.Errorf("state: collateral symbol must not be empty")
	}
	list, err := m.VaultCollateralAssets()
	if err != nil {
		return err
	}
	for _, existing := range list {
		if existing == normalized {
			return nil
		}
	}
	list = append(list, normalized)
	sort.Strings(list)
	return m.KVPut(CollateralRegistryKey(), list)
}

// VaultRemoveCollateralAsset drops the symbol from the collateral registry.
// Existing vaults keep their asset; only new positions are gated.
func (m *Manager) VaultRemoveCollateralAsset(symbol string) error {
	normalized := normalizeSymbol(symbol)
	list, err := m.VaultCollateralAssets()
	if err != nil {
		return err
	}
	filtered := make([]string, 0, len(list))
	for _, existing := range list {
		if existing != normalized {
			filtered = append(filtered, existing)
		}
	}
	return m.KVPut(CollateralRegistryKey(), filtered)
}

package state

import (
	"fmt"

	"meridian/core/types"
)

// GetAccount loads the account metadata row. Addresses that never
// transacted come back as the zero account rather than an error.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	if len(addr) == 0 {
		return nil, fmt.Errorf("address must not be empty")
	}
	account := new(types.Account)
	if _, err := m.KVGet(AccountKey(addr), account); err != nil {
		return nil, err
	}
	return account, nil
}

// PutAccount persists the account metadata row under the supplied address.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if len(addr) == 0 {
		return fmt.Errorf("address must not be empty")
	}
	if account == nil {
		return fmt.Errorf("nil account")
	}
	return m.KVPut(AccountKey(addr), account)
}

// BumpNonce increments the stored nonce for the address and returns the new
// value.
func (m *Manager) BumpNonce(addr []byte) (uint64, error) {
	account, err := m.GetAccount(addr)
	if err != nil {
		return 0, err
	}
	account.Nonce++
	if err := m.PutAccount(addr, account); err != nil {
		return 0, err
	}
	return account.Nonce, nil
}

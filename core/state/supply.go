package state

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// TotalSupply returns the persisted total supply for the provided token.
// Missing entries default to zero.
func (m *Manager) TotalSupply(symbol string) (*big.Int, error) {
	normalized := normalizeSymbol(symbol)
	if normalized == "" {
		return nil, fmt.Errorf("token symbol required")
	}
	data, err := m.trie.Get(supplyKey(normalized))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return big.NewInt(0), nil
	}
	total := new(big.Int)
	if err := rlp.DecodeBytes(data, total); err != nil {
		return nil, err
	}
	return total, nil
}

func (m *Manager) writeSupply(meta *TokenMetadata, total *big.Int) error {
	if _, overflow := uint256.FromBig(total); overflow {
		return fmt.Errorf("state: total supply for %s overflows 256 bits", meta.Symbol)
	}
	encoded, err := rlp.EncodeToBytes(total)
	if err != nil {
		return err
	}
	if err := m.trie.Update(supplyKey(meta.Symbol), encoded); err != nil {
		return err
	}
	if meta.Checkpointed {
		return m.appendCheckpoint(SupplyCheckpointKey(meta.Symbol), total)
	}
	return nil
}

// adjustSupply moves total supply by delta, which may be negative for burns,
// and returns the updated total. Supply can never go below zero because burns
// are bounded by balances, so an underflow here signals corrupted state.
func (m *Manager) adjustSupply(meta *TokenMetadata, delta *big.Int) (*big.Int, error) {
	current, err := m.TotalSupply(meta.Symbol)
	if err != nil {
		return nil, err
	}
	updated := new(big.Int).Add(current, delta)
	if updated.Sign() < 0 {
		return nil, fmt.Errorf("state: supply underflow for %s", meta.Symbol)
	}
	if err := m.writeSupply(meta, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

package state

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
)

// checkpoint records the value a balance or supply row held from Time
// onwards. Histories are append-only and sorted by Time, so lookups can
// binary search.
type checkpoint struct {
	Time  uint64
	Value *big.Int
}

func (m *Manager) appendCheckpoint(key []byte, value *big.Int) error {
	hashed := kvKey(key)
	data, err := m.trie.Get(hashed)
	if err != nil {
		return err
	}
	var history []checkpoint
	if len(data) > 0 {
		if err := rlp.DecodeBytes(data, &history); err != nil {
			return err
		}
	}
	stamp := m.now()
	// Several writes within the same second collapse into one entry. That
	// keeps Time strictly increasing across the history.
	if n := len(history); n > 0 && stamp <= history[n-1].Time {
		history[n-1].Value = new(big.Int).Set(value)
	} else {
		history = append(history, checkpoint{Time: stamp, Value: new(big.Int).Set(value)})
	}
	encoded, err := rlp.EncodeToBytes(history)
	if err != nil {
		return err
	}
	return m.trie.Update(hashed, encoded)
}

func (m *Manager) checkpointAt(key []byte, at uint64) (*big.Int, error) {
	data, err := m.trie.Get(kvKey(key))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return big.NewInt(0), nil
	}
	var history []checkpoint
	if err := rlp.DecodeBytes(data, &history); err != nil {
		return nil, err
	}
	idx := sort.Search(len(history), func(i int) bool {
		return history[i].Time > at
	})
	if idx == 0 {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(history[idx-1].Value), nil
}

// BalanceAt returns the balance the account held at the given unix time.
// Tokens without history answer with the live balance.
func (m *Manager) BalanceAt(symbol string, addr []byte, at uint64) (*big.Int, error) {
	meta, err := m.requireToken(symbol)
	if err != nil {
		return nil, err
	}
	if !meta.Checkpointed {
		return m.readBalance(meta.Symbol, addr)
	}
	return m.checkpointAt(BalanceCheckpointKey(meta.Symbol, addr), at)
}

// TotalSupplyAt returns the token's total supply at the given unix time.
// Tokens without history answer with the live supply.
func (m *Manager) TotalSupplyAt(symbol string, at uint64) (*big.Int, error) {
	meta, err := m.requireToken(symbol)
	if err != nil {
		return nil, err
	}
	if !meta.Checkpointed {
		return m.TotalSupply(meta.Symbol)
	}
	return m.checkpointAt(SupplyCheckpointKey(meta.Symbol), at)
}

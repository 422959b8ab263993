package state

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"strings"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"meridian/core/events"
	"meridian/storage/trie"
)

// Manager is the single writer for ledger state. It owns the token registry,
// per-token balances, role assignments, and the generic key/value layer the
// module adapters build on. Engines never see the Manager directly; each
// declares the narrow interface it needs and the Manager satisfies it.
type Manager struct {
	trie    *trie.Trie
	nowFn   func() time.Time
	emitter events.Emitter
}

// NewManager creates a state manager operating on the provided trie.
func NewManager(tr *trie.Trie) *Manager {
	return &Manager{trie: tr, nowFn: time.Now, emitter: events.NoopEmitter{}}
}

// SetEmitter wires the sink receiving supply change events. Nil restores the
// discard default.
func (m *Manager) SetEmitter(emitter events.Emitter) {
	if m == nil {
		return
	}
	if emitter == nil {
		m.emitter = events.NoopEmitter{}
		return
	}
	m.emitter = emitter
}

// SetNowFunc overrides the clock used to stamp balance and supply
// checkpoints. Nil arguments leave the current clock in place.
func (m *Manager) SetNowFunc(now func() time.Time) {
	if m == nil || now == nil {
		return
	}
	m.nowFn = now
}

func (m *Manager) now() uint64 {
	if m == nil || m.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	return uint64(m.nowFn().Unix())
}

var (
	// ErrUnknownToken is returned when an operation references a token symbol
	// that was never registered.
	ErrUnknownToken = errors.New("state: token not registered")
	// ErrInsufficientBalance is returned when a transfer or burn exceeds the
	// source account balance.
	ErrInsufficientBalance = errors.New("state: insufficient balance")
	// ErrNotMintAuthority is returned when the caller of Mint or Burn does not
	// match the token's configured authority.
	ErrNotMintAuthority = errors.New("state: caller is not the mint authority")
	// ErrMintPaused is returned when minting is administratively halted for a
	// token.
	ErrMintPaused = errors.New("state: minting paused")
)

// TokenMetadata describes a registered native token. Checkpointed tokens keep
// an append-only history of balances and total supply so past values stay
// queryable.
type TokenMetadata struct {
	Symbol        string
	Name          string
	Decimals      uint8
	MintAuthority []byte
	MintPaused    bool
	Checkpointed  bool
}

var (
	tokenPrefix  = []byte("token:")
	tokenListKey = ethcrypto.Keccak256([]byte("token-list"))
	supplyPrefix = []byte("token/supply:")
	balPrefix    = []byte("balance:")
	rolePrefix   = []byte("role:")
)

func tokenMetadataKey(symbol string) []byte {
	buf := make([]byte, len(tokenPrefix)+len(symbol))
	copy(buf, tokenPrefix)
	copy(buf[len(tokenPrefix):], symbol)
	return ethcrypto.Keccak256(buf)
}

func supplyKey(symbol string) []byte {
	buf := make([]byte, len(supplyPrefix)+len(symbol))
	copy(buf, supplyPrefix)
	copy(buf[len(supplyPrefix):], symbol)
	return ethcrypto.Keccak256(buf)
}

func balanceKey(symbol string, addr []byte) []byte {
	buf := make([]byte, len(balPrefix)+len(symbol)+1+len(addr))
	copy(buf, balPrefix)
	copy(buf[len(balPrefix):], symbol)
	buf[len(balPrefix)+len(symbol)] = ':'
	copy(buf[len(balPrefix)+len(symbol)+1:], addr)
	return ethcrypto.Keccak256(buf)
}

func roleKey(role string) []byte {
	buf := make([]byte, len(rolePrefix)+len(role))
	copy(buf, rolePrefix)
	copy(buf[len(rolePrefix):], role)
	return ethcrypto.Keccak256(buf)
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func (m *Manager) loadTokenList() ([]string, error) {
	data, err := m.trie.Get(tokenListKey)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []string{}, nil
	}
	var list []string
	if err := rlp.DecodeBytes(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (m *Manager) writeTokenList(list []string) error {
	encoded, err := rlp.EncodeToBytes(list)
	if err != nil {
		return err
	}
	return m.trie.Update(tokenListKey, encoded)
}

func (m *Manager) loadTokenMetadata(symbol string) (*TokenMetadata, error) {
	data, err := m.trie.Get(tokenMetadataKey(symbol))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	meta := new(TokenMetadata)
	if err := rlp.DecodeBytes(data, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (m *Manager) writeTokenMetadata(symbol string, meta *TokenMetadata) error {
	encoded, err := rlp.EncodeToBytes(meta)
	if err != nil {
		return err
	}
	return m.trie.Update(tokenMetadataKey(symbol), encoded)
}

func (m *Manager) requireToken(symbol string) (*TokenMetadata, error) {
	normalized := normalizeSymbol(symbol)
	meta, err := m.loadTokenMetadata(normalized)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, normalized)
	}
	return meta, nil
}

// RegisterToken stores the metadata for a native token and records it in the
// token index.
func (m *Manager) RegisterToken(symbol, name string, decimals uint8) error {
	normalized := normalizeSymbol(symbol)
	if normalized == "" {
		return fmt.Errorf("token symbol must not be empty")
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("token %s: name must not be empty", normalized)
	}
	if existing, err := m.loadTokenMetadata(normalized); err != nil {
		return err
	} else if existing != nil {
		return fmt.Errorf("token %s already registered", normalized)
	}

	list, err := m.loadTokenList()
	if err != nil {
		return err
	}
	list = append(list, normalized)
	sort.Strings(list)
	if err := m.writeTokenList(list); err != nil {
		return err
	}

	meta := &TokenMetadata{
		Symbol:   normalized,
		Name:     name,
		Decimals: decimals,
	}
	return m.writeTokenMetadata(normalized, meta)
}

// SetTokenMintAuthority configures the mint authority for the given token.
func (m *Manager) SetTokenMintAuthority(symbol string, authority []byte) error {
	meta, err := m.requireToken(symbol)
	if err != nil {
		return err
	}
	meta.MintAuthority = append([]byte(nil), authority...)
	return m.writeTokenMetadata(meta.Symbol, meta)
}

// SetTokenMintPaused stores the paused state for the given token.
func (m *Manager) SetTokenMintPaused(symbol string, paused bool) error {
	meta, err := m.requireToken(symbol)
	if err != nil {
		return err
	}
	meta.MintPaused = paused
	return m.writeTokenMetadata(meta.Symbol, meta)
}

// SetTokenCheckpointed enables or disables balance history for the given
// token. Enabling only affects writes that happen afterwards; earlier
// balances have no recorded history.
func (m *Manager) SetTokenCheckpointed(symbol string, checkpointed bool) error {
	meta, err := m.requireToken(symbol)
	if err != nil {
		return err
	}
	meta.Checkpointed = checkpointed
	return m.writeTokenMetadata(meta.Symbol, meta)
}

// Token retrieves metadata for a registered token.
func (m *Manager) Token(symbol string) (*TokenMetadata, error) {
	return m.loadTokenMetadata(normalizeSymbol(symbol))
}

// TokenList returns all registered token symbols in sorted order.
func (m *Manager) TokenList() ([]string, error) {
	return m.loadTokenList()
}

// TokenExists reports whether the provided token symbol is registered.
func (m *Manager) TokenExists(symbol string) bool {
	normalized := normalizeSymbol(symbol)
	if normalized == "" {
		return false
	}
	meta, err := m.loadTokenMetadata(normalized)
	if err != nil || meta == nil {
		return false
	}
	return true
}

func (m *Manager) readBalance(symbol string, addr []byte) (*big.Int, error) {
	data, err := m.trie.Get(balanceKey(symbol, addr))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return big.NewInt(0), nil
	}
	amount := new(big.Int)
	if err := rlp.DecodeBytes(data, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

func (m *Manager) writeBalance(meta *TokenMetadata, addr []byte, amount *big.Int) error {
	if _, overflow := uint256.FromBig(amount); overflow {
		return fmt.Errorf("state: balance for %s overflows 256 bits", meta.Symbol)
	}
	encoded, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return err
	}
	if err := m.trie.Update(balanceKey(meta.Symbol, addr), encoded); err != nil {
		return err
	}
	if meta.Checkpointed {
		return m.appendCheckpoint(BalanceCheckpointKey(meta.Symbol, addr), amount)
	}
	return nil
}

// Balance retrieves a token balance for the provided account. Accounts with
// no stored row hold zero.
func (m *Manager) Balance(symbol string, addr []byte) (*big.Int, error) {
	return m.readBalance(normalizeSymbol(symbol), addr)
}

// Transfer moves amount between two accounts. The source row is written
// before the destination is read so transfers to self settle cleanly.
func (m *Manager) Transfer(from, to []byte, symbol string, amount *big.Int) error {
	if len(from) == 0 || len(to) == 0 {
		return fmt.Errorf("state: transfer requires sender and recipient")
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: transfer amount must not be negative")
	}
	meta, err := m.requireToken(symbol)
	if err != nil {
		return err
	}
	fromBal, err := m.readBalance(meta.Symbol, from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s", ErrInsufficientBalance, meta.Symbol)
	}
	if err := m.writeBalance(meta, from, new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	toBal, err := m.readBalance(meta.Symbol, to)
	if err != nil {
		return err
	}
	return m.writeBalance(meta, to, new(big.Int).Add(toBal, amount))
}

// Mint credits freshly issued tokens to the recipient and grows total supply.
// Only the configured mint authority may call it.
func (m *Manager) Mint(authority, to []byte, symbol string, amount *big.Int) error {
	if len(to) == 0 {
		return fmt.Errorf("state: mint recipient must not be empty")
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: mint amount must not be negative")
	}
	meta, err := m.requireToken(symbol)
	if err != nil {
		return err
	}
	if meta.MintPaused {
		return fmt.Errorf("%w: %s", ErrMintPaused, meta.Symbol)
	}
	if len(meta.MintAuthority) == 0 || !bytes.Equal(meta.MintAuthority, authority) {
		return fmt.Errorf("%w: %s", ErrNotMintAuthority, meta.Symbol)
	}
	bal, err := m.readBalance(meta.Symbol, to)
	if err != nil {
		return err
	}
	if err := m.writeBalance(meta, to, new(big.Int).Add(bal, amount)); err != nil {
		return err
	}
	total, err := m.adjustSupply(meta, amount)
	if err != nil {
		return err
	}
	m.emitter.Emit(events.TokenSupply{
		Token:  meta.Symbol,
		Total:  total,
		Delta:  new(big.Int).Set(amount),
		Reason: events.SupplyReasonMint,
	})
	return nil
}

// Burn destroys tokens held by the source account and shrinks total supply.
// The mint authority gates burns as well, but a mint pause does not block
// them so debt repayment keeps working during an issuance halt.
func (m *Manager) Burn(authority, from []byte, symbol string, amount *big.Int) error {
	if len(from) == 0 {
		return fmt.Errorf("state: burn source must not be empty")
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: burn amount must not be negative")
	}
	meta, err := m.requireToken(symbol)
	if err != nil {
		return err
	}
	if len(meta.MintAuthority) == 0 || !bytes.Equal(meta.MintAuthority, authority) {
		return fmt.Errorf("%w: %s", ErrNotMintAuthority, meta.Symbol)
	}
	bal, err := m.readBalance(meta.Symbol, from)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s", ErrInsufficientBalance, meta.Symbol)
	}
	if err := m.writeBalance(meta, from, new(big.Int).Sub(bal, amount)); err != nil {
		return err
	}
	total, err := m.adjustSupply(meta, new(big.Int).Neg(amount))
	if err != nil {
		return err
	}
	m.emitter.Emit(events.TokenSupply{
		Token:  meta.Symbol,
		Total:  total,
		Delta:  new(big.Int).Neg(amount),
		Reason: events.SupplyReasonBurn,
	})
	return nil
}

// SetRole associates an address with the specified role. Duplicate assignments
// are ignored while the stored list remains sorted for determinism.
func (m *Manager) SetRole(role string, addr []byte) error {
	trimmed := strings.TrimSpace(role)
	if trimmed == "" {
		return fmt.Errorf("role must not be empty")
	}
	if len(addr) == 0 {
		return fmt.Errorf("address must not be empty")
	}
	key := roleKey(trimmed)
	data, err := m.trie.Get(key)
	if err != nil {
		return err
	}
	var members [][]byte
	if len(data) > 0 {
		if err := rlp.DecodeBytes(data, &members); err != nil {
			return err
		}
	}
	for _, existing := range members {
		if bytes.Equal(existing, addr) {
			return nil
		}
	}
	members = append(members, append([]byte(nil), addr...))
	sort.Slice(members, func(i, j int) bool {
		return hex.EncodeToString(members[i]) < hex.EncodeToString(members[j])
	})
	encoded, err := rlp.EncodeToBytes(members)
	if err != nil {
		return err
	}
	return m.trie.Update(key, encoded)
}

// RoleMembers returns all addresses assigned to the provided role.
func (m *Manager) RoleMembers(role string) ([][]byte, error) {
	data, err := m.trie.Get(roleKey(strings.TrimSpace(role)))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return [][]byte{}, nil
	}
	var members [][]byte
	if err := rlp.DecodeBytes(data, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// HasRole reports whether the provided address is associated with the
// specified role. Errors while reading the underlying state result in a false
// return, matching the best-effort semantics required by the callers.
func (m *Manager) HasRole(role string, addr []byte) bool {
	if len(addr) == 0 {
		return false
	}
	data, err := m.trie.Get(roleKey(strings.TrimSpace(role)))
	if err != nil || len(data) == 0 {
		return false
	}
	var members [][]byte
	if err := rlp.DecodeBytes(data, &members); err != nil {
		return false
	}
	for _, member := range members {
		if bytes.Equal(member, addr) {
			return true
		}
	}
	return false
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is hashed with keccak256 before it reaches the trie.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.trie.Update(kvKey(key), encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.trie.Get(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVAppend appends the provided value to the RLP-encoded byte slice list stored
// under the supplied key. Duplicate values are ignored to keep the index
// deterministic.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	hashed := kvKey(key)
	data, err := m.trie.Get(hashed)
	if err != nil {
		return err
	}
	var list [][]byte
	if len(data) > 0 {
		if err := rlp.DecodeBytes(data, &list); err != nil {
			return err
		}
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	encoded, err := rlp.EncodeToBytes(list)
	if err != nil {
		return err
	}
	return m.trie.Update(hashed, encoded)
}

// KVGetList retrieves an RLP-encoded slice stored under the provided key and
// decodes it into the supplied destination slice pointer. When no value is
// present the destination is initialised with an empty slice to avoid nil
// surprises for callers.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	hashed := kvKey(key)
	data, err := m.trie.Get(hashed)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		val := reflect.ValueOf(out)
		if val.Kind() != reflect.Ptr || val.IsNil() {
			return fmt.Errorf("kv: destination must be a non-nil pointer")
		}
		elem := val.Elem()
		if elem.Kind() != reflect.Slice {
			return fmt.Errorf("kv: destination must point to a slice")
		}
		elem.Set(reflect.MakeSlice(elem.Type(), 0, 0))
		return nil
	}
	return rlp.DecodeBytes(data, out)
}

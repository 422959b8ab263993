package state

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"meridian/core/events"
	"meridian/storage"
	"meridian/storage/trie"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(func() { db.Close() })
	tr, err := trie.NewTrie(db, nil)
	if err != nil {
		t.Fatalf("new trie: %v", err)
	}
	return NewManager(tr)
}

func testAddr(b byte) []byte {
	return bytes.Repeat([]byte{b}, 20)
}

func TestLedgerNamespaces(t *testing.T) {
	if got := string(VaultKey([]byte{0x01, 0x02})); got != "vault:0102" {
		t.Fatalf("unexpected vault key: %s", got)
	}
	if got := string(CollateralRegistryKey()); got != "vault/collateral-list" {
		t.Fatalf("unexpected registry key: %s", got)
	}
	if got := string(RewardPoolKey(" Staking ")); got != "rewardpool:staking" {
		t.Fatalf("unexpected pool key: %s", got)
	}
	if got := string(RewardParticipantKey("staking", []byte{0xaa})); got != "rewardpool:staking:member:aa" {
		t.Fatalf("unexpected participant key: %s", got)
	}
	if got := string(GovernanceProposalKey(42)); got != "gov/proposal/42" {
		t.Fatalf("unexpected proposal key: %s", got)
	}
	if got := string(GovernanceVoteKey(42, []byte{0x01, 0x02, 0x03})); got != "gov/vote/42/010203" {
		t.Fatalf("unexpected vote key: %s", got)
	}
	if got := string(GovernanceVoterIndexKey(42)); got != "gov/vote/42/index" {
		t.Fatalf("unexpected voter index key: %s", got)
	}
	if got := string(GovernanceSequenceKey()); got != "gov/seq" {
		t.Fatalf("unexpected sequence key: %s", got)
	}
	if got := string(ParamStoreKey("vault.risk")); got != "params/vault.risk" {
		t.Fatalf("unexpected param key: %s", got)
	}
	if got := string(BalanceCheckpointKey("mdn", []byte{0xbb})); got != "chk:MDN:bb" {
		t.Fatalf("unexpected checkpoint key: %s", got)
	}
	if got := string(SupplyCheckpointKey("mdn")); got != "chk:MDN:supply" {
		t.Fatalf("unexpected supply checkpoint key: %s", got)
	}
}

func TestRegisterTokenNormalizesSymbols(t *testing.T) {
	mgr := newTestManager(t)

	if err := mgr.RegisterToken(" musd ", "Meridian USD", 18); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := mgr.RegisterToken("MUSD", "Meridian USD", 18); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if err := mgr.RegisterToken("mdn", "Meridian", 18); err != nil {
		t.Fatalf("register second token: %v", err)
	}

	meta, err := mgr.Token("musd")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if meta == nil || meta.Symbol != "MUSD" || meta.Decimals != 18 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}

	list, err := mgr.TokenList()
	if err != nil {
		t.Fatalf("token list: %v", err)
	}
	if len(list) != 2 || list[0] != "MDN" || list[1] != "MUSD" {
		t.Fatalf("unexpected token list: %v", list)
	}
	if !mgr.TokenExists("musd") {
		t.Fatalf("registered token reported missing")
	}
	if mgr.TokenExists("MDNLP") {
		t.Fatalf("unregistered token reported present")
	}
}

func TestMintRequiresAuthority(t *testing.T) {
	mgr := newTestManager(t)
	authority := testAddr(0xAA)
	user := testAddr(0x01)

	if err := mgr.RegisterToken("MUSD", "Meridian USD", 18); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := mgr.Mint(authority, user, "MUSD", big.NewInt(100)); !errors.Is(err, ErrNotMintAuthority) {
		t.Fatalf("expected authority error before configuration, got %v", err)
	}
	if err := mgr.SetTokenMintAuthority("MUSD", authority); err != nil {
		t.Fatalf("set authority: %v", err)
	}
	if err := mgr.Mint(authority, user, "MUSD", big.NewInt(500)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := mgr.Mint(testAddr(0xBB), user, "MUSD", big.NewInt(1)); !errors.Is(err, ErrNotMintAuthority) {
		t.Fatalf("expected authority error for imposter, got %v", err)
	}

	bal, err := mgr.Balance("MUSD", user)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("unexpected balance: %s", bal)
	}
	supply, err := mgr.TotalSupply("MUSD")
	if err != nil {
		t.Fatalf("supply: %v", err)
	}
	if supply.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("unexpected supply: %s", supply)
	}
}

func TestMintPauseBlocksIssuanceNotBurns(t *testing.T) {
	mgr := newTestManager(t)
	authority := testAddr(0xAA)
	user := testAddr(0x01)

	if err := mgr.RegisterToken("MUSD", "Meridian USD", 18); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := mgr.SetTokenMintAuthority("MUSD", authority); err != nil {
		t.Fatalf("set authority: %v", err)
	}
	if err := mgr.Mint(authority, user, "MUSD", big.NewInt(500)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := mgr.SetTokenMintPaused("MUSD", true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := mgr.Mint(authority, user, "MUSD", big.NewInt(1)); !errors.Is(err, ErrMintPaused) {
		t.Fatalf("expected pause error, got %v", err)
	}
	if err := mgr.Burn(authority, user, "MUSD", big.NewInt(200)); err != nil {
		t.Fatalf("burn during pause: %v", err)
	}

	bal, err := mgr.Balance("MUSD", user)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("unexpected balance after burn: %s", bal)
	}
	supply, err := mgr.TotalSupply("MUSD")
	if err != nil {
		t.Fatalf("supply: %v", err)
	}
	if supply.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("unexpected supply after burn: %s", supply)
	}

	if err := mgr.SetTokenMintPaused("MUSD", false); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if err := mgr.Mint(authority, user, "MUSD", big.NewInt(1)); err != nil {
		t.Fatalf("mint after unpause: %v", err)
	}
}

func TestBurnBoundedByBalance(t *testing.T) {
	mgr := newTestManager(t)
	authority := testAddr(0xAA)
	user := testAddr(0x01)

	if err := mgr.RegisterToken("MUSD", "Meridian USD", 18); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := mgr.SetTokenMintAuthority("MUSD", authority); err != nil {
		t.Fatalf("set authority: %v", err)
	}
	if err := mgr.Mint(authority, user, "MUSD", big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := mgr.Burn(authority, user, "MUSD", big.NewInt(150)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if err := mgr.Burn(testAddr(0xBB), user, "MUSD", big.NewInt(10)); !errors.Is(err, ErrNotMintAuthority) {
		t.Fatalf("expected authority error, got %v", err)
	}
}

func TestTransferMovesBalances(t *testing.T) {
	mgr := newTestManager(t)
	authority := testAddr(0xAA)
	alice := testAddr(0x01)
	bob := testAddr(0x02)

	if err := mgr.RegisterToken("MUSD", "Meridian USD", 18); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := mgr.SetTokenMintAuthority("MUSD", authority); err != nil {
		t.Fatalf("set authority: %v", err)
	}
	if err := mgr.Mint(authority, alice, "MUSD", big.NewInt(1000)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := mgr.Transfer(alice, bob, "MUSD", big.NewInt(400)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	aliceBal, err := mgr.Balance("MUSD", alice)
	if err != nil {
		t.Fatalf("alice balance: %v", err)
	}
	if aliceBal.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("unexpected alice balance: %s", aliceBal)
	}
	bobBal, err := mgr.Balance("MUSD", bob)
	if err != nil {
		t.Fatalf("bob balance: %v", err)
	}
	if bobBal.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("unexpected bob balance: %s", bobBal)
	}

	if err := mgr.Transfer(alice, bob, "MUSD", big.NewInt(700)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if err := mgr.Transfer(alice, bob, "MDNLP", big.NewInt(1)); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected unknown token, got %v", err)
	}

	// Transfers to self settle without changing the balance.
	if err := mgr.Transfer(alice, alice, "MUSD", big.NewInt(250)); err != nil {
		t.Fatalf("self transfer: %v", err)
	}
	aliceBal, err = mgr.Balance("MUSD", alice)
	if err != nil {
		t.Fatalf("alice balance reload: %v", err)
	}
	if aliceBal.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("self transfer changed balance: %s", aliceBal)
	}

	supply, err := mgr.TotalSupply("MUSD")
	if err != nil {
		t.Fatalf("supply: %v", err)
	}
	if supply.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("transfers must not move supply: %s", supply)
	}
}

func TestSupplyChangesEmitEvents(t *testing.T) {
	mgr := newTestManager(t)
	collector := &events.Collector{}
	mgr.SetEmitter(collector)
	authority := testAddr(0xAA)
	user := testAddr(0x01)

	if err := mgr.RegisterToken("MUSD", "Meridian USD", 18); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := mgr.SetTokenMintAuthority("MUSD", authority); err != nil {
		t.Fatalf("set authority: %v", err)
	}
	if err := mgr.Mint(authority, user, "MUSD", big.NewInt(500)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := mgr.Burn(authority, user, "MUSD", big.NewInt(200)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	// Transfers shuffle balances without touching supply, so no event.
	if err := mgr.Transfer(user, authority, "MUSD", big.NewInt(50)); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	drained := collector.Drain()
	if len(drained) != 2 {
		t.Fatalf("expected mint and burn events, got %d", len(drained))
	}
	minted, ok := drained[0].(events.TokenSupply)
	if !ok || minted.Reason != events.SupplyReasonMint {
		t.Fatalf("unexpected first event: %#v", drained[0])
	}
	if minted.Total.Cmp(big.NewInt(500)) != 0 || minted.Delta.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("unexpected mint amounts: total=%s delta=%s", minted.Total, minted.Delta)
	}
	burned, ok := drained[1].(events.TokenSupply)
	if !ok || burned.Reason != events.SupplyReasonBurn {
		t.Fatalf("unexpected second event: %#v", drained[1])
	}
	if burned.Total.Cmp(big.NewInt(300)) != 0 || burned.Delta.Cmp(big.NewInt(-200)) != 0 {
		t.Fatalf("unexpected burn amounts: total=%s delta=%s", burned.Total, burned.Delta)
	}

	// Failed mints stage nothing.
	if err := mgr.Mint(testAddr(0xBB), user, "MUSD", big.NewInt(1)); !errors.Is(err, ErrNotMintAuthority) {
		t.Fatalf("expected authority error, got %v", err)
	}
	if collector.Len() != 0 {
		t.Fatalf("failed mint staged %d events", collector.Len())
	}
}

func TestMintRejectsOversizedAmounts(t *testing.T) {
	mgr := newTestManager(t)
	authority := testAddr(0xAA)
	user := testAddr(0x01)

	if err := mgr.RegisterToken("MUSD", "Meridian USD", 18); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := mgr.SetTokenMintAuthority("MUSD", authority); err != nil {
		t.Fatalf("set authority: %v", err)
	}
	huge := new(big.Int).Lsh(big.NewInt(1), 256)
	if err := mgr.Mint(authority, user, "MUSD", huge); err == nil {
		t.Fatalf("expected 256-bit overflow rejection")
	}
	if err := mgr.Mint(authority, user, "MUSD", big.NewInt(-1)); err == nil {
		t.Fatalf("expected negative amount rejection")
	}
}

func TestRoleAssignments(t *testing.T) {
	mgr := newTestManager(t)
	admin := testAddr(0x0B)
	second := testAddr(0x0A)

	if mgr.HasRole("ROLE_COLLATERAL_ADMIN", admin) {
		t.Fatalf("role reported before assignment")
	}
	if err := mgr.SetRole("ROLE_COLLATERAL_ADMIN", admin); err != nil {
		t.Fatalf("set role: %v", err)
	}
	if err := mgr.SetRole("ROLE_COLLATERAL_ADMIN", admin); err != nil {
		t.Fatalf("repeat assignment: %v", err)
	}
	if err := mgr.SetRole("ROLE_COLLATERAL_ADMIN", second); err != nil {
		t.Fatalf("second assignment: %v", err)
	}

	members, err := mgr.RoleMembers("ROLE_COLLATERAL_ADMIN")
	if err != nil {
		t.Fatalf("role members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("unexpected member count: %d", len(members))
	}
	if !bytes.Equal(members[0], second) || !bytes.Equal(members[1], admin) {
		t.Fatalf("members not sorted: %x, %x", members[0], members[1])
	}
	if !mgr.HasRole("ROLE_COLLATERAL_ADMIN", admin) {
		t.Fatalf("assigned member missing role")
	}
	if mgr.HasRole("ROLE_COLLATERAL_ADMIN", testAddr(0x0C)) {
		t.Fatalf("unassigned member granted role")
	}
	if mgr.HasRole("ROLE_COLLATERAL_ADMIN", nil) {
		t.Fatalf("empty address granted role")
	}
}

func TestKVListHelpers(t *testing.T) {
	mgr := newTestManager(t)
	key := []byte("test/index")

	var empty [][]byte
	if err := mgr.KVGetList(key, &empty); err != nil {
		t.Fatalf("get missing list: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected initialised empty list, got %v", empty)
	}

	if err := mgr.KVAppend(key, []byte{0x01}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := mgr.KVAppend(key, []byte{0x02}); err != nil {
		t.Fatalf("append second: %v", err)
	}
	if err := mgr.KVAppend(key, []byte{0x01}); err != nil {
		t.Fatalf("append duplicate: %v", err)
	}

	var list [][]byte
	if err := mgr.KVGetList(key, &list); err != nil {
		t.Fatalf("get list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected deduplicated list, got %v", list)
	}
	if !bytes.Equal(list[0], []byte{0x01}) || !bytes.Equal(list[1], []byte{0x02}) {
		t.Fatalf("unexpected list order: %v", list)
	}
}

func TestKVRoundTrip(t *testing.T) {
	mgr := newTestManager(t)

	type record struct {
		Height uint64
		Label  string
	}

	var missing record
	ok, err := mgr.KVGet([]byte("test/record"), &missing)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if ok {
		t.Fatalf("missing key reported present")
	}

	if err := mgr.KVPut([]byte("test/record"), record{Height: 7, Label: "checkpoint"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	var loaded record
	ok, err = mgr.KVGet([]byte("test/record"), &loaded)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || loaded.Height != 7 || loaded.Label != "checkpoint" {
		t.Fatalf("unexpected record: %+v found=%v", loaded, ok)
	}

	if err := mgr.KVPut(nil, record{}); err == nil {
		t.Fatalf("expected empty key rejection")
	}
}

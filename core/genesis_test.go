package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"meridian/config"
	"meridian/native/params"
	"meridian/native/rewardpool"
	"meridian/native/vault"
	"meridian/storage"
	"meridian/storage/trie"
)

func TestApplyGenesisSeedsLedger(t *testing.T) {
	ledger, _ := newTestLedger(t)

	assertBalance(t, ledger, "MUSD", alice, coins(500))
	assertBalance(t, ledger, "MDN", alice, coins(600))
	assertBalance(t, ledger, "WETH", alice, coins(10))
	assertBalance(t, ledger, "MDN", bob, coins(400))
	assertBalance(t, ledger, "MDNLP", carol, coins(50))

	for symbol, want := range map[string]int64{"MUSD": 1100, "MDN": 1000, "MDNLP": 50, "WETH": 15} {
		supply, err := ledger.TotalSupply(symbol)
		if err != nil {
			t.Fatalf("supply %s: %v", symbol, err)
		}
		if supply.Cmp(coins(want)) != 0 {
			t.Fatalf("%s supply = %s, want %s", symbol, supply, coins(want))
		}
	}

	supported, err := ledger.SupportedCollateral()
	if err != nil {
		t.Fatalf("supported collateral: %v", err)
	}
	if len(supported) != 1 || supported[0] != "WETH" {
		t.Fatalf("supported collateral = %v", supported)
	}
	if !ledger.manager.HasRole(vault.RoleCollateralAdmin, registrar.Bytes()) {
		t.Fatal("registry admin role not granted")
	}

	wantRisk := params.VaultRisk{MinCollateralRatio: 150, LiquidationThreshold: 120, StabilityFeeBps: 200, LiquidationPenalty: 130}
	if got := ledger.VaultRiskParams(); got != wantRisk {
		t.Fatalf("engine risk = %+v", got)
	}
	stored, ok, err := ledger.paramStore.VaultRisk()
	if err != nil || !ok || stored != wantRisk {
		t.Fatalf("stored risk = %+v, %v, %v", stored, ok, err)
	}
	for key, want := range map[string]int64{params.KeyStakingEmission: 100, params.KeyLPMiningEmission: 200} {
		emission, ok, err := ledger.paramStore.Emission(key)
		if err != nil || !ok {
			t.Fatalf("stored emission %s: %v, %v", key, ok, err)
		}
		if emission.RewardRatePerDay.Cmp(coins(want)) != 0 {
			t.Fatalf("%s = %s, want %s", key, emission.RewardRatePerDay, coins(want))
		}
	}

	policy := ledger.GovernancePolicy()
	if policy.ProposalThreshold.Cmp(coins(100)) != 0 || policy.VotingDelaySeconds != 3600 ||
		policy.VotingPeriodSeconds != 7200 || policy.ExecutionGraceSeconds != 86400 || policy.QuorumBps != 2000 {
		t.Fatalf("policy = %+v", policy)
	}

	price, err := ledger.oracle.Price("WETH")
	if err != nil || price.Cmp(coins(2000)) != 0 {
		t.Fatalf("oracle price = %s, %v", price, err)
	}

	// The module tokens answer to their engines, not to any configured key.
	musd, err := ledger.manager.Token("MUSD")
	if err != nil {
		t.Fatalf("token MUSD: %v", err)
	}
	if !bytes.Equal(musd.MintAuthority, vault.ModuleAddress().Bytes()) {
		t.Fatalf("MUSD authority = %x", musd.MintAuthority)
	}
	mdn, err := ledger.manager.Token("MDN")
	if err != nil {
		t.Fatalf("token MDN: %v", err)
	}
	if !bytes.Equal(mdn.MintAuthority, rewardpool.RewardAuthority().Bytes()) {
		t.Fatalf("MDN authority = %x", mdn.MintAuthority)
	}
	if !mdn.Checkpointed {
		t.Fatal("MDN must carry balance history")
	}

	// Snapshot balances exist as of the genesis instant.
	genesisUnix := uint64(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Unix())
	snapshot, err := ledger.manager.BalanceAt("MDN", alice.Bytes(), genesisUnix)
	if err != nil || snapshot.Cmp(coins(600)) != 0 {
		t.Fatalf("snapshot balance = %s, %v", snapshot, err)
	}

	assertNonce(t, ledger, alice, 0)
}

func TestApplyGenesisNilDocument(t *testing.T) {
	tr, err := trie.NewTrie(storage.NewMemDB(), nil)
	if err != nil {
		t.Fatalf("new trie: %v", err)
	}
	ledger, err := NewLedger(tr)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	if err := ledger.ApplyGenesis(context.Background(), nil); err != ErrNilGenesis {
		t.Fatalf("err = %v, want %v", err, ErrNilGenesis)
	}
}

func TestApplyGenesisTwiceFails(t *testing.T) {
	ledger, _ := newTestLedger(t)
	before := ledger.PendingRoot()

	err := ledger.ApplyGenesis(context.Background(), testGenesisDoc(t))
	if err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Fatalf("second apply err = %v", err)
	}
	if got := ledger.PendingRoot(); got != before {
		t.Fatalf("state root moved after rejected genesis")
	}
	assertBalance(t, ledger, "MDN", alice, coins(600))
}

func TestApplyGenesisRevertsOnMissingAuthority(t *testing.T) {
	raw := fmt.Sprintf(`genesis_time: %q
tokens:
  - symbol: MUSD
    name: Meridian USD
    decimals: 18
  - symbol: MDN
    name: Meridian
    decimals: 18
    checkpointed: true
  - symbol: MDNLP
    name: Meridian LP Share
    decimals: 18
  - symbol: ZUSD
    name: Zeta USD
    decimals: 18
accounts:
  - address: %q
    balances:
      MDN: "5000000000000000000"
      ZUSD: "5000000000000000000"
`, testGenesisTime, alice)
	gen, err := config.ParseGenesis([]byte(raw))
	if err != nil {
		t.Fatalf("parse genesis: %v", err)
	}

	tr, err := trie.NewTrie(storage.NewMemDB(), nil)
	if err != nil {
		t.Fatalf("new trie: %v", err)
	}
	ledger, err := NewLedger(tr)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	ledger.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	before := ledger.PendingRoot()

	// The MDN grant funds first; the orphaned ZUSD balance then fails the
	// whole application, including the mint that already went through.
	err = ledger.ApplyGenesis(context.Background(), gen)
	if err == nil || !strings.Contains(err.Error(), "no mint authority") {
		t.Fatalf("apply err = %v", err)
	}
	if got := ledger.PendingRoot(); got != before {
		t.Fatalf("state root moved after failed genesis")
	}
	if _, err := ledger.TotalSupply("MDN"); err == nil {
		t.Fatal("token registration survived the revert")
	}
}

func TestApplyGenesisDeterministicRoots(t *testing.T) {
	first, err := trie.NewTrie(storage.NewMemDB(), nil)
	if err != nil {
		t.Fatalf("new trie: %v", err)
	}
	second, err := trie.NewTrie(storage.NewMemDB(), nil)
	if err != nil {
		t.Fatalf("new trie: %v", err)
	}
	early, err := NewLedger(first)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	late, err := NewLedger(second)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	early.SetLogger(quiet)
	late.SetLogger(quiet)
	early.SetNowFunc(func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) })
	late.SetNowFunc(func() time.Time { return time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC) })

	if err := early.ApplyGenesis(context.Background(), testGenesisDoc(t)); err != nil {
		t.Fatalf("early apply: %v", err)
	}
	if err := late.ApplyGenesis(context.Background(), testGenesisDoc(t)); err != nil {
		t.Fatalf("late apply: %v", err)
	}
	if early.PendingRoot() != late.PendingRoot() {
		t.Fatalf("genesis roots diverge: %s != %s", early.PendingRoot(), late.PendingRoot())
	}
}

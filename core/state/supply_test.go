package state

import (
	"math/big"
	"testing"
)

func TestTotalSupplyTracksMintAndBurn(t *testing.T) {
	mgr := newTestManager(t)
	authority := testAddr(0xAA)
	holder := testAddr(0x01)

	if err := mgr.RegisterToken("MUSD", "Meridian USD", 18); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := mgr.SetTokenMintAuthority("MUSD", authority); err != nil {
		t.Fatalf("set authority: %v", err)
	}

	total, err := mgr.TotalSupply("musd")
	if err != nil {
		t.Fatalf("initial supply: %v", err)
	}
	if total.Sign() != 0 {
		t.Fatalf("expected zero supply, got %s", total)
	}

	if err := mgr.Mint(authority, holder, "MUSD", big.NewInt(1000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	total, err = mgr.TotalSupply("MUSD")
	if err != nil {
		t.Fatalf("supply after mint: %v", err)
	}
	if total.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("unexpected supply after mint: %s", total)
	}

	if err := mgr.Burn(authority, holder, "musd", big.NewInt(250)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	total, err = mgr.TotalSupply("MUSD")
	if err != nil {
		t.Fatalf("supply after burn: %v", err)
	}
	if total.Cmp(big.NewInt(750)) != 0 {
		t.Fatalf("unexpected supply after burn: %s", total)
	}

	if _, err := mgr.TotalSupply(" "); err == nil {
		t.Fatalf("expected empty symbol rejection")
	}
}

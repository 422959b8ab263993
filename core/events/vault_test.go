package events

import (
	"math/big"
	"testing"
)

func TestVaultLiquidatedEvent(t *testing.T) {
	var liquidator, owner [20]byte
	liquidator[19] = 0x01
	owner[19] = 0x02

	evt := VaultLiquidated{
		Liquidator:  liquidator,
		Owner:       owner,
		Asset:       " weth ",
		DebtCovered: big.NewInt(500),
		Seized:      big.NewInt(650),
		Collateral:  big.NewInt(350),
		Debt:        big.NewInt(500),
	}.Event()
	if evt == nil {
		t.Fatalf("expected event")
	}
	if evt.Type != TypeVaultLiquidated {
		t.Fatalf("unexpected type: %s", evt.Type)
	}
	if evt.Attributes["asset"] != "WETH" {
		t.Fatalf("unexpected asset attr: %s", evt.Attributes["asset"])
	}
	if evt.Attributes["debtCovered"] != "500" || evt.Attributes["seized"] != "650" {
		t.Fatalf("unexpected attrs: %+v", evt.Attributes)
	}
	if evt.Attributes["liquidator"] == evt.Attributes["owner"] {
		t.Fatalf("liquidator and owner should render differently")
	}
}

func TestVaultRepaidEventOmitsZeroWithdrawal(t *testing.T) {
	var account [20]byte
	account[19] = 0x03

	evt := VaultRepaid{
		Account:    account,
		Asset:      "WETH",
		Repaid:     big.NewInt(100),
		Fee:        big.NewInt(3),
		Withdrawn:  big.NewInt(0),
		Collateral: big.NewInt(1000),
		Debt:       big.NewInt(400),
	}.Event()
	if _, ok := evt.Attributes["withdrawn"]; ok {
		t.Fatalf("zero withdrawal should not be rendered: %+v", evt.Attributes)
	}
	if evt.Attributes["fee"] != "3" {
		t.Fatalf("unexpected fee attr: %s", evt.Attributes["fee"])
	}
}

func TestCollectorDrainsInOrder(t *testing.T) {
	var account [20]byte
	collector := &Collector{}
	collector.Emit(RewardClaimed{Pool: "staking", Account: account, Paid: big.NewInt(1)})
	collector.Emit(RewardClaimed{Pool: "lpmining", Account: account, Paid: big.NewInt(2)})

	drained := collector.Drain()
	if len(drained) != 2 {
		t.Fatalf("expected 2 events, got %d", len(drained))
	}
	first, ok := drained[0].(RewardClaimed)
	if !ok || first.Pool != "staking" {
		t.Fatalf("unexpected first event: %+v", drained[0])
	}
	if collector.Len() != 0 {
		t.Fatalf("collector should be empty after drain")
	}
}

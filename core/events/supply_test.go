package events

import (
	"math/big"
	"testing"
)

func TestTokenSupplyEvent(t *testing.T) {
	evt := TokenSupply{
		Token:  "musd",
		Total:  big.NewInt(5000),
		Delta:  big.NewInt(250),
		Reason: SupplyReasonMint,
	}.Event()
	if evt.Type != TypeTokenSupply {
		t.Fatalf("unexpected type: %s", evt.Type)
	}
	if evt.Attributes["token"] != "MUSD" {
		t.Fatalf("unexpected token attr: %s", evt.Attributes["token"])
	}
	if evt.Attributes["total"] != "5000" || evt.Attributes["delta"] != "250" {
		t.Fatalf("unexpected attrs: %+v", evt.Attributes)
	}
	if evt.Attributes["reason"] != SupplyReasonMint {
		t.Fatalf("unexpected reason: %s", evt.Attributes["reason"])
	}
}

func TestTokenSupplyEventBurnKeepsSign(t *testing.T) {
	evt := TokenSupply{
		Token:  "MUSD",
		Total:  big.NewInt(4000),
		Delta:  big.NewInt(-1000),
		Reason: SupplyReasonBurn,
	}.Event()
	if evt.Attributes["delta"] != "-1000" {
		t.Fatalf("burn delta lost its sign: %s", evt.Attributes["delta"])
	}
	if evt.Attributes["reason"] != SupplyReasonBurn {
		t.Fatalf("unexpected reason: %s", evt.Attributes["reason"])
	}
}

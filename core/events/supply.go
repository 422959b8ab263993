package events

import (
	"math/big"

	"meridian/core/types"
)

const (
	// TypeTokenSupply is emitted whenever a token's total supply changes.
	TypeTokenSupply = "token.supply"

	// SupplyReasonMint identifies mint driven supply increases.
	SupplyReasonMint = "mint"
	// SupplyReasonBurn identifies burn driven supply decreases.
	SupplyReasonBurn = "burn"
)

// TokenSupply captures a supply delta for a registered token. The liability
// token issues on borrow and retires on repayment, and reward claims inflate
// the reward asset, so this stream doubles as a solvency audit trail.
type TokenSupply struct {
	Token  string
	Total  *big.Int
	Delta  *big.Int
	Reason string
}

// EventType satisfies the Event interface.
func (TokenSupply) EventType() string { return TypeTokenSupply }

// Event converts the structured payload into a broadcastable event. Burn
// deltas render with their negative sign.
func (e TokenSupply) Event() *types.Event {
	return &types.Event{Type: TypeTokenSupply, Attributes: map[string]string{
		"token":  normalizeAsset(e.Token),
		"total":  formatAmount(e.Total),
		"delta":  formatAmount(e.Delta),
		"reason": e.Reason,
	}}
}

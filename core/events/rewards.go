package events

import (
	"math/big"

	"meridian/core/types"
	"meridian/crypto"
)

const (
	// TypeRewardAccrued captures an accumulator advance with nonzero
	// emission.
	TypeRewardAccrued = "rewards.accrued"
	// TypeRewardDeposited captures principal entering a reward pool.
	TypeRewardDeposited = "rewards.deposited"
	// TypeRewardWithdrawn captures principal leaving a reward pool.
	TypeRewardWithdrawn = "rewards.withdrawn"
	// TypeRewardClaimed is emitted when accrued rewards are paid out.
	TypeRewardClaimed = "rewards.claimed"
)

// RewardAccrued captures emission folded into the per-share accumulator.
type RewardAccrued struct {
	Pool              string
	Emitted           *big.Int
	AccRewardPerShare *big.Int
}

// EventType satisfies the Event interface.
func (RewardAccrued) EventType() string { return TypeRewardAccrued }

// Event converts the structured payload into a broadcastable event.
func (e RewardAccrued) Event() *types.Event {
	return &types.Event{Type: TypeRewardAccrued, Attributes: map[string]string{
		"pool":              e.Pool,
		"emitted":           formatAmount(e.Emitted),
		"accRewardPerShare": formatAmount(e.AccRewardPerShare),
	}}
}

// RewardDeposited captures a stake entering a pool, including any reward
// settled as part of the interaction.
type RewardDeposited struct {
	Pool           string
	Account        [20]byte
	Amount         *big.Int
	Paid           *big.Int
	Principal      *big.Int
	TotalPrincipal *big.Int
}

// EventType satisfies the Event interface.
func (RewardDeposited) EventType() string { return TypeRewardDeposited }

// Event converts the structured payload into a broadcastable event.
func (e RewardDeposited) Event() *types.Event {
	attrs := map[string]string{
		"pool":           e.Pool,
		"addr":           crypto.NewAddress(e.Account[:]).String(),
		"amount":         formatAmount(e.Amount),
		"principal":      formatAmount(e.Principal),
		"totalPrincipal": formatAmount(e.TotalPrincipal),
	}
	if e.Paid != nil && e.Paid.Sign() > 0 {
		attrs["paid"] = formatAmount(e.Paid)
	}
	return &types.Event{Type: TypeRewardDeposited, Attributes: attrs}
}

// RewardWithdrawn captures a stake leaving a pool together with the reward
// settled on exit.
type RewardWithdrawn struct {
	Pool           string
	Account        [20]byte
	Amount         *big.Int
	Paid           *big.Int
	Principal      *big.Int
	TotalPrincipal *big.Int
}

// EventType satisfies the Event interface.
func (RewardWithdrawn) EventType() string { return TypeRewardWithdrawn }

// Event converts the structured payload into a broadcastable event.
func (e RewardWithdrawn) Event() *types.Event {
	attrs := map[string]string{
		"pool":           e.Pool,
		"addr":           crypto.NewAddress(e.Account[:]).String(),
		"amount":         formatAmount(e.Amount),
		"principal":      formatAmount(e.Principal),
		"totalPrincipal": formatAmount(e.TotalPrincipal),
	}
	if e.Paid != nil && e.Paid.Sign() > 0 {
		attrs["paid"] = formatAmount(e.Paid)
	}
	return &types.Event{Type: TypeRewardWithdrawn, Attributes: attrs}
}

// RewardClaimed captures a standalone reward payout.
type RewardClaimed struct {
	Pool    string
	Account [20]byte
	Paid    *big.Int
}

// EventType satisfies the Event interface.
func (RewardClaimed) EventType() string { return TypeRewardClaimed }

// Event converts the structured payload into a broadcastable event.
func (e RewardClaimed) Event() *types.Event {
	return &types.Event{Type: TypeRewardClaimed, Attributes: map[string]string{
		"pool": e.Pool,
		"addr": crypto.NewAddress(e.Account[:]).String(),
		"paid": formatAmount(e.Paid),
	}}
}

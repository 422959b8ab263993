package rewardpool

import "math/big"

// Pool holds the shared accrual state of one reward program. Amounts are
// base units of the program's assets; the accumulator carries the extra
// Precision factor.
type Pool struct {
	// AccRewardPerShare is the cumulative reward per principal unit,
	// scaled by Precision.
	AccRewardPerShare *big.Int
	// TotalPrincipal is the sum of all participant principals.
	TotalPrincipal *big.Int
	// LastAccrualTime is the unix timestamp of the last accumulator
	// advance.
	LastAccrualTime uint64
}

// Clone returns a deep copy safe to hand to callers.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	out := &Pool{LastAccrualTime: p.LastAccrualTime}
	if p.AccRewardPerShare != nil {
		out.AccRewardPerShare = new(big.Int).Set(p.AccRewardPerShare)
	}
	if p.TotalPrincipal != nil {
		out.TotalPrincipal = new(big.Int).Set(p.TotalPrincipal)
	}
	return out.withDefaults()
}

func (p *Pool) withDefaults() *Pool {
	if p == nil {
		return nil
	}
	if p.AccRewardPerShare == nil {
		p.AccRewardPerShare = big.NewInt(0)
	}
	if p.TotalPrincipal == nil {
		p.TotalPrincipal = big.NewInt(0)
	}
	return p
}

// Participant is one account's stake in a pool. RewardDebt is the
// checkpoint subtracted from the accumulator product when evaluating the
// pending reward.
type Participant struct {
	// Principal is the staked amount in base units.
	Principal *big.Int
	// RewardDebt equals Principal * AccRewardPerShare / Precision as of
	// the participant's last settlement.
	RewardDebt *big.Int
}

// Clone returns a deep copy safe to hand to callers.
func (m *Participant) Clone() *Participant {
	if m == nil {
		return nil
	}
	out := &Participant{}
	if m.Principal != nil {
		out.Principal = new(big.Int).Set(m.Principal)
	}
	if m.RewardDebt != nil {
		out.RewardDebt = new(big.Int).Set(m.RewardDebt)
	}
	return out.withDefaults()
}

func (m *Participant) withDefaults() *Participant {
	if m == nil {
		return nil
	}
	if m.Principal == nil {
		m.Principal = big.NewInt(0)
	}
	if m.RewardDebt == nil {
		m.RewardDebt = big.NewInt(0)
	}
	return m
}

package rewardpool

import (
	"errors"
	"math/big"
	"strings"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"meridian/core/events"
	"meridian/crypto"
	nativecommon "meridian/native/common"
	"meridian/native/params"
	"meridian/observability/metrics"
)

var (
	ErrInvalidAmount            = errors.New("rewardpool: amount must be positive")
	ErrWithdrawExceedsPrincipal = errors.New("rewardpool: withdrawal exceeds staked principal")
	ErrNothingToClaim           = errors.New("rewardpool: no reward to claim")
)

var (
	errNilState   = errors.New("rewardpool: state not configured")
	errNilProgram = errors.New("rewardpool: program not configured")
)

const (
	// PoolStaking identifies the stable-asset staking program.
	PoolStaking = "staking"
	// PoolLPMining identifies the liquidity-provider mining program.
	PoolLPMining = "lpmining"

	// DefaultRewardAsset is the token minted for every payout.
	DefaultRewardAsset = "MDN"

	moduleName    = "rewards"
	secondsPerDay = 86_400
)

// Precision scales the per-share accumulator so integer division keeps
// sub-unit reward entitlements.
var Precision = big.NewInt(1_000_000_000_000)

// RewardAuthority returns the deterministic account holding the mint
// authority for reward payouts. Both programs share it.
func RewardAuthority() crypto.Address {
	hash := ethcrypto.Keccak256([]byte("meridian/module/rewards"))
	return crypto.NewAddress(hash[12:])
}

// PoolAddress returns the deterministic custody account for a program's
// staked principal.
func PoolAddress(poolID string) crypto.Address {
	hash := ethcrypto.Keccak256([]byte("meridian/module/rewards/" + normalizePoolID(poolID)))
	return crypto.NewAddress(hash[12:])
}

// Program fixes the immutable identity of one reward pool. The emission
// rate is governed separately and may change over the program's life.
type Program struct {
	ID             string
	PrincipalAsset string
	RewardAsset    string
}

func (p Program) withDefaults() Program {
	p.ID = normalizePoolID(p.ID)
	p.PrincipalAsset = normalizeAsset(p.PrincipalAsset)
	p.RewardAsset = normalizeAsset(p.RewardAsset)
	if p.RewardAsset == "" {
		p.RewardAsset = DefaultRewardAsset
	}
	return p
}

// StakingProgram returns the canonical stable-asset staking instance.
func StakingProgram() Program {
	return Program{ID: PoolStaking, PrincipalAsset: "MUSD", RewardAsset: DefaultRewardAsset}
}

// LPMiningProgram returns the canonical liquidity mining instance.
func LPMiningProgram() Program {
	return Program{ID: PoolLPMining, PrincipalAsset: "MDNLP", RewardAsset: DefaultRewardAsset}
}

type engineState interface {
	RewardPoolGet(id string) (*Pool, error)
	RewardPoolPut(id string, pool *Pool) error
	RewardParticipantGet(id string, addr []byte) (*Participant, error)
	RewardParticipantPut(id string, addr []byte, member *Participant) error
	Transfer(from, to []byte, symbol string, amount *big.Int) error
	Mint(authority, to []byte, symbol string, amount *big.Int) error
}

// Engine runs one reward program. Instances share the code path while
// keeping independent state rows, emission rates, and custody accounts.
// Emission accrues lazily: the accumulator only advances when an operation
// touches the pool, and spans with zero principal pay nobody.
type Engine struct {
	state     engineState
	emitter   events.Emitter
	pauses    nativecommon.PauseView
	locks     *nativecommon.Locks
	program   Program
	emission  params.PoolEmission
	nowFn     func() time.Time
	telemetry *metrics.RewardsMetrics
}

func NewEngine(program Program) *Engine {
	return &Engine{
		emitter:   events.NoopEmitter{},
		program:   program.withDefaults(),
		emission:  params.PoolEmission{RewardRatePerDay: big.NewInt(0)},
		nowFn:     time.Now,
		telemetry: metrics.Rewards(),
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) {
	if e == nil {
		return
	}
	e.state = state
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

func (e *Engine) SetLocks(l *nativecommon.Locks) {
	if e == nil {
		return
	}
	e.locks = l
}

// SetNowFunc overrides the clock, primarily for tests. Passing nil restores
// the wall clock.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if e == nil {
		return
	}
	if now == nil {
		now = time.Now
	}
	e.nowFn = now
}

// SetEmission swaps in a new governed emission rate after validating it.
// Callers changing the rate on a live pool should Checkpoint first so the
// elapsed window stays priced at the old rate.
func (e *Engine) SetEmission(p params.PoolEmission) error {
	if e == nil {
		return nil
	}
	if err := p.Validate(); err != nil {
		return err
	}
	e.emission = params.PoolEmission{RewardRatePerDay: new(big.Int).Set(p.RewardRatePerDay)}
	return nil
}

// Emission returns a copy of the currently active emission settings.
func (e *Engine) Emission() params.PoolEmission {
	if e == nil || e.emission.RewardRatePerDay == nil {
		return params.PoolEmission{RewardRatePerDay: big.NewInt(0)}
	}
	return params.PoolEmission{RewardRatePerDay: new(big.Int).Set(e.emission.RewardRatePerDay)}
}

// Program returns the engine's fixed program identity.
func (e *Engine) Program() Program {
	if e == nil {
		return Program{}
	}
	return e.program
}

// Deposit stakes principal into the pool. Any reward accrued on an existing
// position pays out first so the checkpoint reset cannot erase it. Returns
// the updated position and the reward paid.
func (e *Engine) Deposit(account [20]byte, amount *big.Int) (*Participant, *big.Int, error) {
	if e == nil || e.state == nil {
		return nil, nil, errNilState
	}
	if e.program.ID == "" {
		return nil, nil, errNilProgram
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	release, err := e.locks.Acquire(moduleName, account)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	pool, err := e.loadPool()
	if err != nil {
		return nil, nil, err
	}
	member, err := e.loadParticipant(account)
	if err != nil {
		return nil, nil, err
	}

	acc := e.accrue(pool, e.nowUnix())
	paid := pendingAmount(member, pool.AccRewardPerShare)
	if err := e.payReward(account, paid); err != nil {
		return nil, nil, err
	}
	if err := e.state.Transfer(account[:], PoolAddress(e.program.ID).Bytes(), e.program.PrincipalAsset, amount); err != nil {
		return nil, nil, err
	}

	member.Principal = new(big.Int).Add(member.Principal, amount)
	pool.TotalPrincipal = new(big.Int).Add(pool.TotalPrincipal, amount)
	member.RewardDebt = checkpointDebt(member.Principal, pool.AccRewardPerShare)
	if err := e.storeRows(account, pool, member); err != nil {
		return nil, nil, err
	}

	e.emitAccrual(pool, acc)
	e.telemetry.ObserveOperation(e.program.ID, "deposit")
	e.telemetry.AddRewardPaid(e.program.ID, amountToFloat(paid))
	e.telemetry.SetTotalPrincipal(e.program.ID, amountToFloat(pool.TotalPrincipal))
	e.emitter.Emit(events.RewardDeposited{
		Pool:           e.program.ID,
		Account:        account,
		Amount:         new(big.Int).Set(amount),
		Paid:           new(big.Int).Set(paid),
		Principal:      new(big.Int).Set(member.Principal),
		TotalPrincipal: new(big.Int).Set(pool.TotalPrincipal),
	})
	return member.Clone(), paid, nil
}

// Withdraw returns staked principal to the account together with the reward
// accrued up to the withdrawal. Returns the updated position and the reward
// paid.
func (e *Engine) Withdraw(account [20]byte, amount *big.Int) (*Participant, *big.Int, error) {
	if e == nil || e.state == nil {
		return nil, nil, errNilState
	}
	if e.program.ID == "" {
		return nil, nil, errNilProgram
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	release, err := e.locks.Acquire(moduleName, account)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	pool, err := e.loadPool()
	if err != nil {
		return nil, nil, err
	}
	member, err := e.loadParticipant(account)
	if err != nil {
		return nil, nil, err
	}
	if amount.Cmp(member.Principal) > 0 {
		return nil, nil, ErrWithdrawExceedsPrincipal
	}

	acc := e.accrue(pool, e.nowUnix())
	paid := pendingAmount(member, pool.AccRewardPerShare)

	member.Principal = new(big.Int).Sub(member.Principal, amount)
	pool.TotalPrincipal = new(big.Int).Sub(pool.TotalPrincipal, amount)
	member.RewardDebt = checkpointDebt(member.Principal, pool.AccRewardPerShare)

	if err := e.payReward(account, paid); err != nil {
		return nil, nil, err
	}
	if err := e.state.Transfer(PoolAddress(e.program.ID).Bytes(), account[:], e.program.PrincipalAsset, amount); err != nil {
		return nil, nil, err
	}
	if err := e.storeRows(account, pool, member); err != nil {
		return nil, nil, err
	}

	e.emitAccrual(pool, acc)
	e.telemetry.ObserveOperation(e.program.ID, "withdraw")
	e.telemetry.AddRewardPaid(e.program.ID, amountToFloat(paid))
	e.telemetry.SetTotalPrincipal(e.program.ID, amountToFloat(pool.TotalPrincipal))
	e.emitter.Emit(events.RewardWithdrawn{
		Pool:           e.program.ID,
		Account:        account,
		Amount:         new(big.Int).Set(amount),
		Paid:           new(big.Int).Set(paid),
		Principal:      new(big.Int).Set(member.Principal),
		TotalPrincipal: new(big.Int).Set(pool.TotalPrincipal),
	})
	return member.Clone(), paid, nil
}

// Claim pays the accrued reward without touching principal.
func (e *Engine) Claim(account [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.program.ID == "" {
		return nil, errNilProgram
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	release, err := e.locks.Acquire(moduleName, account)
	if err != nil {
		return nil, err
	}
	defer release()

	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	member, err := e.loadParticipant(account)
	if err != nil {
		return nil, err
	}

	acc := e.accrue(pool, e.nowUnix())
	paid := pendingAmount(member, pool.AccRewardPerShare)
	if paid.Sign() == 0 {
		return nil, ErrNothingToClaim
	}

	member.RewardDebt = checkpointDebt(member.Principal, pool.AccRewardPerShare)
	if err := e.payReward(account, paid); err != nil {
		return nil, err
	}
	if err := e.storeRows(account, pool, member); err != nil {
		return nil, err
	}

	e.emitAccrual(pool, acc)
	e.telemetry.ObserveOperation(e.program.ID, "claim")
	e.telemetry.AddRewardPaid(e.program.ID, amountToFloat(paid))
	e.emitter.Emit(events.RewardClaimed{
		Pool:    e.program.ID,
		Account: account,
		Paid:    new(big.Int).Set(paid),
	})
	return paid, nil
}

// Checkpoint settles the accumulator at the current clock and persists the
// pool row. Call it before an emission rate change so the elapsed window
// stays priced at the old rate.
func (e *Engine) Checkpoint() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.program.ID == "" {
		return errNilProgram
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	before := pool.LastAccrualTime
	acc := e.accrue(pool, e.nowUnix())
	if pool.LastAccrualTime == before {
		return nil
	}
	if err := e.state.RewardPoolPut(e.program.ID, pool); err != nil {
		return err
	}
	e.emitAccrual(pool, acc)
	e.telemetry.ObserveOperation(e.program.ID, "checkpoint")
	return nil
}

// PendingReward projects the account's claimable reward at the engine
// clock without mutating state.
func (e *Engine) PendingReward(account [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.PendingRewardAt(account, e.nowFn())
}

// PendingRewardAt projects the account's claimable reward at a hypothetical
// point in time without mutating state.
func (e *Engine) PendingRewardAt(account [20]byte, at time.Time) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.program.ID == "" {
		return nil, errNilProgram
	}
	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	member, err := e.loadParticipant(account)
	if err != nil {
		return nil, err
	}
	acc := projectedAccumulator(pool, e.emission.RewardRatePerDay, unixSeconds(at))
	return pendingAmount(member, acc), nil
}

// Pool returns a copy of the program's accrual row. Missing rows read as
// zero.
func (e *Engine) Pool() (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.program.ID == "" {
		return nil, errNilProgram
	}
	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

// Participant returns a copy of the account's stake row. Missing rows read
// as zero.
func (e *Engine) Participant(account [20]byte) (*Participant, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.program.ID == "" {
		return nil, errNilProgram
	}
	member, err := e.loadParticipant(account)
	if err != nil {
		return nil, err
	}
	return member.Clone(), nil
}

type accrual struct {
	emitted *big.Int
	dust    *big.Int
}

// accrue advances the pool accumulator to now. Idle spans with no principal
// only move the clock, forfeiting their emission. Returns the accrual
// detail when emission landed in the accumulator.
func (e *Engine) accrue(pool *Pool, now uint64) *accrual {
	if now <= pool.LastAccrualTime {
		return nil
	}
	if pool.TotalPrincipal.Sign() == 0 {
		pool.LastAccrualTime = now
		return nil
	}
	elapsed := now - pool.LastAccrualTime
	pool.LastAccrualTime = now
	emitted := emittedReward(e.emission.RewardRatePerDay, elapsed)
	if emitted.Sign() == 0 {
		return nil
	}
	scaled := new(big.Int).Mul(emitted, Precision)
	growth, dust := new(big.Int).QuoRem(scaled, pool.TotalPrincipal, new(big.Int))
	pool.AccRewardPerShare = new(big.Int).Add(pool.AccRewardPerShare, growth)
	return &accrual{emitted: emitted, dust: dust}
}

// emitAccrual reports a completed accumulator advance. Ops call it on their
// success path only, so failed operations surface no accrual.
func (e *Engine) emitAccrual(pool *Pool, acc *accrual) {
	if acc == nil {
		return
	}
	e.telemetry.AddRoundingDust(e.program.ID, amountToFloat(acc.dust))
	e.emitter.Emit(events.RewardAccrued{
		Pool:              e.program.ID,
		Emitted:           new(big.Int).Set(acc.emitted),
		AccRewardPerShare: new(big.Int).Set(pool.AccRewardPerShare),
	})
}

func (e *Engine) payReward(account [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	return e.state.Mint(RewardAuthority().Bytes(), account[:], e.program.RewardAsset, amount)
}

func (e *Engine) loadPool() (*Pool, error) {
	pool, err := e.state.RewardPoolGet(e.program.ID)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		pool = &Pool{}
	}
	return pool.withDefaults(), nil
}

func (e *Engine) loadParticipant(account [20]byte) (*Participant, error) {
	member, err := e.state.RewardParticipantGet(e.program.ID, account[:])
	if err != nil {
		return nil, err
	}
	if member == nil {
		member = &Participant{}
	}
	return member.withDefaults(), nil
}

func (e *Engine) storeRows(account [20]byte, pool *Pool, member *Participant) error {
	if err := e.state.RewardPoolPut(e.program.ID, pool); err != nil {
		return err
	}
	return e.state.RewardParticipantPut(e.program.ID, account[:], member)
}

func (e *Engine) nowUnix() uint64 {
	nowFn := time.Now
	if e != nil && e.nowFn != nil {
		nowFn = e.nowFn
	}
	return unixSeconds(nowFn())
}

// projectedAccumulator evaluates the accumulator a live accrue would reach
// at the supplied time, leaving the pool untouched.
func projectedAccumulator(pool *Pool, ratePerDay *big.Int, now uint64) *big.Int {
	acc := pool.AccRewardPerShare
	if now <= pool.LastAccrualTime || pool.TotalPrincipal.Sign() == 0 {
		return acc
	}
	emitted := emittedReward(ratePerDay, now-pool.LastAccrualTime)
	if emitted.Sign() == 0 {
		return acc
	}
	growth := new(big.Int).Mul(emitted, Precision)
	growth.Quo(growth, pool.TotalPrincipal)
	return new(big.Int).Add(acc, growth)
}

// emittedReward computes elapsed * ratePerDay / secondsPerDay with floor
// division.
func emittedReward(ratePerDay *big.Int, elapsed uint64) *big.Int {
	if ratePerDay == nil || ratePerDay.Sign() <= 0 || elapsed == 0 {
		return big.NewInt(0)
	}
	emitted := new(big.Int).Mul(ratePerDay, new(big.Int).SetUint64(elapsed))
	return emitted.Quo(emitted, big.NewInt(secondsPerDay))
}

// pendingAmount evaluates principal * acc / Precision - rewardDebt, floored
// at zero.
func pendingAmount(member *Participant, acc *big.Int) *big.Int {
	if member == nil || member.Principal.Sign() == 0 {
		return big.NewInt(0)
	}
	earned := new(big.Int).Mul(member.Principal, acc)
	earned.Quo(earned, Precision)
	earned.Sub(earned, member.RewardDebt)
	if earned.Sign() < 0 {
		return big.NewInt(0)
	}
	return earned
}

// checkpointDebt resets the settlement baseline to the current accumulator.
func checkpointDebt(principal, acc *big.Int) *big.Int {
	debt := new(big.Int).Mul(principal, acc)
	return debt.Quo(debt, Precision)
}

func unixSeconds(t time.Time) uint64 {
	ts := t.Unix()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func normalizePoolID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func normalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}

func amountToFloat(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(amount).Float64()
	return f
}

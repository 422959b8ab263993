package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"meridian/core/events"
	"meridian/core/state"
	"meridian/core/types"
	"meridian/crypto"
	nativecommon "meridian/native/common"
	"meridian/native/governance"
	"meridian/native/oracle"
	"meridian/native/params"
	"meridian/native/rewardpool"
	"meridian/native/vault"
	"meridian/observability/metrics"
	"meridian/storage/trie"
)

var (
	// ErrInvalidAddress rejects callers that are not 20-byte accounts.
	ErrInvalidAddress = errors.New("core: address must be 20 bytes")
	// ErrUnknownPool rejects operations naming a reward program the ledger
	// does not run.
	ErrUnknownPool = errors.New("core: unknown reward pool")

	errNotInitialised = errors.New("core: ledger not initialised")
)

// Ledger bundles the state manager, the vault, the two reward pools, and the
// governance engine behind one façade. Every mutating method runs as an
// atomic unit: the trie is snapshotted before the engine call and restored on
// any error, so callers never observe partial state. Events emitted by the
// engines are staged in a collector and forwarded to the configured emitter
// only after the operation has fully succeeded.
//
// A Ledger is not safe for concurrent use; callers serialize operations.
type Ledger struct {
	trie       *trie.Trie
	manager    *state.Manager
	vault      *vault.Engine
	pools      map[string]*rewardpool.Engine
	governance *governance.Engine
	oracle     *oracle.ManualOracle
	paramStore *params.Store
	pauses     *nativecommon.Pauses
	locks      *nativecommon.Locks
	collector  *events.Collector
	emitter    events.Emitter
	nowFn      func() time.Time
	log        *slog.Logger
	telemetry  *metrics.LedgerMetrics
	tracer     trace.Tracer
}

// NewLedger assembles a ledger over the provided trie. Engines come wired to
// the shared state manager, the runtime pause switches, the reentrancy locks,
// and the staging event collector; policy (risk parameters, emission rates,
// governance rules) is installed separately, normally by ApplyGenesis.
func NewLedger(tr *trie.Trie) (*Ledger, error) {
	if tr == nil {
		return nil, fmt.Errorf("core: trie must not be nil")
	}

	l := &Ledger{
		trie:      tr,
		manager:   state.NewManager(tr),
		vault:     vault.NewEngine(),
		pools:     make(map[string]*rewardpool.Engine, 2),
		oracle:    oracle.NewManualOracle(),
		pauses:    nativecommon.NewPauses(),
		locks:     nativecommon.NewLocks(),
		collector: &events.Collector{},
		emitter:   events.NoopEmitter{},
		nowFn:     time.Now,
		log:       slog.Default(),
		telemetry: metrics.Ledger(),
		tracer:    otel.Tracer("meridian/core"),
	}
	l.paramStore = params.NewStore(l.manager)
	l.manager.SetEmitter(l.collector)

	l.vault.SetState(l.manager)
	l.vault.SetEmitter(l.collector)
	l.vault.SetPauses(l.pauses)
	l.vault.SetLocks(l.locks)
	l.vault.SetOracle(l.oracle)

	for _, program := range []rewardpool.Program{rewardpool.StakingProgram(), rewardpool.LPMiningProgram()} {
		engine := rewardpool.NewEngine(program)
		engine.SetState(l.manager)
		engine.SetEmitter(l.collector)
		engine.SetPauses(l.pauses)
		engine.SetLocks(l.locks)
		l.pools[program.ID] = engine
	}

	l.governance = governance.NewEngine()
	l.governance.SetState(l.manager)
	l.governance.SetEmitter(l.collector)
	l.governance.SetPauses(l.pauses)
	l.registerAppliers()

	return l, nil
}

// registerAppliers connects executed parameter changes to the engines so a
// passed proposal takes effect immediately, not just in the store.
func (l *Ledger) registerAppliers() {
	l.governance.RegisterApplier(params.KeyVaultRisk, func(value []byte) error {
		risk, err := params.ParseVaultRisk(value)
		if err != nil {
			return err
		}
		return l.vault.SetRiskParams(risk)
	})
	l.governance.RegisterApplier(params.KeyStakingEmission, l.emissionApplier(rewardpool.PoolStaking))
	l.governance.RegisterApplier(params.KeyLPMiningEmission, l.emissionApplier(rewardpool.PoolLPMining))
}

// emissionApplier settles the pool at the outgoing rate before installing the
// new one, so a rate change never rewrites history.
func (l *Ledger) emissionApplier(poolID string) func(value []byte) error {
	return func(value []byte) error {
		engine, ok := l.pools[poolID]
		if !ok {
			return ErrUnknownPool
		}
		emission, err := params.ParsePoolEmission(value)
		if err != nil {
			return err
		}
		if err := engine.Checkpoint(); err != nil {
			return err
		}
		return engine.SetEmission(emission)
	}
}

// SetEmitter installs the downstream event sink, typically an audit journal.
// Passing nil restores the discarding default. Engines keep emitting into the
// internal collector; only completed operations reach the sink.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if l == nil {
		return
	}
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// SetLogger replaces the structured logger.
func (l *Ledger) SetLogger(logger *slog.Logger) {
	if l == nil || logger == nil {
		return
	}
	l.log = logger
}

// SetNowFunc overrides the clock for the manager and every engine at once.
func (l *Ledger) SetNowFunc(now func() time.Time) {
	if l == nil {
		return
	}
	if now == nil {
		now = time.Now
	}
	l.nowFn = now
	l.manager.SetNowFunc(now)
	l.vault.SetNowFunc(now)
	for _, engine := range l.pools {
		engine.SetNowFunc(now)
	}
	l.governance.SetNowFunc(now)
}

// SetModulePaused halts or resumes the mutating operations of one module
// ("vault", "rewards", "governance").
func (l *Ledger) SetModulePaused(module string, paused bool) {
	if l == nil {
		return
	}
	l.pauses.SetPaused(module, paused)
}

// SetOraclePrice seeds or moves the manual price feed for one asset.
func (l *Ledger) SetOraclePrice(asset string, price *big.Int) error {
	if l == nil {
		return errNotInitialised
	}
	return l.oracle.SetPrice(asset, price)
}

// CurrentRoot returns the last committed state root.
func (l *Ledger) CurrentRoot() common.Hash {
	return l.trie.Root()
}

// PendingRoot returns the root including uncommitted mutations.
func (l *Ledger) PendingRoot() common.Hash {
	return l.trie.Hash()
}

// Commit persists the accumulated state under the given height, records the
// new root as the head pointer, and returns it.
func (l *Ledger) Commit(height uint64) (common.Hash, error) {
	if l == nil || l.trie == nil {
		return common.Hash{}, errNotInitialised
	}
	root, err := l.trie.Commit(l.trie.Root(), height)
	if err != nil {
		return common.Hash{}, fmt.Errorf("core: commit state: %w", err)
	}
	if err := l.trie.Store().Put(headRootKey, root.Bytes()); err != nil {
		return common.Hash{}, fmt.Errorf("core: persist head root: %w", err)
	}
	l.telemetry.SetCommittedHeight(height)
	l.log.Info("state committed", "height", height, "root", root.Hex())
	return root, nil
}

// Copy returns a speculative ledger over a copy of the trie. The copy shares
// the oracle and the pause switches with the original but gets fresh locks
// and a discarding emitter, so speculative runs never reach the audit trail.
func (l *Ledger) Copy() (*Ledger, error) {
	if l == nil || l.trie == nil {
		return nil, errNotInitialised
	}
	trieCopy, err := l.trie.Copy()
	if err != nil {
		return nil, fmt.Errorf("core: copy state: %w", err)
	}
	speculative, err := NewLedger(trieCopy)
	if err != nil {
		return nil, err
	}

	speculative.oracle = l.oracle
	speculative.vault.SetOracle(l.oracle)
	speculative.pauses = l.pauses
	speculative.vault.SetPauses(l.pauses)
	speculative.governance.SetPauses(l.pauses)
	for _, engine := range speculative.pools {
		engine.SetPauses(l.pauses)
	}
	speculative.SetNowFunc(l.nowFn)
	speculative.log = l.log

	if risk := l.vault.RiskParams(); risk != (params.VaultRisk{}) {
		if err := speculative.vault.SetRiskParams(risk); err != nil {
			return nil, err
		}
	}
	for id, engine := range l.pools {
		if err := speculative.pools[id].SetEmission(engine.Emission()); err != nil {
			return nil, err
		}
	}
	if policy := l.governance.Policy(); policy.VotingPeriodSeconds > 0 {
		if err := speculative.governance.SetPolicy(policy); err != nil {
			return nil, err
		}
	}
	return speculative, nil
}

// run executes one mutating operation as an atomic unit: snapshot, engine
// call, restore-on-error, event delivery, telemetry.
func (l *Ledger) run(ctx context.Context, op string, fn func() error) error {
	if l == nil || l.trie == nil {
		return errNotInitialised
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, span := l.tracer.Start(ctx, "ledger."+op, trace.WithAttributes(
		attribute.String("ledger.op", op),
	))
	defer span.End()

	start := time.Now()
	snapshot, err := l.trie.Copy()
	if err != nil {
		return fmt.Errorf("core: snapshot state: %w", err)
	}

	err = fn()
	if err != nil {
		l.trie.Restore(snapshot)
		l.collector.Drain()
		span.RecordError(err)
		l.log.Warn("ledger operation rejected", "op", op, "err", err)
	} else {
		for _, evt := range l.collector.Drain() {
			l.emitter.Emit(evt)
		}
		l.log.Debug("ledger operation applied", "op", op)
	}
	l.telemetry.ObserveOperation(op, err, time.Since(start).Seconds())
	return err
}

// --- Vault operations ---

// CreateOrIncreaseVault opens a vault or grows an existing one, pulling
// collateral from the owner and minting the requested liability.
func (l *Ledger) CreateOrIncreaseVault(ctx context.Context, owner crypto.Address, asset string, collateralAmount, debtAmount *big.Int) (*vault.Vault, error) {
	account, err := addr20(owner)
	if err != nil {
		return nil, err
	}
	var row *vault.Vault
	err = l.run(ctx, "vault.create_or_increase", func() error {
		var opErr error
		if row, opErr = l.vault.CreateOrIncrease(account, asset, collateralAmount, debtAmount); opErr != nil {
			return opErr
		}
		return l.bumpNonce(owner)
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// AddVaultCollateral tops up collateral without touching debt.
func (l *Ledger) AddVaultCollateral(ctx context.Context, owner crypto.Address, asset string, amount *big.Int) (*vault.Vault, error) {
	account, err := addr20(owner)
	if err != nil {
		return nil, err
	}
	var row *vault.Vault
	err = l.run(ctx, "vault.add_collateral", func() error {
		var opErr error
		if row, opErr = l.vault.AddCollateral(account, asset, amount); opErr != nil {
			return opErr
		}
		return l.bumpNonce(owner)
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// RepayVault burns repayAmount plus the accrued stability fee from the owner
// and optionally releases collateral. The returned amount is the fee charged.
func (l *Ledger) RepayVault(ctx context.Context, owner crypto.Address, asset string, repayAmount, withdrawAmount *big.Int) (*vault.Vault, *big.Int, error) {
	account, err := addr20(owner)
	if err != nil {
		return nil, nil, err
	}
	var (
		row *vault.Vault
		fee *big.Int
	)
	err = l.run(ctx, "vault.repay", func() error {
		var opErr error
		if row, fee, opErr = l.vault.Repay(account, asset, repayAmount, withdrawAmount); opErr != nil {
			return opErr
		}
		return l.bumpNonce(owner)
	})
	if err != nil {
		return nil, nil, err
	}
	return row, fee, nil
}

// LiquidateVault covers part of an undercollateralized vault's debt and
// seizes the matching collateral plus penalty. Returns the seized amount.
func (l *Ledger) LiquidateVault(ctx context.Context, liquidator, owner crypto.Address, asset string, debtToCover *big.Int) (*big.Int, error) {
	caller, err := addr20(liquidator)
	if err != nil {
		return nil, err
	}
	target, err := addr20(owner)
	if err != nil {
		return nil, err
	}
	var seized *big.Int
	err = l.run(ctx, "vault.liquidate", func() error {
		var opErr error
		if seized, opErr = l.vault.Liquidate(caller, target, asset, debtToCover); opErr != nil {
			return opErr
		}
		return l.bumpNonce(liquidator)
	})
	if err != nil {
		return nil, err
	}
	return seized, nil
}

// ListCollateralAsset admits an asset to the collateral registry. The caller
// must hold the collateral admin role.
func (l *Ledger) ListCollateralAsset(ctx context.Context, caller crypto.Address, asset string) error {
	account, err := addr20(caller)
	if err != nil {
		return err
	}
	return l.run(ctx, "vault.list_collateral", func() error {
		if err := l.vault.ListCollateralAsset(account, asset); err != nil {
			return err
		}
		return l.bumpNonce(caller)
	})
}

// DelistCollateralAsset removes an asset from the registry. Existing vaults
// keep operating; only new positions are gated.
func (l *Ledger) DelistCollateralAsset(ctx context.Context, caller crypto.Address, asset string) error {
	account, err := addr20(caller)
	if err != nil {
		return err
	}
	return l.run(ctx, "vault.delist_collateral", func() error {
		if err := l.vault.DelistCollateralAsset(account, asset); err != nil {
			return err
		}
		return l.bumpNonce(caller)
	})
}

// Vault returns the owner's vault row, or nil when none exists.
func (l *Ledger) Vault(owner crypto.Address) (*vault.Vault, error) {
	account, err := addr20(owner)
	if err != nil {
		return nil, err
	}
	return l.vault.Vault(account)
}

// VaultAccruedDebt projects the owner's debt including the stability fee
// accrued up to now, without mutating anything.
func (l *Ledger) VaultAccruedDebt(owner crypto.Address) (*big.Int, error) {
	account, err := addr20(owner)
	if err != nil {
		return nil, err
	}
	return l.vault.AccruedDebt(account)
}

// SupportedCollateral lists the registry's current members.
func (l *Ledger) SupportedCollateral() ([]string, error) {
	return l.vault.SupportedAssets()
}

// VaultRiskParams returns the risk settings currently enforced.
func (l *Ledger) VaultRiskParams() params.VaultRisk {
	return l.vault.RiskParams()
}

// --- Reward pool operations ---

func (l *Ledger) poolEngine(id string) (*rewardpool.Engine, error) {
	engine, ok := l.pools[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPool, id)
	}
	return engine, nil
}

// PoolDeposit stakes principal into the named program, paying out any reward
// pending from an earlier stake. Returns the updated membership and the
// amount paid.
func (l *Ledger) PoolDeposit(ctx context.Context, poolID string, account crypto.Address, amount *big.Int) (*rewardpool.Participant, *big.Int, error) {
	member, err := addr20(account)
	if err != nil {
		return nil, nil, err
	}
	engine, err := l.poolEngine(poolID)
	if err != nil {
		return nil, nil, err
	}
	var (
		row  *rewardpool.Participant
		paid *big.Int
	)
	err = l.run(ctx, "pool.deposit", func() error {
		var opErr error
		if row, paid, opErr = engine.Deposit(member, amount); opErr != nil {
			return opErr
		}
		return l.bumpNonce(account)
	})
	if err != nil {
		return nil, nil, err
	}
	return row, paid, nil
}

// PoolWithdraw unstakes principal, paying out the pending reward first.
func (l *Ledger) PoolWithdraw(ctx context.Context, poolID string, account crypto.Address, amount *big.Int) (*rewardpool.Participant, *big.Int, error) {
	member, err := addr20(account)
	if err != nil {
		return nil, nil, err
	}
	engine, err := l.poolEngine(poolID)
	if err != nil {
		return nil, nil, err
	}
	var (
		row  *rewardpool.Participant
		paid *big.Int
	)
	err = l.run(ctx, "pool.withdraw", func() error {
		var opErr error
		if row, paid, opErr = engine.Withdraw(member, amount); opErr != nil {
			return opErr
		}
		return l.bumpNonce(account)
	})
	if err != nil {
		return nil, nil, err
	}
	return row, paid, nil
}

// PoolClaim pays out the caller's pending reward.
func (l *Ledger) PoolClaim(ctx context.Context, poolID string, account crypto.Address) (*big.Int, error) {
	member, err := addr20(account)
	if err != nil {
		return nil, err
	}
	engine, err := l.poolEngine(poolID)
	if err != nil {
		return nil, err
	}
	var paid *big.Int
	err = l.run(ctx, "pool.claim", func() error {
		var opErr error
		if paid, opErr = engine.Claim(member); opErr != nil {
			return opErr
		}
		return l.bumpNonce(account)
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// PoolCheckpoint advances the named pool's accumulator to the current clock
// without touching any stake.
func (l *Ledger) PoolCheckpoint(ctx context.Context, poolID string) error {
	engine, err := l.poolEngine(poolID)
	if err != nil {
		return err
	}
	return l.run(ctx, "pool.checkpoint", engine.Checkpoint)
}

// PendingReward projects the account's claimable reward as of now.
func (l *Ledger) PendingReward(poolID string, account crypto.Address) (*big.Int, error) {
	member, err := addr20(account)
	if err != nil {
		return nil, err
	}
	engine, err := l.poolEngine(poolID)
	if err != nil {
		return nil, err
	}
	return engine.PendingReward(member)
}

// Pool returns the named pool's aggregate row.
func (l *Ledger) Pool(poolID string) (*rewardpool.Pool, error) {
	engine, err := l.poolEngine(poolID)
	if err != nil {
		return nil, err
	}
	return engine.Pool()
}

// PoolParticipant returns the account's membership in the named pool, or nil
// when it never joined.
func (l *Ledger) PoolParticipant(poolID string, account crypto.Address) (*rewardpool.Participant, error) {
	member, err := addr20(account)
	if err != nil {
		return nil, err
	}
	engine, err := l.poolEngine(poolID)
	if err != nil {
		return nil, err
	}
	return engine.Participant(member)
}

// --- Governance operations ---

// SubmitProposal opens a parameter-change proposal. The proposer must hold at
// least the policy's threshold of the voting asset.
func (l *Ledger) SubmitProposal(ctx context.Context, proposer crypto.Address, description string, changes []governance.ParamChange) (*governance.Proposal, error) {
	account, err := addr20(proposer)
	if err != nil {
		return nil, err
	}
	var proposal *governance.Proposal
	err = l.run(ctx, "gov.propose", func() error {
		var opErr error
		if proposal, opErr = l.governance.Propose(account, description, changes); opErr != nil {
			return opErr
		}
		return l.bumpNonce(proposer)
	})
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

// CastVote records the voter's ballot, weighted by the snapshot balance at
// the proposal's start.
func (l *Ledger) CastVote(ctx context.Context, proposalID uint64, voter crypto.Address, support bool) (*governance.Vote, error) {
	account, err := addr20(voter)
	if err != nil {
		return nil, err
	}
	var vote *governance.Vote
	err = l.run(ctx, "gov.vote", func() error {
		var opErr error
		if vote, opErr = l.governance.CastVote(proposalID, account, support); opErr != nil {
			return opErr
		}
		return l.bumpNonce(voter)
	})
	if err != nil {
		return nil, err
	}
	return vote, nil
}

// ExecuteProposal applies a passed proposal's parameter changes to the store
// and the live engines.
func (l *Ledger) ExecuteProposal(ctx context.Context, proposalID uint64, caller crypto.Address) error {
	account, err := addr20(caller)
	if err != nil {
		return err
	}
	return l.run(ctx, "gov.execute", func() error {
		if err := l.governance.Execute(proposalID, account); err != nil {
			return err
		}
		return l.bumpNonce(caller)
	})
}

// Proposal returns the stored proposal.
func (l *Ledger) Proposal(proposalID uint64) (*governance.Proposal, error) {
	return l.governance.Proposal(proposalID)
}

// ProposalPhase derives the proposal's phase at the given instant.
func (l *Ledger) ProposalPhase(proposalID uint64, at time.Time) (governance.ProposalStatus, error) {
	return l.governance.ProposalPhase(proposalID, at)
}

// Votes lists the recorded ballots in first-vote order.
func (l *Ledger) Votes(proposalID uint64) ([]*governance.Vote, error) {
	return l.governance.Votes(proposalID)
}

// GovernancePolicy returns the active proposal policy.
func (l *Ledger) GovernancePolicy() governance.Policy {
	return l.governance.Policy()
}

// --- Views ---

// BalanceOf returns the account's balance of the given token.
func (l *Ledger) BalanceOf(symbol string, addr crypto.Address) (*big.Int, error) {
	account, err := addr20(addr)
	if err != nil {
		return nil, err
	}
	return l.manager.Balance(symbol, account[:])
}

// TotalSupply returns the token's live total supply.
func (l *Ledger) TotalSupply(symbol string) (*big.Int, error) {
	return l.manager.TotalSupply(symbol)
}

// Account returns the per-account metadata (currently the operation nonce).
func (l *Ledger) Account(addr crypto.Address) (*types.Account, error) {
	account, err := addr20(addr)
	if err != nil {
		return nil, err
	}
	return l.manager.GetAccount(account[:])
}

// bumpNonce counts one applied operation against the acting account.
func (l *Ledger) bumpNonce(addr crypto.Address) error {
	_, err := l.manager.BumpNonce(addr.Bytes())
	return err
}

func addr20(addr crypto.Address) ([20]byte, error) {
	var out [20]byte
	raw := addr.Bytes()
	if len(raw) != len(out) {
		return out, ErrInvalidAddress
	}
	copy(out[:], raw)
	return out, nil
}


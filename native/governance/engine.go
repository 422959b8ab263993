package governance

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"meridian/core/events"
	"meridian/crypto"
	nativecommon "meridian/native/common"
	"meridian/native/params"
	"meridian/observability/metrics"
)

var (
	ErrProposalNotFound       = errors.New("governance: proposal not found")
	ErrBelowProposalThreshold = errors.New("governance: proposer balance below proposal threshold")
	ErrEmptyPayload           = errors.New("governance: proposal payload must name at least one parameter")
	ErrParamNotAllowed        = errors.New("governance: parameter not governable")
	ErrVotingNotActive        = errors.New("governance: proposal is not in its voting window")
	ErrAlreadyVoted           = errors.New("governance: voter already cast a ballot")
	ErrNoVotingPower          = errors.New("governance: voter held no balance at the snapshot")
	ErrVotingNotEnded         = errors.New("governance: voting window has not ended")
	ErrAlreadyExecuted        = errors.New("governance: proposal already executed")
	ErrProposalNotSucceeded   = errors.New("governance: proposal did not succeed")
	ErrExecutionExpired       = errors.New("governance: execution grace window elapsed")
)

var errNilState = errors.New("governance: state not configured")

const (
	// DefaultVotingAsset is the token whose balances carry voting power.
	DefaultVotingAsset = "MDN"

	moduleName        = "governance"
	quorumDenominator = 10_000
)

// Policy captures the fixed rules applied to every proposal. The engine
// treats it as a snapshot; genesis is the only writer.
type Policy struct {
	ProposalThreshold     *big.Int
	VotingDelaySeconds    uint64
	VotingPeriodSeconds   uint64
	ExecutionGraceSeconds uint64
	QuorumBps             uint64
	AllowedParams         []string
}

// Validate rejects configurations that could never run a vote to completion.
func (p Policy) Validate() error {
	if p.ProposalThreshold != nil && p.ProposalThreshold.Sign() < 0 {
		return fmt.Errorf("governance: proposal threshold must not be negative")
	}
	if p.VotingPeriodSeconds == 0 {
		return fmt.Errorf("governance: voting period must be positive")
	}
	if p.QuorumBps > quorumDenominator {
		return fmt.Errorf("governance: quorum %d exceeds %d basis points", p.QuorumBps, quorumDenominator)
	}
	return nil
}

type proposalState interface {
	GovernanceNextProposalID() (uint64, error)
	GovernancePutProposal(p *Proposal) error
	GovernanceGetProposal(id uint64) (*Proposal, bool, error)
	GovernancePutVote(v *Vote) error
	GovernanceGetVote(id uint64, voter []byte) (*Vote, bool, error)
	GovernanceListVotes(id uint64) ([]*Vote, error)
	Balance(symbol string, addr []byte) (*big.Int, error)
	BalanceAt(symbol string, addr []byte, at uint64) (*big.Int, error)
	TotalSupply(symbol string) (*big.Int, error)
	ParamStoreSet(name string, value []byte) error
}

// Engine runs the proposal lifecycle: admission, snapshot-weighted voting,
// and execution against the parameter store. Ballots are weighted by the
// voting asset balance at the proposal's StartTime so transfers during the
// window cannot double count, and phases are derived from the clock rather
// than stored.
type Engine struct {
	state          proposalState
	emitter        events.Emitter
	pauses         nativecommon.PauseView
	asset          string
	threshold      *big.Int
	votingDelay    uint64
	votingPeriod   uint64
	executionGrace uint64
	quorumBps      uint64
	allowed        map[string]struct{}
	appliers       map[string]func(value []byte) error
	nowFn          func() time.Time
	telemetry      *metrics.GovernanceMetrics
}

func NewEngine() *Engine {
	return &Engine{
		emitter:   events.NoopEmitter{},
		asset:     DefaultVotingAsset,
		threshold: big.NewInt(0),
		allowed:   map[string]struct{}{},
		appliers:  map[string]func(value []byte) error{},
		nowFn:     time.Now,
		telemetry: metrics.Governance(),
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state proposalState) {
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

// SetNowFunc overrides the engine clock.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if e == nil {
		return
	}
	if now == nil {
		now = time.Now
	}
	e.nowFn = now
}

// SetVotingAsset overrides the token whose balances carry voting power.
func (e *Engine) SetVotingAsset(asset string) {
	if e == nil {
		return
	}
	normalized := normalizeAsset(asset)
	if normalized == "" {
		normalized = DefaultVotingAsset
	}
	e.asset = normalized
}

// SetPolicy validates and installs the governance rules. The allow-list is
// normalised into a set; blank entries are dropped.
func (e *Engine) SetPolicy(p Policy) error {
	if e == nil {
		return errNilState
	}
	if err := p.Validate(); err != nil {
		return err
	}
	threshold := big.NewInt(0)
	if p.ProposalThreshold != nil {
		threshold = new(big.Int).Set(p.ProposalThreshold)
	}
	allowed := make(map[string]struct{}, len(p.AllowedParams))
	for _, name := range p.AllowedParams {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}
	e.threshold = threshold
	e.votingDelay = p.VotingDelaySeconds
	e.votingPeriod = p.VotingPeriodSeconds
	e.executionGrace = p.ExecutionGraceSeconds
	e.quorumBps = p.QuorumBps
	e.allowed = allowed
	return nil
}

// Policy returns a copy of the installed governance rules.
func (e *Engine) Policy() Policy {
	if e == nil {
		return Policy{}
	}
	allowed := make([]string, 0, len(e.allowed))
	for name := range e.allowed {
		allowed = append(allowed, name)
	}
	sort.Strings(allowed)
	return Policy{
		ProposalThreshold:     new(big.Int).Set(e.threshold),
		VotingDelaySeconds:    e.votingDelay,
		VotingPeriodSeconds:   e.votingPeriod,
		ExecutionGraceSeconds: e.executionGrace,
		QuorumBps:             e.quorumBps,
		AllowedParams:         allowed,
	}
}

// RegisterApplier binds a parameter name to a callback invoked after the
// value is written to the store. Execution fails when the callback rejects
// the value, keeping engines and store in step under the ledger's revert.
func (e *Engine) RegisterApplier(name string, apply func(value []byte) error) {
	if e == nil || apply == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	e.appliers[trimmed] = apply
}

// Propose admits a parameter-change proposal. The payload is validated and
// canonicalised up front, the proposer's live balance is checked against the
// threshold, and the voting window is scheduled from the current clock.
func (e *Engine) Propose(proposer [20]byte, description string, changes []ParamChange) (*Proposal, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	canonical, err := e.canonicalizeChanges(changes)
	if err != nil {
		return nil, err
	}
	if e.threshold.Sign() > 0 {
		balance, err := e.state.Balance(e.asset, proposer[:])
		if err != nil {
			return nil, err
		}
		if balance == nil || balance.Cmp(e.threshold) < 0 {
			return nil, ErrBelowProposalThreshold
		}
	}
	id, err := e.state.GovernanceNextProposalID()
	if err != nil {
		return nil, err
	}
	now := e.nowUnix()
	proposal := (&Proposal{
		ID:          id,
		Proposer:    crypto.NewAddress(append([]byte(nil), proposer[:]...)),
		Description: strings.TrimSpace(description),
		Changes:     canonical,
		StartTime:   now + e.votingDelay,
	}).withDefaults()
	proposal.EndTime = proposal.StartTime + e.votingPeriod
	if err := e.state.GovernancePutProposal(proposal); err != nil {
		return nil, err
	}
	e.telemetry.ObserveProposal()
	e.emit(events.ProposalCreated{
		ID:        proposal.ID,
		Proposer:  proposer,
		Params:    changeNames(proposal.Changes),
		StartTime: proposal.StartTime,
		EndTime:   proposal.EndTime,
	})
	return proposal.Clone(), nil
}

// CastVote records a ballot on an active proposal. The weight is the voter's
// balance of the voting asset at the proposal's StartTime; accounts that
// held nothing at the snapshot are rejected even if funded since.
func (e *Engine) CastVote(proposalID uint64, voter [20]byte, support bool) (*Vote, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	proposal, ok, err := e.state.GovernanceGetProposal(proposalID)
	if err != nil {
		return nil, err
	}
	if !ok || proposal == nil {
		return nil, ErrProposalNotFound
	}
	proposal = proposal.withDefaults()
	now := e.nowUnix()
	if now < proposal.StartTime || now > proposal.EndTime {
		return nil, ErrVotingNotActive
	}
	if _, exists, err := e.state.GovernanceGetVote(proposalID, voter[:]); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrAlreadyVoted
	}
	weight, err := e.state.BalanceAt(e.asset, voter[:], proposal.StartTime)
	if err != nil {
		return nil, err
	}
	if weight == nil || weight.Sign() <= 0 {
		return nil, ErrNoVotingPower
	}
	if support {
		proposal.ForVotes = new(big.Int).Add(proposal.ForVotes, weight)
	} else {
		proposal.AgainstVotes = new(big.Int).Add(proposal.AgainstVotes, weight)
	}
	vote := &Vote{
		ProposalID: proposalID,
		Voter:      crypto.NewAddress(append([]byte(nil), voter[:]...)),
		Support:    support,
		Weight:     new(big.Int).Set(weight),
		Timestamp:  now,
	}
	if err := e.state.GovernancePutVote(vote); err != nil {
		return nil, err
	}
	if err := e.state.GovernancePutProposal(proposal); err != nil {
		return nil, err
	}
	e.telemetry.ObserveVote(support)
	e.emit(events.VoteCast{
		ProposalID: proposalID,
		Voter:      voter,
		Support:    support,
		Weight:     new(big.Int).Set(weight),
	})
	return vote.Clone(), nil
}

// Execute applies a succeeded proposal's payload to the parameter store and
// notifies registered appliers. The full payload is re-validated before the
// first write so a bad change cannot leave the store half applied.
func (e *Engine) Execute(proposalID uint64, caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	proposal, ok, err := e.state.GovernanceGetProposal(proposalID)
	if err != nil {
		return err
	}
	if !ok || proposal == nil {
		return ErrProposalNotFound
	}
	proposal = proposal.withDefaults()
	if proposal.Executed {
		return ErrAlreadyExecuted
	}
	now := e.nowUnix()
	if now <= proposal.EndTime {
		return ErrVotingNotEnded
	}
	if now > proposal.EndTime+e.executionGrace {
		return ErrExecutionExpired
	}
	passed, err := e.tallyPassed(proposal)
	if err != nil {
		return err
	}
	if !passed {
		return ErrProposalNotSucceeded
	}
	values := make([][]byte, len(proposal.Changes))
	for i, change := range proposal.Changes {
		value, err := params.DecodeValue(change.Name, change.Value)
		if err != nil {
			return err
		}
		values[i] = value
	}
	for i, change := range proposal.Changes {
		if err := e.state.ParamStoreSet(change.Name, values[i]); err != nil {
			return err
		}
	}
	for i, change := range proposal.Changes {
		apply, ok := e.appliers[change.Name]
		if !ok {
			continue
		}
		if err := apply(values[i]); err != nil {
			return err
		}
	}
	proposal.Executed = true
	if err := e.state.GovernancePutProposal(proposal); err != nil {
		return err
	}
	e.telemetry.ObserveExecution()
	for i, change := range proposal.Changes {
		e.emit(events.ParamUpdated{
			ProposalID: proposalID,
			Name:       change.Name,
			Value:      values[i],
		})
	}
	e.emit(events.ProposalExecuted{
		ID:     proposalID,
		Caller: caller,
		Params: changeNames(proposal.Changes),
	})
	return nil
}

// ProposalPhase derives the proposal's phase at the supplied instant. The
// tally is only consulted once the voting window has closed.
func (e *Engine) ProposalPhase(proposalID uint64, at time.Time) (ProposalStatus, error) {
	if e == nil || e.state == nil {
		return ProposalStatusUnspecified, errNilState
	}
	proposal, ok, err := e.state.GovernanceGetProposal(proposalID)
	if err != nil {
		return ProposalStatusUnspecified, err
	}
	if !ok || proposal == nil {
		return ProposalStatusUnspecified, ErrProposalNotFound
	}
	proposal = proposal.withDefaults()
	now := unixSeconds(at)
	if proposal.Executed || now <= proposal.EndTime {
		return proposal.PhaseAt(now, e.executionGrace, false), nil
	}
	passed, err := e.tallyPassed(proposal)
	if err != nil {
		return ProposalStatusUnspecified, err
	}
	return proposal.PhaseAt(now, e.executionGrace, passed), nil
}

// Proposal returns a copy of the stored proposal row.
func (e *Engine) Proposal(proposalID uint64) (*Proposal, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	proposal, ok, err := e.state.GovernanceGetProposal(proposalID)
	if err != nil {
		return nil, err
	}
	if !ok || proposal == nil {
		return nil, ErrProposalNotFound
	}
	return proposal.Clone(), nil
}

// Votes returns copies of every ballot recorded for the proposal.
func (e *Engine) Votes(proposalID uint64) ([]*Vote, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if _, ok, err := e.state.GovernanceGetProposal(proposalID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrProposalNotFound
	}
	votes, err := e.state.GovernanceListVotes(proposalID)
	if err != nil {
		return nil, err
	}
	out := make([]*Vote, 0, len(votes))
	for _, vote := range votes {
		if vote == nil {
			continue
		}
		out = append(out, vote.Clone())
	}
	return out, nil
}

// tallyPassed evaluates strict majority and quorum. Quorum is measured
// against the live total supply of the voting asset at evaluation time, so
// supply minted after the snapshot still raises the bar.
func (e *Engine) tallyPassed(proposal *Proposal) (bool, error) {
	if proposal.ForVotes.Cmp(proposal.AgainstVotes) <= 0 {
		return false, nil
	}
	supply, err := e.state.TotalSupply(e.asset)
	if err != nil {
		return false, err
	}
	if supply == nil {
		supply = big.NewInt(0)
	}
	lhs := new(big.Int).Mul(proposal.ForVotes, big.NewInt(quorumDenominator))
	rhs := new(big.Int).Mul(new(big.Int).SetUint64(e.quorumBps), supply)
	return lhs.Cmp(rhs) > 0, nil
}

func (e *Engine) canonicalizeChanges(changes []ParamChange) ([]ParamChange, error) {
	if len(changes) == 0 {
		return nil, ErrEmptyPayload
	}
	out := make([]ParamChange, 0, len(changes))
	for _, change := range changes {
		name := strings.TrimSpace(change.Name)
		if name == "" {
			return nil, ErrParamNotAllowed
		}
		if _, ok := e.allowed[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrParamNotAllowed, name)
		}
		value, err := params.DecodeValue(name, change.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, ParamChange{Name: name, Value: value})
	}
	return out, nil
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) nowUnix() uint64 {
	nowFn := time.Now
	if e != nil && e.nowFn != nil {
		nowFn = e.nowFn
	}
	return unixSeconds(nowFn())
}

func changeNames(changes []ParamChange) []string {
	names := make([]string, len(changes))
	for i, change := range changes {
		names[i] = change.Name
	}
	return names
}

func unixSeconds(t time.Time) uint64 {
	ts := t.Unix()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func normalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}

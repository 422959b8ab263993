package events

import (
	"math/big"
	"strconv"
	"strings"

	"meridian/core/types"
	"meridian/crypto"
)

const (
	// TypeProposalCreated announces a proposal admitted into the voting
	// schedule.
	TypeProposalCreated = "governance.proposed"
	// TypeVoteCast records a ballot together with its snapshot weight.
	TypeVoteCast = "governance.voted"
	// TypeProposalExecuted marks a proposal whose payload has been applied.
	TypeProposalExecuted = "governance.executed"
	// TypeParamUpdated records one governed parameter write during execution.
	TypeParamUpdated = "params.updated"
)

// ProposalCreated captures the schedule assigned to a new proposal.
type ProposalCreated struct {
	ID        uint64
	Proposer  [20]byte
	Params    []string
	StartTime uint64
	EndTime   uint64
}

// EventType satisfies the Event interface.
func (ProposalCreated) EventType() string { return TypeProposalCreated }

// Event converts the structured payload into a broadcastable event.
func (e ProposalCreated) Event() *types.Event {
	return &types.Event{Type: TypeProposalCreated, Attributes: map[string]string{
		"id":        strconv.FormatUint(e.ID, 10),
		"proposer":  crypto.NewAddress(e.Proposer[:]).String(),
		"params":    strings.Join(e.Params, ","),
		"voteStart": strconv.FormatUint(e.StartTime, 10),
		"voteEnd":   strconv.FormatUint(e.EndTime, 10),
	}}
}

// VoteCast captures a single ballot on an active proposal.
type VoteCast struct {
	ProposalID uint64
	Voter      [20]byte
	Support    bool
	Weight     *big.Int
}

// EventType satisfies the Event interface.
func (VoteCast) EventType() string { return TypeVoteCast }

// Event converts the structured payload into a broadcastable event.
func (e VoteCast) Event() *types.Event {
	support := "against"
	if e.Support {
		support = "for"
	}
	return &types.Event{Type: TypeVoteCast, Attributes: map[string]string{
		"id":      strconv.FormatUint(e.ProposalID, 10),
		"addr":    crypto.NewAddress(e.Voter[:]).String(),
		"support": support,
		"weight":  formatAmount(e.Weight),
	}}
}

// ProposalExecuted captures the application of a passed proposal's payload.
type ProposalExecuted struct {
	ID     uint64
	Caller [20]byte
	Params []string
}

// EventType satisfies the Event interface.
func (ProposalExecuted) EventType() string { return TypeProposalExecuted }

// Event converts the structured payload into a broadcastable event.
func (e ProposalExecuted) Event() *types.Event {
	return &types.Event{Type: TypeProposalExecuted, Attributes: map[string]string{
		"id":     strconv.FormatUint(e.ID, 10),
		"caller": crypto.NewAddress(e.Caller[:]).String(),
		"params": strings.Join(e.Params, ","),
	}}
}

// ParamUpdated captures one parameter write performed by an executed
// proposal. The value is the canonical JSON, so journal entries read as the
// exact payload the store now holds.
type ParamUpdated struct {
	ProposalID uint64
	Name       string
	Value      []byte
}

// EventType satisfies the Event interface.
func (ParamUpdated) EventType() string { return TypeParamUpdated }

// Event converts the structured payload into a broadcastable event.
func (e ParamUpdated) Event() *types.Event {
	return &types.Event{Type: TypeParamUpdated, Attributes: map[string]string{
		"id":    strconv.FormatUint(e.ProposalID, 10),
		"name":  e.Name,
		"value": string(e.Value),
	}}
}

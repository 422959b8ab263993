package governance

import (
	"encoding/json"
	"math/big"

	"meridian/crypto"
)

// ProposalStatus enumerates the lifecycle phases of a proposal. Phases are
// derived from the clock and the executed flag rather than stored, so a row
// can always be re-evaluated without a background transition job.
type ProposalStatus uint8

const (
	// ProposalStatusUnspecified indicates the proposal has not been
	// initialised and should not appear in state.
	ProposalStatusUnspecified ProposalStatus = iota
	// ProposalStatusPending identifies proposals waiting out the voting
	// delay before ballots are accepted.
	ProposalStatusPending
	// ProposalStatusActive identifies proposals currently accepting votes.
	ProposalStatusActive
	// ProposalStatusSucceeded marks proposals that won their vote and sit
	// inside the execution grace window.
	ProposalStatusSucceeded
	// ProposalStatusDefeated marks proposals that failed quorum or the
	// majority test once voting closed. Terminal.
	ProposalStatusDefeated
	// ProposalStatusExecuted marks proposals whose payload has been applied
	// to the parameter store. Terminal.
	ProposalStatusExecuted
	// ProposalStatusExpired marks succeeded proposals whose grace window
	// elapsed without execution. Terminal.
	ProposalStatusExpired
)

// StatusString provides a developer-friendly textual representation of the
// status suitable for logs and APIs.
func (s ProposalStatus) StatusString() string {
	switch s {
	case ProposalStatusPending:
		return "pending"
	case ProposalStatusActive:
		return "active"
	case ProposalStatusSucceeded:
		return "succeeded"
	case ProposalStatusDefeated:
		return "defeated"
	case ProposalStatusExecuted:
		return "executed"
	case ProposalStatusExpired:
		return "expired"
	default:
		return "unspecified"
	}
}

// ParamChange names one governed parameter and the JSON value proposed for
// it. Values are canonicalised at admission so execution replays exactly the
// bytes that were voted on.
type ParamChange struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// Proposal captures a parameter-change proposal together with its voting
// schedule and running tallies. It intentionally mirrors the persistence
// contract so off-chain indexers can decode rows without extra mapping.
type Proposal struct {
	ID           uint64         `json:"id"`
	Proposer     crypto.Address `json:"proposer"`
	Description  string         `json:"description"`
	Changes      []ParamChange  `json:"changes"`
	ForVotes     *big.Int       `json:"for_votes"`
	AgainstVotes *big.Int       `json:"against_votes"`
	StartTime    uint64         `json:"start_time"`
	EndTime      uint64         `json:"end_time"`
	Executed     bool           `json:"executed"`
}

// Clone returns a deep copy of the proposal safe to hand to callers.
func (p *Proposal) Clone() *Proposal {
	if p == nil {
		return nil
	}
	out := &Proposal{
		ID:          p.ID,
		Proposer:    p.Proposer,
		Description: p.Description,
		StartTime:   p.StartTime,
		EndTime:     p.EndTime,
		Executed:    p.Executed,
	}
	if len(p.Changes) > 0 {
		out.Changes = make([]ParamChange, len(p.Changes))
		for i, change := range p.Changes {
			out.Changes[i] = ParamChange{
				Name:  change.Name,
				Value: append(json.RawMessage(nil), change.Value...),
			}
		}
	}
	if p.ForVotes != nil {
		out.ForVotes = new(big.Int).Set(p.ForVotes)
	}
	if p.AgainstVotes != nil {
		out.AgainstVotes = new(big.Int).Set(p.AgainstVotes)
	}
	return out.withDefaults()
}

func (p *Proposal) withDefaults() *Proposal {
	if p == nil {
		return nil
	}
	if p.ForVotes == nil {
		p.ForVotes = big.NewInt(0)
	}
	if p.AgainstVotes == nil {
		p.AgainstVotes = big.NewInt(0)
	}
	return p
}

// PhaseAt derives the proposal's phase at the supplied unix instant. The
// passed flag reports the tally outcome and only matters once voting has
// closed; callers evaluating earlier phases may pass false.
func (p *Proposal) PhaseAt(now uint64, graceSeconds uint64, passed bool) ProposalStatus {
	if p == nil {
		return ProposalStatusUnspecified
	}
	if p.Executed {
		return ProposalStatusExecuted
	}
	if now < p.StartTime {
		return ProposalStatusPending
	}
	if now <= p.EndTime {
		return ProposalStatusActive
	}
	if !passed {
		return ProposalStatusDefeated
	}
	if now > p.EndTime+graceSeconds {
		return ProposalStatusExpired
	}
	return ProposalStatusSucceeded
}

// Vote records a single ballot together with the snapshot weight it carried.
type Vote struct {
	ProposalID uint64         `json:"proposal_id"`
	Voter      crypto.Address `json:"voter"`
	Support    bool           `json:"support"`
	Weight     *big.Int       `json:"weight"`
	Timestamp  uint64         `json:"timestamp"`
}

// Clone returns a deep copy of the vote safe to hand to callers.
func (v *Vote) Clone() *Vote {
	if v == nil {
		return nil
	}
	out := &Vote{
		ProposalID: v.ProposalID,
		Voter:      v.Voter,
		Support:    v.Support,
		Timestamp:  v.Timestamp,
	}
	if v.Weight != nil {
		out.Weight = new(big.Int).Set(v.Weight)
	} else {
		out.Weight = big.NewInt(0)
	}
	return out
}

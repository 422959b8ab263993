package state

import (
	"encoding/json"
	"fmt"
	"strings"

	"meridian/native/governance"
)

// Governance rows persist as JSON rather than RLP. Proposals carry a
// variable-length parameter payload that is itself JSON, and keeping the
// whole row in one encoding makes stored proposals greppable in debug dumps.

// GovernanceNextProposalID reserves and returns the next proposal id. The
// first id handed out is 1.
func (m *Manager) GovernanceNextProposalID() (uint64, error) {
	var current uint64
	if _, err := m.KVGet(GovernanceSequenceKey(), &current); err != nil {
		return 0, err
	}
	next := current + 1
	if err := m.KVPut(GovernanceSequenceKey(), next); err != nil {
		return 0, err
	}
	return next, nil
}

// GovernancePutProposal persists the proposal row, overwriting any previous
// version.
func (m *Manager) GovernancePutProposal(p *governance.Proposal) error {
	if p == nil {
		return fmt.Errorf("state: proposal must not be nil")
	}
	if p.ID == 0 {
		return fmt.Errorf("state: proposal id must be set")
	}
	raw, err := json.Marshal(p.Clone())
	if err != nil {
		return err
	}
	return m.KVPut(GovernanceProposalKey(p.ID), raw)
}

// GovernanceGetProposal loads a proposal row. The boolean reports whether the
// proposal exists.
func (m *Manager) GovernanceGetProposal(id uint64) (*governance.Proposal, bool, error) {
	var raw []byte
	ok, err := m.KVGet(GovernanceProposalKey(id), &raw)
	if err != nil || !ok {
		return nil, false, err
	}
	proposal := new(governance.Proposal)
	if err := json.Unmarshal(raw, proposal); err != nil {
		return nil, false, err
	}
	return proposal.Clone(), true, nil
}

// GovernancePutVote persists one ballot and records the voter in the
// per-proposal index. Re-voting overwrites the ballot without growing the
// index.
func (m *Manager) GovernancePutVote(v *governance.Vote) error {
	if v == nil {
		return fmt.Errorf("state: vote must not be nil")
	}
	if v.ProposalID == 0 {
		return fmt.Errorf("state: vote proposal id must be set")
	}
	voter := v.Voter.Bytes()
	if len(voter) == 0 {
		return fmt.Errorf("state: vote voter must not be empty")
	}
	raw, err := json.Marshal(v.Clone())
	if err != nil {
		return err
	}
	if err := m.KVPut(GovernanceVoteKey(v.ProposalID, voter), raw); err != nil {
		return err
	}
	return m.KVAppend(GovernanceVoterIndexKey(v.ProposalID), voter)
}

// GovernanceGetVote loads the ballot one voter cast on a proposal.
func (m *Manager) GovernanceGetVote(id uint64, voter []byte) (*governance.Vote, bool, error) {
	if len(voter) == 0 {
		return nil, false, fmt.Errorf("state: vote voter must not be empty")
	}
	var raw []byte
	ok, err := m.KVGet(GovernanceVoteKey(id, voter), &raw)
	if err != nil || !ok {
		return nil, false, err
	}
	vote := new(governance.Vote)
	if err := json.Unmarshal(raw, vote); err != nil {
		return nil, false, err
	}
	return vote.Clone(), true, nil
}

// GovernanceListVotes returns every ballot cast on a proposal in index order,
// which is first-vote order because the index never records a voter twice.
func (m *Manager) GovernanceListVotes(id uint64) ([]*governance.Vote, error) {
	var voters [][]byte
	if err := m.KVGetList(GovernanceVoterIndexKey(id), &voters); err != nil {
		return nil, err
	}
	votes := make([]*governance.Vote, 0, len(voters))
	for _, voter := range voters {
		vote, ok, err := m.GovernanceGetVote(id, voter)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		votes = append(votes, vote)
	}
	return votes, nil
}

// ParamStoreSet persists the canonical encoding of a governed parameter.
func (m *Manager) ParamStoreSet(name string, value []byte) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("state: parameter name must not be empty")
	}
	return m.KVPut(ParamStoreKey(trimmed), value)
}

// ParamStoreGet returns the stored value for a governed parameter. The
// boolean reports whether the parameter has ever been written.
func (m *Manager) ParamStoreGet(name string) ([]byte, bool, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, false, fmt.Errorf("state: parameter name must not be empty")
	}
	var raw []byte
	ok, err := m.KVGet(ParamStoreKey(trimmed), &raw)
	if err != nil || !ok {
		return nil, false, err
	}
	return raw, true, nil
}

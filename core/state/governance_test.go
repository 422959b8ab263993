package state

import (
	"bytes"
	"encoding/json"
	"math/big"
	"testing"

	"meridian/crypto"
	"meridian/native/governance"
)

func govTestAddr(b byte) crypto.Address {
	return crypto.NewAddress(bytes.Repeat([]byte{b}, 20))
}

func TestGovernanceProposalSequence(t *testing.T) {
	mgr := newTestManager(t)

	first, err := mgr.GovernanceNextProposalID()
	if err != nil {
		t.Fatalf("first id: %v", err)
	}
	if first != 1 {
		t.Fatalf("expected first id 1, got %d", first)
	}
	second, err := mgr.GovernanceNextProposalID()
	if err != nil {
		t.Fatalf("second id: %v", err)
	}
	if second != 2 {
		t.Fatalf("expected second id 2, got %d", second)
	}
}

func TestGovernanceProposalRoundTrip(t *testing.T) {
	mgr := newTestManager(t)
	proposer := govTestAddr(0x01)

	proposal := &governance.Proposal{
		ID:          7,
		Proposer:    proposer,
		Description: "raise minimum collateral ratio",
		Changes: []governance.ParamChange{{
			Name:  "vault.risk",
			Value: json.RawMessage(`{"minCollateralRatio":160,"liquidationThreshold":130,"stabilityFeeBps":400,"liquidationPenalty":110}`),
		}},
		ForVotes:     big.NewInt(10),
		AgainstVotes: big.NewInt(3),
		StartTime:    100,
		EndTime:      200,
	}
	if err := mgr.GovernancePutProposal(proposal); err != nil {
		t.Fatalf("put proposal: %v", err)
	}

	if _, ok, err := mgr.GovernanceGetProposal(99); err != nil || ok {
		t.Fatalf("expected missing proposal, got ok=%v err=%v", ok, err)
	}

	got, ok, err := mgr.GovernanceGetProposal(7)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if !ok || got == nil {
		t.Fatalf("stored proposal missing")
	}
	if got.ID != 7 || got.Description != proposal.Description {
		t.Fatalf("unexpected proposal: %+v", got)
	}
	if got.Proposer.String() != proposer.String() {
		t.Fatalf("proposer did not survive encoding: %s", got.Proposer.String())
	}
	if len(got.Changes) != 1 || got.Changes[0].Name != "vault.risk" {
		t.Fatalf("unexpected changes: %+v", got.Changes)
	}
	if got.ForVotes.Cmp(big.NewInt(10)) != 0 || got.AgainstVotes.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("tallies did not survive encoding: %s / %s", got.ForVotes, got.AgainstVotes)
	}
	if got.StartTime != 100 || got.EndTime != 200 || got.Executed {
		t.Fatalf("window fields did not survive encoding: %+v", got)
	}

	proposal.Executed = true
	if err := mgr.GovernancePutProposal(proposal); err != nil {
		t.Fatalf("overwrite proposal: %v", err)
	}
	got, _, err = mgr.GovernanceGetProposal(7)
	if err != nil {
		t.Fatalf("reload proposal: %v", err)
	}
	if !got.Executed {
		t.Fatalf("executed flag lost on overwrite")
	}

	if err := mgr.GovernancePutProposal(nil); err == nil {
		t.Fatalf("expected nil proposal rejection")
	}
	if err := mgr.GovernancePutProposal(&governance.Proposal{}); err == nil {
		t.Fatalf("expected zero id rejection")
	}
}

func TestGovernanceVotesIndexed(t *testing.T) {
	mgr := newTestManager(t)
	alice := govTestAddr(0x01)
	bob := govTestAddr(0x02)

	if err := mgr.GovernancePutVote(&governance.Vote{
		ProposalID: 3,
		Voter:      alice,
		Support:    true,
		Weight:     big.NewInt(100),
		Timestamp:  150,
	}); err != nil {
		t.Fatalf("put first vote: %v", err)
	}
	if err := mgr.GovernancePutVote(&governance.Vote{
		ProposalID: 3,
		Voter:      bob,
		Support:    false,
		Weight:     big.NewInt(50),
		Timestamp:  151,
	}); err != nil {
		t.Fatalf("put second vote: %v", err)
	}
	// Re-voting replaces the ballot without growing the index.
	if err := mgr.GovernancePutVote(&governance.Vote{
		ProposalID: 3,
		Voter:      alice,
		Support:    false,
		Weight:     big.NewInt(100),
		Timestamp:  160,
	}); err != nil {
		t.Fatalf("replace vote: %v", err)
	}

	votes, err := mgr.GovernanceListVotes(3)
	if err != nil {
		t.Fatalf("list votes: %v", err)
	}
	if len(votes) != 2 {
		t.Fatalf("expected two ballots, got %d", len(votes))
	}
	if votes[0].Voter.String() != alice.String() || votes[0].Support {
		t.Fatalf("first ballot not replaced in place: %+v", votes[0])
	}
	if votes[1].Voter.String() != bob.String() || votes[1].Weight.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("second ballot corrupted: %+v", votes[1])
	}

	got, ok, err := mgr.GovernanceGetVote(3, alice.Bytes())
	if err != nil {
		t.Fatalf("get vote: %v", err)
	}
	if !ok || got.Support || got.Timestamp != 160 {
		t.Fatalf("unexpected reloaded ballot: %+v", got)
	}
	if _, ok, err := mgr.GovernanceGetVote(3, testAddr(0x03)); err != nil || ok {
		t.Fatalf("expected missing ballot, got ok=%v err=%v", ok, err)
	}

	empty, err := mgr.GovernanceListVotes(99)
	if err != nil {
		t.Fatalf("list missing proposal: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no ballots, got %d", len(empty))
	}
}

func TestParamStoreRoundTrip(t *testing.T) {
	mgr := newTestManager(t)

	if _, ok, err := mgr.ParamStoreGet("vault.risk"); err != nil || ok {
		t.Fatalf("expected missing parameter, got ok=%v err=%v", ok, err)
	}

	payload := []byte(`{"minCollateralRatio":150,"liquidationThreshold":120,"stabilityFeeBps":200,"liquidationPenalty":113}`)
	if err := mgr.ParamStoreSet("vault.risk", payload); err != nil {
		t.Fatalf("set param: %v", err)
	}
	raw, ok, err := mgr.ParamStoreGet("vault.risk")
	if err != nil {
		t.Fatalf("get param: %v", err)
	}
	if !ok || !bytes.Equal(raw, payload) {
		t.Fatalf("unexpected stored value: %s", raw)
	}

	if err := mgr.ParamStoreSet("  ", payload); err == nil {
		t.Fatalf("expected empty name rejection")
	}
}

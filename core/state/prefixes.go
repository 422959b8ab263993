package state

import (
	"encoding/hex"
	"strconv"
	"strings"
)

// Logical key builders for every namespace the engines persist into. The
// Manager hashes logical keys with keccak256 before they reach the trie;
// the readable forms exist for tests, tooling, and debugging.

const (
	vaultPrefix              = "vault:"
	collateralRegistryName   = "vault/collateral-list"
	rewardPoolPrefix         = "rewardpool:"
	rewardMemberInfix        = ":member:"
	governanceProposalPrefix = "gov/proposal/"
	governanceVotePrefix     = "gov/vote/"
	governanceSequenceName   = "gov/seq"
	paramPrefix              = "params/"
	checkpointPrefix         = "chk:"
	accountPrefix            = "account:"
)

// VaultKey addresses a vault row.
func VaultKey(addr []byte) []byte {
	return []byte(vaultPrefix + hex.EncodeToString(addr))
}

// CollateralRegistryKey addresses the sorted collateral asset registry.
func CollateralRegistryKey() []byte {
	return []byte(collateralRegistryName)
}

// RewardPoolKey addresses a reward pool row.
func RewardPoolKey(id string) []byte {
	return []byte(rewardPoolPrefix + normalizePoolID(id))
}

// RewardParticipantKey addresses one participant row within a pool.
func RewardParticipantKey(id string, addr []byte) []byte {
	return []byte(rewardPoolPrefix + normalizePoolID(id) + rewardMemberInfix + hex.EncodeToString(addr))
}

// GovernanceProposalKey addresses a stored proposal.
func GovernanceProposalKey(id uint64) []byte {
	return []byte(governanceProposalPrefix + strconv.FormatUint(id, 10))
}

// GovernanceVoteKey addresses one ballot on a proposal.
func GovernanceVoteKey(id uint64, voter []byte) []byte {
	return []byte(governanceVotePrefix + strconv.FormatUint(id, 10) + "/" + hex.EncodeToString(voter))
}

// GovernanceVoterIndexKey addresses the per-proposal voter index. Voter hex
// runs 40 characters, so the literal suffix cannot collide with a ballot.
func GovernanceVoterIndexKey(id uint64) []byte {
	return []byte(governanceVotePrefix + strconv.FormatUint(id, 10) + "/index")
}

// GovernanceSequenceKey addresses the monotonic proposal id counter.
func GovernanceSequenceKey() []byte {
	return []byte(governanceSequenceName)
}

// ParamStoreKey addresses a governed parameter value.
func ParamStoreKey(name string) []byte {
	return []byte(paramPrefix + strings.TrimSpace(name))
}

// BalanceCheckpointKey addresses the append-only balance history kept for
// accounts holding a checkpointed token.
func BalanceCheckpointKey(symbol string, addr []byte) []byte {
	return []byte(checkpointPrefix + normalizeSymbol(symbol) + ":" + hex.EncodeToString(addr))
}

// SupplyCheckpointKey addresses the append-only total supply history of a
// checkpointed token.
func SupplyCheckpointKey(symbol string) []byte {
	return []byte(checkpointPrefix + normalizeSymbol(symbol) + ":supply")
}

// AccountKey addresses the account metadata row.
func AccountKey(addr []byte) []byte {
	return []byte(accountPrefix + hex.EncodeToString(addr))
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func normalizePoolID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

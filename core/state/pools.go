package state

import (
	"fmt"
	"strings"

	"meridian/native/rewardpool"
)

// RewardPoolGet loads the shared accrual row for a reward program. Missing
// rows return nil; the engine substitutes a zero pool.
func (m *Manager) RewardPoolGet(id string) (*rewardpool.Pool, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("state: pool id must not be empty")
	}
	row := new(rewardpool.Pool)
	ok, err := m.KVGet(RewardPoolKey(id), row)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return row.Clone(), nil
}

// RewardPoolPut persists the pool row, overwriting any previous version.
func (m *Manager) RewardPoolPut(id string, pool *rewardpool.Pool) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("state: pool id must not be empty")
	}
	if pool == nil {
		return fmt.Errorf("state: pool row must not be nil")
	}
	return m.KVPut(RewardPoolKey(id), pool.Clone())
}

// RewardParticipantGet loads one participant's stake row within a pool.
// Missing rows return nil; the engine substitutes a zero participant.
func (m *Manager) RewardParticipantGet(id string, addr []byte) (*rewardpool.Participant, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("state: pool id must not be empty")
	}
	if len(addr) == 0 {
		return nil, fmt.Errorf("state: participant address must not be empty")
	}
	row := new(rewardpool.Participant)
	ok, err := m.KVGet(RewardParticipantKey(id, addr), row)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return row.Clone(), nil
}

// RewardParticipantPut persists the participant row.
func (m *Manager) RewardParticipantPut(id string, addr []byte, member *rewardpool.Participant) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("state: pool id must not be empty")
	}
	if len(addr) == 0 {
		return fmt.Errorf("state: participant address must not be empty")
	}
	if member == nil {
		return fmt.Errorf("state: participant row must not be nil")
	}
	return m.KVPut(RewardParticipantKey(id, addr), member.Clone())
}

package common

import (
	"errors"
	"testing"
)

func TestLocksExcludeReentry(t *testing.T) {
	locks := NewLocks()
	var account [20]byte
	account[19] = 0x01

	release, err := locks.Acquire("vault", account)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	if _, err := locks.Acquire("vault", account); !errors.Is(err, ErrReentrantCall) {
		t.Fatalf("expected ErrReentrantCall, got %v", err)
	}

	var other [20]byte
	other[19] = 0x02
	otherRelease, err := locks.Acquire("vault", other)
	if err != nil {
		t.Fatalf("other account should not be excluded: %v", err)
	}
	otherRelease()

	siblingRelease, err := locks.Acquire("rewardpool", account)
	if err != nil {
		t.Fatalf("sibling module scope should be independent: %v", err)
	}
	siblingRelease()

	release()
	release() // releasing twice is harmless

	again, err := locks.Acquire("vault", account)
	if err != nil {
		t.Fatalf("scope should be free after release: %v", err)
	}
	again()
}

func TestNilLocksGrantScope(t *testing.T) {
	var locks *Locks
	release, err := locks.Acquire("vault", [20]byte{})
	if err != nil {
		t.Fatalf("nil locks should grant: %v", err)
	}
	release()
}

func TestPausesToggle(t *testing.T) {
	pauses := NewPauses()
	if err := Guard(pauses, "vault"); err != nil {
		t.Fatalf("unpaused module should pass: %v", err)
	}
	pauses.SetPaused("vault", true)
	if err := Guard(pauses, "vault"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	pauses.SetPaused("vault", false)
	if err := Guard(pauses, "vault"); err != nil {
		t.Fatalf("unpause should clear the guard: %v", err)
	}
}

package state

import (
	"errors"
	"fmt"
	"math"

	"meridian/storage/trie"
)

// SchemaVersion identifies the on-disk layout of ledger state: the token
// registry rows, balance and checkpoint tables, and the engine keyspaces.
// Increment it whenever a stored structure changes shape so a node never
// misreads a store written by an incompatible build.
const SchemaVersion uint32 = 1

var (
	schemaVersionKey = []byte("state/version")

	// ErrSchemaVersionMismatch indicates the stored layout version differs
	// from the one this build reads and writes.
	ErrSchemaVersionMismatch = errors.New("state: schema version mismatch")
)

// SetSchemaVersion records the provided layout version in state. Genesis
// application stamps it before any other row is written.
func (m *Manager) SetSchemaVersion(version uint32) error {
	if m == nil {
		return fmt.Errorf("state: manager unavailable")
	}
	return m.KVPut(schemaVersionKey, uint64(version))
}

// GetSchemaVersion returns the stored layout version and whether a value was
// present at all.
func (m *Manager) GetSchemaVersion() (uint32, bool, error) {
	if m == nil {
		return 0, false, fmt.Errorf("state: manager unavailable")
	}
	var stored uint64
	ok, err := m.KVGet(schemaVersionKey, &stored)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, nil
	}
	if stored > uint64(math.MaxUint32) {
		return 0, false, fmt.Errorf("state: schema version overflow: %d", stored)
	}
	return uint32(stored), true, nil
}

// EnsureSchemaVersion verifies that a resumed store matches the layout this
// build understands. Stores without a stamp pass: they are either empty or
// seeded by an embedder that manages its own layout.
func EnsureSchemaVersion(tr *trie.Trie) error {
	if tr == nil {
		return fmt.Errorf("state: trie must not be nil")
	}
	version, ok, err := NewManager(tr).GetSchemaVersion()
	if err != nil {
		return err
	}
	if !ok || version == SchemaVersion {
		return nil
	}
	return fmt.Errorf("%w: on-disk=%d expected=%d", ErrSchemaVersionMismatch, version, SchemaVersion)
}

package state

import (
	"errors"
	"testing"

	"meridian/storage"
	"meridian/storage/trie"
)

func TestSchemaVersionRoundTrip(t *testing.T) {
	mgr := newTestManager(t)

	if _, ok, err := mgr.GetSchemaVersion(); err != nil || ok {
		t.Fatalf("fresh store must carry no stamp: ok=%v err=%v", ok, err)
	}
	if err := mgr.SetSchemaVersion(SchemaVersion); err != nil {
		t.Fatalf("set version: %v", err)
	}
	version, ok, err := mgr.GetSchemaVersion()
	if err != nil || !ok || version != SchemaVersion {
		t.Fatalf("unexpected stamp: version=%d ok=%v err=%v", version, ok, err)
	}
}

func TestEnsureSchemaVersion(t *testing.T) {
	db := storage.NewMemDB()
	t.Cleanup(func() { db.Close() })
	tr, err := trie.NewTrie(db, nil)
	if err != nil {
		t.Fatalf("new trie: %v", err)
	}

	// Unstamped stores pass so embedder-seeded state keeps working.
	if err := EnsureSchemaVersion(tr); err != nil {
		t.Fatalf("unstamped store rejected: %v", err)
	}

	mgr := NewManager(tr)
	if err := mgr.SetSchemaVersion(SchemaVersion); err != nil {
		t.Fatalf("stamp: %v", err)
	}
	if err := EnsureSchemaVersion(tr); err != nil {
		t.Fatalf("matching stamp rejected: %v", err)
	}

	if err := mgr.SetSchemaVersion(SchemaVersion + 1); err != nil {
		t.Fatalf("restamp: %v", err)
	}
	if err := EnsureSchemaVersion(tr); !errors.Is(err, ErrSchemaVersionMismatch) {
		t.Fatalf("expected mismatch error, got %v", err)
	}

	if err := EnsureSchemaVersion(nil); err == nil {
		t.Fatal("nil trie must be rejected")
	}
}

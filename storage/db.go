package storage

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/core/rawdb"
	ethleveldb "github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/syndtr/goleveldb/leveldb"
)

// ErrKeyNotFound is returned when a raw key has no value in the backend.
var ErrKeyNotFound = errors.New("storage: key not found")

// Database is a generic interface for a key-value store. Raw Put/Get carry
// ledger metadata (head pointer, genesis marker); TrieDB exposes the node
// database backing the state trie so both surfaces share one backend.
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	TrieDB() *triedb.Database
	Close()
}

// --- In-Memory DB (for testing) ---

type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte

	trieOnce sync.Once
	trieDB   *triedb.Database
}

func NewMemDB() *MemDB {
	return &MemDB{
		data: make(map[string][]byte),
	}
}

func (db *MemDB) Put(key []byte, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (db *MemDB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	value, ok := db.data[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), value...), nil
}

// TrieDB lazily builds an in-memory node database for the state trie.
func (db *MemDB) TrieDB() *triedb.Database {
	db.trieOnce.Do(func() {
		db.trieDB = triedb.NewDatabase(rawdb.NewDatabase(memorydb.New()), triedb.HashDefaults)
	})
	return db.trieDB
}

// Close satisfies the Database interface for MemDB.
func (db *MemDB) Close() {
	// Nothing to close for an in-memory database.
}

// --- Persistent DB ---

// LevelDB is a persistent key-value store. Raw metadata and trie nodes live
// in sibling LevelDB directories under the same data dir so a snapshot of
// the directory captures a consistent ledger.
type LevelDB struct {
	kv    *leveldb.DB
	nodes *ethleveldb.Database

	trieOnce sync.Once
	trieDB   *triedb.Database
}

// NewLevelDB creates or opens the backing databases under dir.
func NewLevelDB(dir string) (*LevelDB, error) {
	kv, err := leveldb.OpenFile(filepath.Join(dir, "kv"), nil)
	if err != nil {
		return nil, err
	}
	nodes, err := ethleveldb.New(filepath.Join(dir, "state"), 128, 1024, "meridian", false)
	if err != nil {
		kv.Close()
		return nil, err
	}
	return &LevelDB{kv: kv, nodes: nodes}, nil
}

// Put inserts or updates a key-value pair.
func (ldb *LevelDB) Put(key []byte, value []byte) error {
	return ldb.kv.Put(key, value, nil)
}

// Get retrieves a value for a given key.
func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := ldb.kv.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrKeyNotFound
	}
	return value, err
}

// TrieDB lazily builds the trie node database over the state directory.
func (ldb *LevelDB) TrieDB() *triedb.Database {
	ldb.trieOnce.Do(func() {
		ldb.trieDB = triedb.NewDatabase(rawdb.NewDatabase(ldb.nodes), triedb.HashDefaults)
	})
	return ldb.trieDB
}

// Close closes both backing databases.
func (ldb *LevelDB) Close() {
	ldb.kv.Close()
	ldb.nodes.Close()
}

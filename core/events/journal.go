package events

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"meridian/core/types"
)

var bucketAudit = []byte("audit")

const journalDayFormat = "2006-01-02"

// converter is implemented by typed events that render themselves as a
// broadcastable types.Event. Events without a converter are journaled with
// their type only.
type converter interface {
	Event() *types.Event
}

// JournalRecord is the persisted form of one emitted event.
type JournalRecord struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
	RecordedAt time.Time         `json:"recordedAt"`
}

// Journal persists every emitted event into a BoltDB file, bucketed by day,
// and forwards it to the wrapped emitter. It is the ledger's durable audit
// log; retention is handled by pruning whole day buckets.
type Journal struct {
	db   *bolt.DB
	next Emitter
	now  func() time.Time

	mu      sync.Mutex
	lastErr error
}

// NewJournal opens (and initialises) the BoltDB-backed journal at path. A
// nil next emitter forwards into a no-op.
func NewJournal(path string, next Emitter, options *bolt.Options) (*Journal, error) {
	if options == nil {
		options = &bolt.Options{Timeout: time.Second}
	} else if options.Timeout == 0 {
		options.Timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, options)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketAudit)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	if next == nil {
		next = NoopEmitter{}
	}
	return &Journal{db: db, next: next, now: time.Now}, nil
}

// SetNowFunc overrides the clock used to bucket records. Passing nil
// restores the wall clock.
func (j *Journal) SetNowFunc(now func() time.Time) {
	if now == nil {
		j.now = time.Now
		return
	}
	j.now = now
}

// Emit records the event and forwards it. Persistence failures never block
// delivery; the most recent failure is retained for inspection via Err.
func (j *Journal) Emit(evt Event) {
	if evt == nil {
		return
	}
	if err := j.append(evt); err != nil {
		j.mu.Lock()
		j.lastErr = err
		j.mu.Unlock()
	}
	j.next.Emit(evt)
}

// Err returns the most recent persistence failure, if any.
func (j *Journal) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastErr
}

func (j *Journal) append(evt Event) error {
	record := JournalRecord{Type: evt.EventType(), RecordedAt: j.now().UTC()}
	if conv, ok := evt.(converter); ok {
		if rendered := conv.Event(); rendered != nil {
			record.Type = rendered.Type
			record.Attributes = rendered.Attributes
		}
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("journal: encode record: %w", err)
	}
	day := []byte(record.RecordedAt.Format(journalDayFormat))
	return j.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketAudit)
		if root == nil {
			return fmt.Errorf("journal: audit bucket missing")
		}
		bucket, err := root.CreateBucketIfNotExists(day)
		if err != nil {
			return err
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], seq)
		return bucket.Put(key[:], payload)
	})
}

// Day returns the records persisted for the supplied date, oldest first.
func (j *Journal) Day(date time.Time) ([]JournalRecord, error) {
	day := []byte(date.UTC().Format(journalDayFormat))
	var records []JournalRecord
	err := j.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketAudit)
		if root == nil {
			return nil
		}
		bucket := root.Bucket(day)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_, value []byte) error {
			var record JournalRecord
			if err := json.Unmarshal(value, &record); err != nil {
				return fmt.Errorf("journal: decode record: %w", err)
			}
			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Prune removes every day bucket strictly older than the supplied cutoff.
func (j *Journal) Prune(before time.Time) error {
	cutoff := before.UTC().Format(journalDayFormat)
	return j.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketAudit)
		if root == nil {
			return nil
		}
		var stale [][]byte
		if err := root.ForEachBucket(func(name []byte) error {
			if string(name) < cutoff {
				stale = append(stale, append([]byte(nil), name...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, name := range stale {
			if err := root.DeleteBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}

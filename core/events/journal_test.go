package events

import (
	"math/big"
	"path/filepath"
	"testing"
	"time"
)

func TestJournalPersistsAndForwards(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	collector := &Collector{}

	journal, err := NewJournal(path, collector, nil)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer journal.Close()

	day := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	journal.SetNowFunc(func() time.Time { return day })

	var account [20]byte
	account[19] = 0x07
	journal.Emit(RewardClaimed{Pool: "staking", Account: account, Paid: big.NewInt(42)})

	if err := journal.Err(); err != nil {
		t.Fatalf("journal persistence failed: %v", err)
	}
	if collector.Len() != 1 {
		t.Fatalf("expected event to be forwarded, got %d", collector.Len())
	}

	records, err := journal.Day(day)
	if err != nil {
		t.Fatalf("read day: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Type != TypeRewardClaimed {
		t.Fatalf("unexpected record type: %s", records[0].Type)
	}
	if records[0].Attributes["paid"] != "42" {
		t.Fatalf("unexpected attributes: %+v", records[0].Attributes)
	}
}

func TestJournalPruneDropsOldDays(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	journal, err := NewJournal(path, nil, nil)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer journal.Close()

	var account [20]byte
	oldDay := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	newDay := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	journal.SetNowFunc(func() time.Time { return oldDay })
	journal.Emit(RewardClaimed{Pool: "staking", Account: account, Paid: big.NewInt(1)})
	journal.SetNowFunc(func() time.Time { return newDay })
	journal.Emit(RewardClaimed{Pool: "staking", Account: account, Paid: big.NewInt(2)})

	if err := journal.Prune(newDay); err != nil {
		t.Fatalf("prune: %v", err)
	}

	oldRecords, err := journal.Day(oldDay)
	if err != nil {
		t.Fatalf("read pruned day: %v", err)
	}
	if len(oldRecords) != 0 {
		t.Fatalf("expected pruned day to be empty, got %d records", len(oldRecords))
	}
	newRecords, err := journal.Day(newDay)
	if err != nil {
		t.Fatalf("read retained day: %v", err)
	}
	if len(newRecords) != 1 {
		t.Fatalf("expected retained day to keep 1 record, got %d", len(newRecords))
	}
}

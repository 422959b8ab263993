package core

import (
	"context"
	"errors"
	"fmt"

	"meridian/config"
	"meridian/core/events"
	"meridian/core/state"
	"meridian/observability/logging"
	"meridian/observability/otel"
	"meridian/storage"
	"meridian/storage/trie"
)

// headRootKey stores the most recently committed state root in the raw
// key-value space, next to the trie nodes.
var headRootKey = []byte("meridian/head-root")

// Open assembles a ledger from the node configuration: structured logging,
// the optional OTLP exporters, persistent storage under the data directory,
// the optional audit journal, and a one-time genesis application when the
// store is empty. On every later start the engines are rehydrated from the
// parameter store instead. The returned close function flushes telemetry and
// releases the journal and the databases.
func Open(ctx context.Context, cfg *config.Config) (*Ledger, func() error, error) {
	if cfg == nil {
		return nil, nil, errors.New("core: config required")
	}
	log := logging.Setup(cfg.Telemetry.ServiceNameOrDefault(), cfg.Telemetry.Environment, cfg.Telemetry.LogLevel)

	var shutdownTelemetry func(context.Context) error
	if cfg.Telemetry.Metrics || cfg.Telemetry.Traces {
		shutdown, err := otel.Init(ctx, cfg.Telemetry.OTELConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("core: init telemetry: %w", err)
		}
		shutdownTelemetry = shutdown
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("core: open storage: %w", err)
	}
	head, err := db.Get(headRootKey)
	if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		db.Close()
		return nil, nil, fmt.Errorf("core: read head root: %w", err)
	}
	tr, err := trie.NewTrie(db, head)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("core: open state: %w", err)
	}
	if len(head) > 0 {
		if err := state.EnsureSchemaVersion(tr); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	ledger, err := NewLedger(tr)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	ledger.SetLogger(log.With("component", "ledger"))

	var journal *events.Journal
	if cfg.JournalFile != "" {
		journal, err = events.NewJournal(cfg.JournalFile, nil, nil)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("core: open journal: %w", err)
		}
		ledger.SetEmitter(journal)
	}

	closer := func() error {
		var closeErr error
		if journal != nil {
			closeErr = journal.Close()
		}
		if shutdownTelemetry != nil {
			if err := shutdownTelemetry(context.Background()); err != nil && closeErr == nil {
				closeErr = err
			}
		}
		db.Close()
		return closeErr
	}

	var gen *config.Genesis
	if cfg.GenesisFile != "" {
		gen, err = config.LoadGenesis(cfg.GenesisFile)
		if err != nil {
			closer()
			return nil, nil, err
		}
	}
	if len(head) == 0 && gen != nil {
		if err := ledger.ApplyGenesis(ctx, gen); err != nil {
			closer()
			return nil, nil, err
		}
		if _, err := ledger.Commit(0); err != nil {
			closer()
			return nil, nil, err
		}
	} else if err := ledger.hydrate(gen); err != nil {
		closer()
		return nil, nil, err
	}

	log.Info("ledger opened",
		"network", cfg.NetworkName,
		"data_dir", cfg.DataDir,
		"journal", cfg.JournalFile != "",
		"resumed", len(head) > 0,
		logging.MaskField("otlp_headers", cfg.Telemetry.OTLPHeaders),
	)
	return ledger, closer, nil
}

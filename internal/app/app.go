// Package app wires configuration into a running set of ledger services.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/chart"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/config"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/events"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/events/kafka"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/httpapi"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/interfaces"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledger"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/projector"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/reconcile"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/storage/postgres"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/storage/sqlite"
)

// App holds the ledger services built from one Config.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     interfaces.LedgerStore
	Publisher interfaces.EventPublisher
	Projector *projector.Projector
	Ledger    *ledger.Ledger
	Registry  *chart.Registry
	Checker   *reconcile.Checker

	closers []func() error
}

// New opens the store and event publisher named by cfg and builds the
// services on top of them. Close releases both.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger}

	store, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)
	logger.Info("store opened", "backend", cfg.Store.Backend)

	if cfg.Kafka.Enabled() {
		pub, err := kafka.NewPublisher(kafka.Config{
			Brokers:     cfg.Kafka.Brokers,
			TopicPrefix: cfg.Kafka.TopicPrefix,
			Compression: cfg.Kafka.Compression,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create event publisher: %w", err)
		}
		a.Publisher = pub
		a.closers = append(a.closers, pub.Close)
		logger.Info("publishing events to kafka", "brokers", cfg.Kafka.Brokers, "prefix", cfg.Kafka.TopicPrefix)
	} else {
		a.Publisher = events.Nop{}
	}

	a.Projector = projector.New(store, a.Publisher, logger)
	a.Ledger = ledger.NewLedger(store, a.Projector,
		ledger.WithLogger(logger),
		ledger.WithPublisher(a.Publisher),
		ledger.WithCurrency(cfg.Ledger.Currency),
		ledger.WithRetryAttempts(cfg.Ledger.RetryAttempts),
	)
	a.Registry = chart.NewRegistry(store, logger)
	a.Checker = reconcile.NewChecker(store, a.Publisher, logger)
	return a, nil
}

// OpenStore opens the configured LedgerStore backend.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (interfaces.LedgerStore, error) {
	switch cfg.Backend {
	case config.StoreMemory:
		return memory.NewMemoryLedgerStore(), nil
	case config.StorePostgres:
		return postgres.Open(ctx, cfg.DatabaseURL)
	case config.StoreSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// SeedChart loads the configured chart file, if any.
func (a *App) SeedChart(ctx context.Context) error {
	if a.Config.Ledger.ChartFile == "" {
		return nil
	}
	res, err := a.Registry.LoadChart(ctx, a.Config.Ledger.ChartFile)
	if err != nil {
		return fmt.Errorf("failed to load chart %s: %w", a.Config.Ledger.ChartFile, err)
	}
	a.Logger.Info("chart seeded", "file", a.Config.Ledger.ChartFile, "created", len(res.Created), "skipped", len(res.Skipped))
	return nil
}

// Handler returns the HTTP API over the app's services.
func (a *App) Handler() http.Handler {
	return httpapi.NewRouter(httpapi.Services{
		Ledger:        a.Ledger,
		Registry:      a.Registry,
		Projector:     a.Projector,
		Checker:       a.Checker,
		Logger:        a.Logger,
		Currency:      a.Config.Ledger.Currency,
		RetryAttempts: a.Config.Ledger.RetryAttempts,
	})
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

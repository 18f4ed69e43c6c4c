package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/config"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/models"
)

func testConfig(backend string) *config.Config {
	return &config.Config{
		Store: config.StoreConfig{Backend: backend},
		Kafka: config.KafkaConfig{TopicPrefix: "ledger.", Compression: "none"},
		Ledger: config.LedgerConfig{
			Currency:      "USD",
			RetryAttempts: 3,
			ChartFile:     filepath.Join("..", "..", "config", "chart.yaml"),
		},
		HTTPAddr: ":0",
	}
}

func TestNewMemoryApp(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(config.StoreMemory), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if err := a.SeedChart(ctx); err != nil {
		t.Fatalf("SeedChart: %v", err)
	}
	// Seeding twice skips every account.
	if err := a.SeedChart(ctx); err != nil {
		t.Fatalf("SeedChart again: %v", err)
	}

	accounts, err := a.Registry.ListAccounts(ctx, models.AccountFilter{})
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(accounts) == 0 {
		t.Fatal("expected seeded accounts")
	}

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}

func TestNewSQLiteApp(t *testing.T) {
	cfg := testConfig(config.StoreSQLite)
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "ledger.db")

	a, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestOpenStoreUnknownBackend(t *testing.T) {
	if _, err := OpenStore(context.Background(), config.StoreConfig{Backend: "bolt"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

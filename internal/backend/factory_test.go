package backend

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"finset/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{DataBackend: "postgres", DatabaseURL: "postgres://localhost/finset"})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != PostgresBackend || cfg.DatabaseURL == "" || cfg.Postgres.MaxOpenConns == 0 {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"sqlite with path", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"memory", Config{Type: MemoryBackend}, false},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateStore(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))

	t.Run("sqlite", func(t *testing.T) {
		res, err := f.CreateStore(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "finset.db")})
		if err != nil {
			t.Fatalf("CreateStore() error = %v", err)
		}
		defer res.Cleanup()
		if _, err := res.Store.Now(ctx); err != nil {
			t.Errorf("Now() error = %v", err)
		}
	})

	t.Run("memory with seed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "seed.json")
		if err := os.WriteFile(path, []byte(`[{"id":"a","type":"income","amount":5,"category":"x","date":"2024-01-01"}]`), 0o644); err != nil {
			t.Fatal(err)
		}
		res, err := f.CreateStore(ctx, Config{Type: MemoryBackend, MemorySeedFile: path})
		if err != nil {
			t.Fatalf("CreateStore() error = %v", err)
		}
		list, _ := res.Store.ListTransactions(ctx)
		if len(list) != 1 {
			t.Errorf("expected 1 seeded transaction, got %d", len(list))
		}
	})

	t.Run("invalid", func(t *testing.T) {
		if _, err := f.CreateStore(ctx, Config{Type: PostgresBackend}); err == nil {
			t.Error("expected validation error")
		}
	})
}

package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sherifkozman/red-council/internal/attack"
	"github.com/sherifkozman/red-council/internal/config"
	"github.com/sherifkozman/red-council/internal/history"
	"github.com/sherifkozman/red-council/internal/llm"
	"github.com/sherifkozman/red-council/internal/storage"
	"github.com/sherifkozman/red-council/internal/template"
	"github.com/sherifkozman/red-council/internal/types"
)

// app wires the shared infrastructure behind every subcommand: the council
// database, the snapshot store, the template registry, and battle history.
type app struct {
	cfg       *config.Config
	councilDB *storage.SQLiteStore
	snapshots storage.Store
	registry  template.Registry
	history   history.DAO
}

func newApp(ctx context.Context) (*app, error) {
	dataDir := cfg.Core.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(configHomeDir(), "data")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, types.WrapError(types.STORAGE_OPEN_FAILED, "failed to create data directory", err)
	}

	councilDB, err := storage.OpenSQLiteStore(storage.DefaultSQLiteConfig(filepath.Join(dataDir, "council.db")))
	if err != nil {
		return nil, err
	}

	registry, err := template.NewSQLiteRegistry(ctx, councilDB.DB())
	if err != nil {
		councilDB.Close()
		return nil, err
	}
	if err := registry.SeedBuiltins(ctx); err != nil {
		councilDB.Close()
		return nil, err
	}

	if dir := filepath.Join(dataDir, "packs"); dirExists(dir) {
		packs, err := template.LoadPackDir(dir)
		if err != nil {
			slog.Warn("skipping template packs", "dir", dir, "error", err)
		}
		for _, tmpl := range packs {
			if err := registry.Register(ctx, &tmpl); err != nil {
				slog.Warn("failed to register pack template", "template_id", tmpl.ID, "error", err)
			}
		}
	}

	dao, err := history.NewSQLiteDAO(ctx, councilDB.DB())
	if err != nil {
		councilDB.Close()
		return nil, err
	}

	snapshots, err := openSnapshotStore(dataDir, councilDB)
	if err != nil {
		councilDB.Close()
		return nil, err
	}

	return &app{
		cfg:       cfg,
		councilDB: councilDB,
		snapshots: snapshots,
		registry:  registry,
		history:   dao,
	}, nil
}

func openSnapshotStore(dataDir string, councilDB *storage.SQLiteStore) (storage.Store, error) {
	switch cfg.Campaign.SnapshotStore {
	case "sqlite":
		// Snapshots live in the shared council database.
		return councilDB, nil
	case "memory":
		return storage.NewMemStore(), nil
	default:
		return storage.NewFileStore(filepath.Join(dataDir, "campaigns"))
	}
}

func (a *app) Close() {
	if a.snapshots != nil && a.snapshots != storage.Store(a.councilDB) {
		a.snapshots.Close()
	}
	if a.councilDB != nil {
		a.councilDB.Close()
	}
}

// buildEngine constructs the attack engine against the configured target.
func (a *app) buildEngine() (*attack.Engine, error) {
	providerCfg := a.cfg.TargetProvider()
	if providerCfg == nil {
		return nil, types.NewError(types.LLM_UNKNOWN_PROVIDER,
			"no target provider configured; set target.provider in settings")
	}

	provider, err := llm.NewProvider(*providerCfg)
	if err != nil {
		return nil, err
	}

	opts := []attack.EngineOption{
		attack.WithSampling(a.cfg.Campaign.Temperature, a.cfg.Campaign.MaxTokens),
		attack.WithEngineLogger(slog.Default()),
	}
	if rpm := a.cfg.Campaign.RequestsPerMinute; rpm > 0 {
		opts = append(opts, attack.WithRateLimit(float64(rpm)/60.0, 1))
	}
	return attack.NewEngine(a.registry, provider, opts...)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sandeepkv93/taskboard/internal/completion"
	"github.com/sandeepkv93/taskboard/internal/config"
	"github.com/sandeepkv93/taskboard/internal/log"
	"github.com/sandeepkv93/taskboard/internal/occurrence"
	"github.com/sandeepkv93/taskboard/internal/storage"
)

// app is the wiring shared by every subcommand: configuration, the template
// repository, the completion store and the occurrence service over them.
type app struct {
	cfg         config.Config
	loc         *time.Location
	repo        *storage.SQLiteRepository
	completions completion.Store
	pruner      completion.Pruner
	service     *occurrence.Service
	now         func() time.Time
}

func loadConfig(flags *rootFlags) (config.Config, error) {
	path := flags.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	loaded, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg := config.FromEnv(*loaded)
	if flags.dataDir != "" {
		cfg.DataDir = flags.dataDir
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	return cfg, nil
}

func openApp(flags *rootFlags) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	log.SetLevel(log.ParseLevel(cfg.LogLevel))

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	repo, err := storage.OpenSQLite(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a := &app{cfg: cfg, loc: loc, repo: repo, now: time.Now}
	switch cfg.Storage {
	case config.StorageFile:
		fs, err := completion.NewFileStore(cfg.CompletionsPath())
		if err != nil {
			repo.Close()
			return nil, err
		}
		a.completions, a.pruner = fs, fs
	case config.StorageMemory:
		mem := completion.NewMemoryStore()
		a.completions, a.pruner = mem, mem
	default:
		a.completions, a.pruner = repo, repo
	}

	a.service, err = occurrence.NewService(a.completions, occurrence.Config{
		MaxOccurrences: cfg.MaxOccurrences,
		Strict:         cfg.Strict,
	})
	if err != nil {
		repo.Close()
		return nil, err
	}
	log.Debug("taskboard opened", "data_dir", cfg.DataDir, "storage", cfg.Storage, "timezone", loc.String())
	return a, nil
}

func (a *app) Close() error {
	return a.repo.Close()
}

func (a *app) today() time.Time {
	return a.now().In(a.loc)
}

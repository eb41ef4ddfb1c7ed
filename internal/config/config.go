// Package config loads the taskboard YAML configuration and applies
// TASKBOARD_* environment overrides on top of it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StorageSQLite = "sqlite"
	StorageFile   = "file"
	StorageMemory = "memory"
)

type Config struct {
	// DataDir holds the database, the completion state file and logs.
	DataDir string `yaml:"data_dir"`

	// Storage selects where completion state lives: "sqlite" (default, next
	// to the templates), "file" (a YAML document) or "memory" (lost on
	// exit). Templates are always stored in sqlite.
	Storage string `yaml:"storage"`

	// Listen is the HTTP listen address used by "serve".
	Listen string `yaml:"listen"`

	// Timezone is the IANA zone windows are evaluated in.
	Timezone string `yaml:"timezone"`

	LogLevel string `yaml:"log_level"`

	// MaxOccurrences caps the dates one template may produce per window.
	MaxOccurrences int `yaml:"max_occurrences"`

	// Strict makes materialization logic errors fatal instead of skipped.
	Strict bool `yaml:"strict"`

	// ReminderHorizonHours is how far ahead due notifications are planned.
	ReminderHorizonHours int `yaml:"reminder_horizon_hours"`

	// RefreshCron re-plans due notifications.
	RefreshCron string `yaml:"refresh"`

	// PruneCron removes completion records older than RetentionDays.
	PruneCron     string `yaml:"prune"`
	RetentionDays int    `yaml:"retention_days"`

	SchedulerBuffer int `yaml:"scheduler_buffer"`

	// DesktopNotifications forwards due notifications to notify-send or
	// osascript while the agenda is open.
	DesktopNotifications bool `yaml:"desktop_notifications"`
}

func DefaultConfig() *Config {
	return &Config{
		DataDir:              DefaultDataDir(),
		Storage:              StorageSQLite,
		Listen:               "127.0.0.1:8080",
		Timezone:             "Local",
		LogLevel:             "info",
		MaxOccurrences:       1000,
		Strict:               false,
		ReminderHorizonHours: 24,
		RefreshCron:          "*/15 * * * *",
		PruneCron:            "30 3 * * *",
		RetentionDays:        365,
		SchedulerBuffer:      64,
	}
}

// Normalize fills zero values with defaults so partial files still work.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = def.DataDir
	}
	switch c.Storage {
	case StorageSQLite, StorageFile, StorageMemory:
	default:
		c.Storage = def.Storage
	}
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.MaxOccurrences <= 0 {
		c.MaxOccurrences = def.MaxOccurrences
	}
	if c.ReminderHorizonHours <= 0 {
		c.ReminderHorizonHours = def.ReminderHorizonHours
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.PruneCron == "" {
		c.PruneCron = def.PruneCron
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = def.RetentionDays
	}
	if c.SchedulerBuffer <= 0 {
		c.SchedulerBuffer = def.SchedulerBuffer
	}
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "taskboard.db")
}

func (c *Config) CompletionsPath() string {
	return filepath.Join(c.DataDir, "completions.yaml")
}

func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "taskboard.log")
}

func (c *Config) ReminderHorizon() time.Duration {
	return time.Duration(c.ReminderHorizonHours) * time.Hour
}

func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// DefaultPath is the config file used when --config is not given.
func DefaultPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}

// Load reads path. A missing file is created with defaults on first run.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".taskboard-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

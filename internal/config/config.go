// Package config loads the simulator's YAML configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration file.
type Config struct {
	Sim       SimConfig      `yaml:"sim"`
	Merchants MerchantConfig `yaml:"merchants"`
	Food      FoodConfig     `yaml:"food"`
	Catalog   CatalogConfig  `yaml:"catalog"`
	History   HistoryConfig  `yaml:"history"`
	API       APIConfig      `yaml:"api"`
	Logging   LoggingConfig  `yaml:"logging"`
}

// SimConfig sizes and paces the simulation.
type SimConfig struct {
	Seed            int64         `yaml:"seed"`
	Facilities      int           `yaml:"facilities"`
	Population      int           `yaml:"population"`
	StartingWealth  float64       `yaml:"starting_wealth"`
	PriceAdjustment float64       `yaml:"price_adjustment"`
	TickInterval    time.Duration `yaml:"tick_interval"`
	Speed           float64       `yaml:"speed"`
	EventHistory    int           `yaml:"event_history"`
	MaxTicks        uint64        `yaml:"max_ticks"` // 0 runs until stopped
}

// MerchantConfig controls visiting merchants.
type MerchantConfig struct {
	Interval uint64 `yaml:"interval"` // ticks between arrivals
	Duration uint64 `yaml:"duration"` // ticks a merchant stays
}

// FoodConfig describes what the population eats and when.
type FoodConfig struct {
	Resource string          `yaml:"resource"`
	Schedule map[int]float64 `yaml:"schedule"` // hour → per-capita quantity
}

// CatalogConfig points at an optional catalog file. Empty uses the built-in one.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// HistoryConfig controls the run history sinks.
type HistoryConfig struct {
	Enabled    bool   `yaml:"enabled"`
	DBPath     string `yaml:"db_path"`
	TickLogDir string `yaml:"tick_log_dir"`
}

// APIConfig controls the operator HTTP API.
type APIConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Port     int    `yaml:"port"`
	AdminKey string `yaml:"admin_key"`
}

// LoggingConfig sets the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel parses Level, falling back to Info.
func (l LoggingConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config and applies default values.
func LoadWithDefaults(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

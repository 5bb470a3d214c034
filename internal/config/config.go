package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "formdist.yaml"

type ProjectConfig struct {
	Project     string         `yaml:"project"`
	Version     int            `yaml:"version"`
	Database    DatabaseConfig `yaml:"database"`
	LoadOrder   []string       `yaml:"load_order"`
	World       PathsConfig    `yaml:"world"`
	Rules       PathsConfig    `yaml:"rules"`
	MergeMaps   []string       `yaml:"merge_maps"`
	PlayerLevel uint16         `yaml:"player_level"`
	Log         LogConfig      `yaml:"log"`
	Exclude     []string       `yaml:"exclude"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type PathsConfig struct {
	Paths []string `yaml:"paths"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// envOverrides mirrors the settings the environment may replace. Unset
// variables leave the file values in place.
type envOverrides struct {
	DatabaseDSN string `env:"FORMDIST_DATABASE_DSN"`
	PlayerLevel uint16 `env:"FORMDIST_PLAYER_LEVEL"`
	LogLevel    string `env:"FORMDIST_LOG_LEVEL"`
	LogFormat   string `env:"FORMDIST_LOG_FORMAT"`
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}
	applyDefaults(&cfg)

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return &cfg, nil
}

func applyEnv(cfg *ProjectConfig) error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	if overrides.DatabaseDSN != "" {
		cfg.Database.DSN = overrides.DatabaseDSN
	}
	if overrides.PlayerLevel != 0 {
		cfg.PlayerLevel = overrides.PlayerLevel
	}
	if overrides.LogLevel != "" {
		cfg.Log.Level = overrides.LogLevel
	}
	if overrides.LogFormat != "" {
		cfg.Log.Format = overrides.LogFormat
	}
	return nil
}

func applyDefaults(cfg *ProjectConfig) {
	if cfg.PlayerLevel == 0 {
		cfg.PlayerLevel = 1
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	dsn := strings.TrimSpace(cfg.Database.DSN)
	if dsn == "" {
		return fmt.Errorf("database dsn is required")
	}
	if !strings.HasPrefix(dsn, "sqlite://") && !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return fmt.Errorf("unsupported database dsn: %s", dsn)
	}
	if len(cfg.LoadOrder) == 0 {
		return fmt.Errorf("load order is required")
	}
	if len(cfg.World.Paths) == 0 {
		return fmt.Errorf("at least one world path is required")
	}
	if len(cfg.Rules.Paths) == 0 {
		return fmt.Errorf("at least one rules path is required")
	}

	seen := make(map[string]struct{})
	for i, plugin := range cfg.LoadOrder {
		if strings.TrimSpace(plugin) == "" {
			return fmt.Errorf("load order entry %d is empty", i)
		}
		key := strings.ToLower(strings.TrimSpace(plugin))
		if _, exists := seen[key]; exists {
			return fmt.Errorf("duplicate plugin in load order: %s", plugin)
		}
		seen[key] = struct{}{}
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level: %s", cfg.Log.Level)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("unsupported log format: %s", cfg.Log.Format)
	}

	return nil
}

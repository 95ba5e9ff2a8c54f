// Package config loads runtime settings from a YAML file and environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/aria-lang/metaclassify-go/internal/classify"
	"github.com/aria-lang/metaclassify-go/internal/index"
	"github.com/aria-lang/metaclassify-go/internal/kmer"
)

const (
	DefaultConfigPath = "metaclassify.yaml"
	DefaultListen     = "localhost:8080"
	DefaultIndexPath  = "./kmer_database.json"
)

// ScheduleParser parses reload_schedule: standard five-field cron.
var ScheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

type Config struct {
	K                   int     `yaml:"k"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	IndexMode           string  `yaml:"index_mode"`
	Workers             int     `yaml:"workers"`

	ReferenceDir string `yaml:"reference_dir"`
	IndexPath    string `yaml:"index_path"`
	DBPath       string `yaml:"db_path"`

	Listen         string `yaml:"listen"`
	ReloadSchedule string `yaml:"reload_schedule"`
}

// Default returns a configuration with every default applied.
func Default() Config {
	cfg := Config{ConfidenceThreshold: classify.DefaultThreshold}
	cfg.applyDefaults()
	return cfg
}

// Load reads the file named by CONFIG_PATH (or metaclassify.yaml when
// unset), applies METACLASSIFY_* environment overrides and fills defaults.
// A missing file is not an error. The result is validated.
//
// The threshold starts at its default before the file and environment are
// read, so an explicit 0 is kept and accepts any hit.
func Load() (Config, error) {
	cfg := Config{ConfidenceThreshold: classify.DefaultThreshold}

	configPath := DefaultConfigPath
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", configPath, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("reading %s: %w", configPath, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	envOverride(&c.IndexMode, "METACLASSIFY_INDEX_MODE")
	envOverride(&c.ReferenceDir, "METACLASSIFY_REFERENCE_DIR")
	envOverride(&c.IndexPath, "METACLASSIFY_INDEX_PATH")
	envOverride(&c.DBPath, "METACLASSIFY_DB_PATH")
	envOverride(&c.Listen, "METACLASSIFY_LISTEN")
	envOverrideAllowEmpty(&c.ReloadSchedule, "METACLASSIFY_RELOAD_SCHEDULE")

	if err := envOverrideInt(&c.K, "METACLASSIFY_K"); err != nil {
		return err
	}
	if err := envOverrideInt(&c.Workers, "METACLASSIFY_WORKERS"); err != nil {
		return err
	}
	return envOverrideFloat(&c.ConfidenceThreshold, "METACLASSIFY_CONFIDENCE_THRESHOLD")
}

// applyDefaults fills zero values of the settings where zero is not
// meaningful.
func (c *Config) applyDefaults() {
	if c.K == 0 {
		c.K = kmer.DefaultK
	}
	if c.IndexMode == "" {
		c.IndexMode = index.MultiOwner.String()
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.IndexPath == "" {
		c.IndexPath = DefaultIndexPath
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.K < 1 {
		return fmt.Errorf("invalid k '%d': must be >= 1", c.K)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("invalid confidence_threshold '%g': must be between 0 and 1", c.ConfidenceThreshold)
	}
	if _, err := index.ParseMode(c.IndexMode); err != nil {
		return fmt.Errorf("invalid index_mode: %w", err)
	}
	if c.Workers < 1 {
		return fmt.Errorf("invalid workers '%d': must be >= 1", c.Workers)
	}
	if c.ReloadSchedule != "" {
		if _, err := ScheduleParser.Parse(c.ReloadSchedule); err != nil {
			return fmt.Errorf("invalid reload_schedule '%s': %w", c.ReloadSchedule, err)
		}
	}
	return nil
}

// Mode returns the parsed index mode. It assumes Validate passed.
func (c Config) Mode() index.Mode {
	m, _ := index.ParseMode(c.IndexMode)
	return m
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideAllowEmpty(field *string, envKey string) {
	if val, ok := os.LookupEnv(envKey); ok {
		*field = strings.TrimSpace(val)
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideFloat(field *float64, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

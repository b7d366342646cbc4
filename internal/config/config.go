package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/alvmarrod/sitecrawler/internal/crawler"
	"gopkg.in/yaml.v3"
)

// AppName is used for the XDG data directory
const AppName = "sitecrawler"

// Config holds all runtime configuration parameters
type Config struct {
	SeedURL            string `json:"seed_url" yaml:"seed_url"`
	ConcurrentWorkers  int    `json:"concurrent_workers" yaml:"concurrent_workers"`
	MaxDepth           *int   `json:"max_depth" yaml:"max_depth"`
	TimeLimitSeconds   int    `json:"time_limit_seconds" yaml:"time_limit_seconds"`
	ConnectTimeoutMs   int    `json:"connect_timeout_ms" yaml:"connect_timeout_ms"`
	ReadTimeoutMs      int    `json:"read_timeout_ms" yaml:"read_timeout_ms"`
	UserAgent          string `json:"user_agent" yaml:"user_agent"`
	Extractor          string `json:"extractor" yaml:"extractor"`
	ExportPath         string `json:"export_path" yaml:"export_path"`
	DBPath             string `json:"db_path" yaml:"db_path"`
	MetricsPath        string `json:"metrics_path" yaml:"metrics_path"`
	ProgressIntervalMs int    `json:"progress_interval_ms" yaml:"progress_interval_ms"`
	LogLevel           string `json:"log_level" yaml:"log_level"`
}

// LoadConfig reads configuration from a JSON or YAML file and applies
// defaults. An empty path yields the defaults alone.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config YAML: %w", err)
			}
		default:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config JSON: %w", err)
			}
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(cfg *Config) {
	if cfg.ConcurrentWorkers == 0 {
		cfg.ConcurrentWorkers = 4
	}
	if cfg.ConnectTimeoutMs == 0 {
		cfg.ConnectTimeoutMs = 1000
	}
	if cfg.ReadTimeoutMs == 0 {
		cfg.ReadTimeoutMs = 2000
	}
	if cfg.Extractor == "" {
		cfg.Extractor = "lenient"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(xdg.DataHome, AppName, "pages.db")
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = filepath.Join(xdg.DataHome, AppName, "metrics.json")
	}
	if cfg.ProgressIntervalMs == 0 {
		cfg.ProgressIntervalMs = 1000
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// Validate checks that required fields are present and values are sensible
func (cfg *Config) Validate() error {
	if cfg.SeedURL == "" {
		return fmt.Errorf("seed_url is required")
	}
	u, err := url.Parse(cfg.SeedURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("seed_url must be an absolute http(s) URL, got %q", cfg.SeedURL)
	}
	if cfg.ConcurrentWorkers < 1 || cfg.ConcurrentWorkers > crawler.MaxWorkers {
		return fmt.Errorf("concurrent_workers must be in [1, %d]", crawler.MaxWorkers)
	}
	if cfg.MaxDepth != nil && *cfg.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be >= 0")
	}
	if cfg.TimeLimitSeconds < 0 {
		return fmt.Errorf("time_limit_seconds must be >= 0")
	}
	if cfg.ConnectTimeoutMs < 100 {
		return fmt.Errorf("connect_timeout_ms must be >= 100")
	}
	if cfg.ReadTimeoutMs < 100 {
		return fmt.Errorf("read_timeout_ms must be >= 100")
	}
	if cfg.ProgressIntervalMs <= 0 {
		return fmt.Errorf("progress_interval_ms must be > 0")
	}
	switch cfg.Extractor {
	case "lenient", "tokenizer":
	default:
		return fmt.Errorf("extractor must be lenient or tokenizer, got %q", cfg.Extractor)
	}
	return nil
}

// DepthLimit returns the configured max depth, or crawler.NoDepthLimit
func (cfg *Config) DepthLimit() int {
	if cfg.MaxDepth == nil {
		return crawler.NoDepthLimit
	}
	return *cfg.MaxDepth
}

// TimeLimit returns the configured time limit, zero when disabled
func (cfg *Config) TimeLimit() time.Duration {
	return time.Duration(cfg.TimeLimitSeconds) * time.Second
}

// ConnectTimeout returns the connect timeout as a duration
func (cfg *Config) ConnectTimeout() time.Duration {
	return time.Duration(cfg.ConnectTimeoutMs) * time.Millisecond
}

// ReadTimeout returns the read timeout as a duration
func (cfg *Config) ReadTimeout() time.Duration {
	return time.Duration(cfg.ReadTimeoutMs) * time.Millisecond
}

// ProgressInterval returns how often progress is logged
func (cfg *Config) ProgressInterval() time.Duration {
	return time.Duration(cfg.ProgressIntervalMs) * time.Millisecond
}

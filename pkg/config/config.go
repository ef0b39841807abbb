// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	// Router defaults
	DefaultProbeTimeout          = 5 * time.Second
	DefaultRefreshInterval       = 30 * time.Second
	DefaultSessionCommandTimeout = 15 * time.Second
	DefaultRetryOnFailureCount   = 2
	DefaultRetryDelay            = 3 * time.Second

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Metrics defaults
	DefaultMetricsAddress = ":9090"

	// API defaults
	DefaultAPIAddress = "127.0.0.1:8080"

	// Journal defaults
	DefaultJournalPath       = "/var/lib/strongdb/journal.db"
	DefaultJournalMaxEntries = 10000
)

// EnvPrefix prefixes every environment override, e.g. STRONGDB_PRIMARY_DSN.
const EnvPrefix = "STRONGDB_"

// DefaultAPIAllowedNetworks defines the default networks allowed to access the API.
var DefaultAPIAllowedNetworks = []string{"127.0.0.1/32", "::1/128"}

// Load reads a configuration file and its includes, applies environment
// overrides and then defaults.
func Load(path string) (*Config, error) {
	cfg, _, err := LoadWithIncludes(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if err := ApplyEnv(cfg, nil); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Parse parses configuration from YAML bytes and applies defaults. Includes
// and environment overrides are not processed.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// ApplyEnv overrides cfg with STRONGDB_* environment variables. A nil
// environ reads the process environment.
func ApplyEnv(cfg *Config, environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	return nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// WriteFile writes cfg to path with owner-only permissions.
func WriteFile(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func applyDefaults(cfg *Config) {
	applyRouterDefaults(&cfg.Router)

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Address == "" {
		cfg.Metrics.Address = DefaultMetricsAddress
	}

	applyAPIDefaults(&cfg.API)

	if cfg.Journal.Enabled {
		if cfg.Journal.Path == "" {
			cfg.Journal.Path = DefaultJournalPath
		}
		if cfg.Journal.MaxEntries == 0 {
			cfg.Journal.MaxEntries = DefaultJournalMaxEntries
		}
	}
}

func applyRouterDefaults(r *RouterConfig) {
	if r.ProbeTimeout == 0 {
		r.ProbeTimeout = DefaultProbeTimeout
	}
	if r.RefreshInterval == 0 {
		r.RefreshInterval = DefaultRefreshInterval
	}
	if r.SessionCommandTimeout == 0 {
		r.SessionCommandTimeout = DefaultSessionCommandTimeout
	}
	if r.RetryOnFailureCount == 0 {
		r.RetryOnFailureCount = DefaultRetryOnFailureCount
	}
	if r.RetryDelay == 0 {
		r.RetryDelay = DefaultRetryDelay
	}
}

func applyAPIDefaults(api *APIConfig) {
	if !api.Enabled {
		return
	}
	if api.Address == "" {
		api.Address = DefaultAPIAddress
	}
	if len(api.AllowedNetworks) == 0 {
		api.AllowedNetworks = DefaultAPIAllowedNetworks
	}
}

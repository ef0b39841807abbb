// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

// Package config provides configuration loading and validation for strongdb.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root configuration structure for strongdb.
type Config struct {
	// Includes lists glob patterns of fragments that contribute replicas.
	Includes []string `yaml:"includes,omitempty"`

	Databases DatabasesConfig `yaml:"databases"`
	Router    RouterConfig    `yaml:"router"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	API       APIConfig       `yaml:"api"`
	Journal   JournalConfig   `yaml:"journal"`
}

// DatabasesConfig defines the connection targets of every endpoint. Targets
// are PostgreSQL URLs or keyword/value DSNs, or tcp://host:port for
// reachability-only endpoints.
type DatabasesConfig struct {
	Primary  string   `yaml:"primary" env:"PRIMARY_DSN"`
	Standby  string   `yaml:"standby" env:"STANDBY_DSN"`
	Replicas []string `yaml:"replicas" env:"REPLICA_DSNS" envSeparator:","`
}

// RouterConfig defines probing and session settings.
type RouterConfig struct {
	ProbeTimeout          time.Duration `yaml:"probe_timeout"`
	RefreshInterval       time.Duration `yaml:"refresh_interval"`
	SessionCommandTimeout time.Duration `yaml:"session_command_timeout"`

	// RetryOnFailureCount is the number of retries for transient failures.
	// Zero uses the default; a negative value disables retries.
	RetryOnFailureCount int           `yaml:"retry_on_failure_count"`
	RetryDelay          time.Duration `yaml:"retry_delay"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// MetricsConfig defines the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// APIConfig defines the diagnostic HTTP API.
type APIConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Address           string   `yaml:"address"`
	AllowedNetworks   []string `yaml:"allowed_networks"`
	TrustProxyHeaders bool     `yaml:"trust_proxy_headers"`
}

// Port returns the port component of the API address, or 0 if it cannot be
// parsed.
func (a APIConfig) Port() int {
	_, port, err := net.SplitHostPort(a.Address)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return 0
	}
	return n
}

// JournalConfig defines the availability transition journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`

	// MaxEntries bounds the journal; the oldest entries are pruned first.
	MaxEntries int `yaml:"max_entries"`
}

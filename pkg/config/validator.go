// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// ValidationError contains details about a configuration validation failure.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// Validate checks the configuration for errors and returns a combined error if any are found.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateDatabases(&cfg.Databases)...)
	errs = append(errs, validateRouter(&cfg.Router)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateMetrics(&cfg.Metrics)...)
	errs = append(errs, validateAPI(&cfg.API)...)
	errs = append(errs, validateJournal(&cfg.Journal)...)

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate is shorthand for Validate(c).
func (c *Config) Validate() error {
	return Validate(c)
}

func validateDatabases(db *DatabasesConfig) []error {
	var errs []error

	errs = append(errs, validateTarget("databases.primary", db.Primary)...)
	errs = append(errs, validateTarget("databases.standby", db.Standby)...)

	seen := map[string]string{}
	if db.Primary != "" {
		seen[db.Primary] = "databases.primary"
	}
	if db.Standby != "" {
		if other, ok := seen[db.Standby]; ok {
			errs = append(errs, &ValidationError{
				Field:   "databases.standby",
				Value:   redact(db.Standby),
				Message: "duplicates " + other,
			})
		}
		seen[db.Standby] = "databases.standby"
	}

	for i, r := range db.Replicas {
		field := fmt.Sprintf("databases.replicas[%d]", i)
		errs = append(errs, validateTarget(field, r)...)
		if r == "" {
			continue
		}
		if other, ok := seen[r]; ok {
			errs = append(errs, &ValidationError{
				Field:   field,
				Value:   redact(r),
				Message: "duplicates " + other,
			})
		}
		seen[r] = field
	}

	return errs
}

// validateTarget accepts tcp://host:port, postgres:// and postgresql://
// URLs, and keyword/value DSNs.
func validateTarget(field, target string) []error {
	if strings.TrimSpace(target) == "" {
		return []error{&ValidationError{Field: field, Value: target, Message: "cannot be empty"}}
	}

	switch {
	case strings.HasPrefix(target, "tcp://"):
		if _, _, err := net.SplitHostPort(strings.TrimPrefix(target, "tcp://")); err != nil {
			return []error{&ValidationError{
				Field:   field,
				Value:   target,
				Message: fmt.Sprintf("invalid tcp address: %v", err),
			}}
		}
	case strings.HasPrefix(target, "postgres://"), strings.HasPrefix(target, "postgresql://"):
		u, err := url.Parse(target)
		if err != nil {
			return []error{&ValidationError{
				Field:   field,
				Value:   redact(target),
				Message: "invalid connection URL",
			}}
		}
		if u.Host == "" && u.Query().Get("host") == "" {
			return []error{&ValidationError{
				Field:   field,
				Value:   redact(target),
				Message: "connection URL has no host",
			}}
		}
	case strings.Contains(target, "://"):
		return []error{&ValidationError{
			Field:   field,
			Value:   redact(target),
			Message: "unsupported scheme, must be postgres, postgresql or tcp",
		}}
	default:
		if !strings.Contains(target, "=") {
			return []error{&ValidationError{
				Field:   field,
				Value:   redact(target),
				Message: "must be a URL or a key=value connection string",
			}}
		}
	}
	return nil
}

// redact drops credentials before a target is echoed in an error.
func redact(target string) string {
	if u, err := url.Parse(target); err == nil && u.User != nil {
		return u.Redacted()
	}
	if strings.Contains(strings.ToLower(target), "password") {
		return "<dsn redacted>"
	}
	return target
}

func validateRouter(r *RouterConfig) []error {
	var errs []error

	if r.ProbeTimeout < 100*time.Millisecond {
		errs = append(errs, &ValidationError{
			Field:   "router.probe_timeout",
			Value:   r.ProbeTimeout,
			Message: "must be at least 100ms",
		})
	}

	if r.RefreshInterval < time.Second {
		errs = append(errs, &ValidationError{
			Field:   "router.refresh_interval",
			Value:   r.RefreshInterval,
			Message: "must be at least 1 second",
		})
	}

	if r.ProbeTimeout >= r.RefreshInterval {
		errs = append(errs, &ValidationError{
			Field:   "router.probe_timeout",
			Value:   r.ProbeTimeout,
			Message: "must be less than refresh_interval",
		})
	}

	if r.SessionCommandTimeout < 0 {
		errs = append(errs, &ValidationError{
			Field:   "router.session_command_timeout",
			Value:   r.SessionCommandTimeout,
			Message: "cannot be negative",
		})
	}

	if r.RetryOnFailureCount > 10 {
		errs = append(errs, &ValidationError{
			Field:   "router.retry_on_failure_count",
			Value:   r.RetryOnFailureCount,
			Message: "must be at most 10",
		})
	}

	if r.RetryDelay < 0 || r.RetryDelay > time.Minute {
		errs = append(errs, &ValidationError{
			Field:   "router.retry_delay",
			Value:   r.RetryDelay,
			Message: "must be between 0 and 1m",
		})
	}

	return errs
}

func validateLogging(logging *LoggingConfig) []error {
	var errs []error

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[logging.Level] {
		errs = append(errs, &ValidationError{
			Field:   "logging.level",
			Value:   logging.Level,
			Message: "must be one of: debug, info, warn, error",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[logging.Format] {
		errs = append(errs, &ValidationError{
			Field:   "logging.format",
			Value:   logging.Format,
			Message: "must be one of: json, text",
		})
	}

	return errs
}

func validateMetrics(m *MetricsConfig) []error {
	if !m.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(m.Address); err != nil {
		return []error{&ValidationError{
			Field:   "metrics.address",
			Value:   m.Address,
			Message: fmt.Sprintf("invalid address format: %v", err),
		}}
	}
	return nil
}

func validateAPI(api *APIConfig) []error {
	if !api.Enabled {
		return nil
	}

	var errs []error
	if _, _, err := net.SplitHostPort(api.Address); err != nil {
		errs = append(errs, &ValidationError{
			Field:   "api.address",
			Value:   api.Address,
			Message: fmt.Sprintf("invalid address format: %v", err),
		})
	}

	for i, n := range api.AllowedNetworks {
		if _, _, err := net.ParseCIDR(n); err == nil {
			continue
		}
		if net.ParseIP(n) != nil {
			continue
		}
		errs = append(errs, &ValidationError{
			Field:   fmt.Sprintf("api.allowed_networks[%d]", i),
			Value:   n,
			Message: "must be a CIDR or IP address",
		})
	}

	return errs
}

func validateJournal(j *JournalConfig) []error {
	if !j.Enabled {
		return nil
	}

	var errs []error
	if j.Path == "" {
		errs = append(errs, &ValidationError{
			Field:   "journal.path",
			Value:   j.Path,
			Message: "cannot be empty when the journal is enabled",
		})
	}
	if j.MaxEntries < 0 {
		errs = append(errs, &ValidationError{
			Field:   "journal.max_entries",
			Value:   j.MaxEntries,
			Message: "cannot be negative",
		})
	}
	return errs
}

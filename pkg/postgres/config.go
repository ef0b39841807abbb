// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

// Package postgres connects to PostgreSQL endpoints with pgx. It provides
// the health checker used by the prober and the connector used by the
// router to materialize sessions.
package postgres

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
)

// ApplicationName is reported to the server for every connection.
const ApplicationName = "strongdb"

// Options tune connections opened by this package.
type Options struct {
	// CommandTimeout becomes the session's statement_timeout. Zero leaves the
	// server default.
	CommandTimeout time.Duration
}

// ParseConfig parses a URL or keyword/value DSN and applies opts.
func ParseConfig(target string, opts Options) (*pgx.ConnConfig, error) {
	cfg, err := pgx.ParseConfig(target)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	if cfg.RuntimeParams == nil {
		cfg.RuntimeParams = make(map[string]string)
	}
	if _, ok := cfg.RuntimeParams["application_name"]; !ok {
		cfg.RuntimeParams["application_name"] = ApplicationName
	}
	if opts.CommandTimeout > 0 {
		cfg.RuntimeParams["statement_timeout"] = strconv.FormatInt(opts.CommandTimeout.Milliseconds(), 10)
	}
	return cfg, nil
}

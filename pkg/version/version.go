// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

// Package version provides version information for strongdb.
package version

// Version is the current version of strongdb. Release builds override it
// with -ldflags "-X github.com/loganrossus/strongdb/pkg/version.Version=...".
var Version = "0.1.0-dev"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}

// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

// Package cmd implements CLI commands for strongdb-cli.
package cmd

import (
	"fmt"
	"os"

	"github.com/loganrossus/strongdb/cmd/strongdb-cli/output"
	"github.com/loganrossus/strongdb/pkg/version"
	"github.com/spf13/cobra"
)

// DefaultAPIEndpoint is used when neither --api nor STRONGDB_API is set.
const DefaultAPIEndpoint = "http://localhost:8080"

var (
	// Global flags
	apiEndpoint string
	timeout     int
	jsonOutput  bool

	formatter output.Formatter
)

var rootCmd = &cobra.Command{
	Use:   "strongdb-cli",
	Short: "CLI for inspecting a strongdb router",
	Long: `strongdb-cli is a command-line tool for inspecting a running strongdb router.

It provides commands to:
  - View overall router status and endpoint availability
  - Run a live health check of every database
  - Route a probe session for a read or write intent
  - List recent availability transitions
  - Validate configuration files

Use --api to specify the router API endpoint (default: ` + DefaultAPIEndpoint + `).`,
	Version:       version.Version,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		formatter = output.GetFormatter(cmd.OutOrStdout(), jsonOutput)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiEndpoint, "api", getEnvOrDefault("STRONGDB_API", DefaultAPIEndpoint), "router API endpoint")
	rootCmd.PersistentFlags().IntVar(&timeout, "timeout", 10, "API request timeout in seconds")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(endpointsCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(transitionsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(completionCmd)

	rootCmd.SetVersionTemplate(fmt.Sprintf("strongdb-cli version %s\n", version.Version))
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

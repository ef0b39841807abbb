// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package cmd

import (
	"fmt"
	"strings"

	"github.com/loganrossus/strongdb/cmd/strongdb-cli/output"
	"github.com/loganrossus/strongdb/pkg/config"
	"github.com/loganrossus/strongdb/pkg/endpoint"
	"github.com/spf13/cobra"
)

// ConfigValidationResult represents the result of config validation.
type ConfigValidationResult struct {
	Valid    bool              `json:"valid"`
	Targets  map[string]string `json:"targets,omitempty"`
	Replicas int               `json:"replicas"`
	Includes []string          `json:"includes,omitempty"`
	Journal  bool              `json:"journal_enabled"`
	API      string            `json:"api,omitempty"`
	Metrics  string            `json:"metrics,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
	Errors   []string          `json:"errors,omitempty"`
}

var configFile string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for validating and working with configuration files.`,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a strongdb configuration file, its includes and any STRONGDB_*
environment overrides. Connection targets are printed with passwords removed.

Examples:
  strongdb-cli config validate --config /etc/strongdb/config.yaml
  strongdb-cli config validate -c ./config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configFile == "" {
			return fmt.Errorf("--config flag is required")
		}

		result := validateConfigFile(configFile)
		if jsonOutput {
			if err := formatter.Print(result); err != nil {
				return err
			}
		} else {
			printValidationResult(result)
		}

		if !result.Valid {
			return fmt.Errorf("configuration invalid")
		}
		return nil
	},
}

func init() {
	configValidateCmd.Flags().StringVarP(&configFile, "config", "c", "", "path to configuration file")
	configCmd.AddCommand(configValidateCmd)
}

func validateConfigFile(path string) ConfigValidationResult {
	var result ConfigValidationResult

	if err := config.CheckFilePermissions(path); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("insecure permissions on %s: %v", path, err))
	}

	cfg, err := config.Load(path)
	if err != nil {
		result.Errors = []string{err.Error()}
		return result
	}
	if err := cfg.Validate(); err != nil {
		result.Errors = strings.Split(err.Error(), "\n")
		return result
	}

	set, err := endpoint.NewSet(cfg.Databases.Primary, cfg.Databases.Standby, cfg.Databases.Replicas)
	if err != nil {
		result.Errors = []string{err.Error()}
		return result
	}

	result.Valid = true
	result.Targets = make(map[string]string, set.Len())
	for _, d := range set.All() {
		result.Targets[d.Identity.String()] = d.Redacted()
	}
	result.Replicas = set.ReplicaCount()
	result.Includes = cfg.Includes
	result.Journal = cfg.Journal.Enabled
	if cfg.API.Enabled {
		result.API = cfg.API.Address
	}
	if cfg.Metrics.Enabled {
		result.Metrics = cfg.Metrics.Address
	}
	return result
}

func printValidationResult(result ConfigValidationResult) {
	for _, w := range result.Warnings {
		formatter.PrintMessage("Warning: " + w)
	}

	if !result.Valid {
		formatter.PrintMessage("Configuration invalid:")
		for _, e := range result.Errors {
			formatter.PrintMessage("  " + e)
		}
		return
	}

	formatter.PrintMessage("Configuration valid.")
	pairs := []output.KVPair{
		{Key: "Primary", Value: result.Targets[endpoint.Primary.String()]},
		{Key: "Standby", Value: result.Targets[endpoint.Standby.String()]},
		{Key: "Replicas", Value: fmt.Sprintf("%d", result.Replicas)},
	}
	if len(result.Includes) > 0 {
		pairs = append(pairs, output.KVPair{Key: "Includes", Value: strings.Join(result.Includes, ", ")})
	}
	pairs = append(pairs,
		output.KVPair{Key: "API", Value: coalesce(result.API, "disabled")},
		output.KVPair{Key: "Metrics", Value: coalesce(result.Metrics, "disabled")},
		output.KVPair{Key: "Journal", Value: enabledDisabled(result.Journal)},
	)
	formatter.PrintKeyValue(pairs)
}

func enabledDisabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

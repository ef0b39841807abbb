// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/loganrossus/strongdb/cmd/strongdb-cli/output"
	"github.com/loganrossus/strongdb/pkg/api"
	"github.com/spf13/cobra"
)

// StatusOutput is the combined status output.
type StatusOutput struct {
	Status      string     `json:"status"`
	Version     string     `json:"version"`
	Uptime      string     `json:"uptime"`
	Endpoints   int        `json:"endpoints"`
	Available   int        `json:"available"`
	LastRefresh *time.Time `json:"last_refresh,omitempty"`
	Sweeps      int64      `json:"sweeps"`
}

var liveStatus bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show overall router status",
	Long: `Display the overall status of the router from its availability cache.

With --live, every database is probed now and the per-endpoint results are
shown instead. The command fails when the live report is not healthy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := NewAPIClient()
		if liveStatus {
			return runLiveStatus(client)
		}

		var health api.SimpleHealthResponse
		if _, err := client.Get("/api/health", nil, &health); err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}

		var eps api.EndpointsResponse
		if _, err := client.Get("/api/v1/endpoints", nil, &eps); err != nil {
			return fmt.Errorf("failed to get endpoints: %w", err)
		}

		available := 0
		for _, rec := range eps.Endpoints {
			if rec.Available {
				available++
			}
		}

		out := StatusOutput{
			Status:      health.Status,
			Version:     health.Version,
			Uptime:      formatDuration(time.Duration(health.Uptime) * time.Second),
			Endpoints:   len(eps.Endpoints),
			Available:   available,
			LastRefresh: eps.LastRefresh,
			Sweeps:      eps.Sweeps,
		}
		if jsonOutput {
			return formatter.Print(out)
		}

		formatter.PrintMessage(fmt.Sprintf("strongdb status: %s", out.Status))
		lastRefresh := "never"
		if out.LastRefresh != nil {
			lastRefresh = out.LastRefresh.Format(time.RFC3339)
		}
		formatter.PrintKeyValue([]output.KVPair{
			{Key: "Version", Value: coalesce(out.Version, "unknown")},
			{Key: "Uptime", Value: out.Uptime},
			{Key: "Endpoints", Value: fmt.Sprintf("%d total, %d available", out.Endpoints, out.Available)},
			{Key: "Last refresh", Value: lastRefresh},
			{Key: "Sweeps", Value: fmt.Sprintf("%d", out.Sweeps)},
		})
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&liveStatus, "live", false, "probe every database now instead of reading the cache")
}

func runLiveStatus(client *APIClient) error {
	var report api.DatabasesHealthResponse
	code, err := client.Get("/api/v1/health/databases", nil, &report, http.StatusServiceUnavailable)
	if err != nil {
		return fmt.Errorf("failed to get database health: %w", err)
	}

	if jsonOutput {
		if err := formatter.Print(report); err != nil {
			return err
		}
	} else {
		formatter.PrintMessage(fmt.Sprintf("Database health: %s (checked in %.1fms)", report.Status, report.DurationMs))
		rows := make([][]string, 0, len(report.Endpoints))
		for _, ep := range report.Endpoints {
			rows = append(rows, []string{
				ep.Endpoint.String(),
				yesNo(ep.Healthy),
				fmt.Sprintf("%.1fms", ep.ResponseTimeMs),
				coalesce(ep.Error, "-"),
			})
		}
		formatter.PrintTable([]string{"ENDPOINT", "HEALTHY", "RESPONSE", "ERROR"}, rows)
	}

	if code != http.StatusOK {
		return fmt.Errorf("database health is %s", report.Status)
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

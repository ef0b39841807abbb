// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package cmd

import (
	"fmt"
	"time"

	"github.com/loganrossus/strongdb/pkg/api"
	"github.com/loganrossus/strongdb/pkg/endpoint"
	"github.com/loganrossus/strongdb/pkg/health"
	"github.com/spf13/cobra"
)

var endpointsCmd = &cobra.Command{
	Use:   "endpoints",
	Short: "List cached endpoint availability",
	Long: `List the availability verdict the router currently holds for each
endpoint. Nothing is probed; use "status --live" for a live check.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp api.EndpointsResponse
		if _, err := NewAPIClient().Get("/api/v1/endpoints", nil, &resp); err != nil {
			return fmt.Errorf("failed to list endpoints: %w", err)
		}

		if jsonOutput {
			return formatter.Print(resp)
		}

		latency := make(map[endpoint.Identity]health.LatencyStats, len(resp.Latency))
		for _, l := range resp.Latency {
			latency[l.Endpoint] = l
		}

		rows := make([][]string, 0, len(resp.Endpoints))
		for _, rec := range resp.Endpoints {
			observed := "never"
			if !rec.ObservedAt.IsZero() {
				observed = rec.ObservedAt.Format(time.RFC3339)
			}
			ewma := "-"
			if l, ok := latency[rec.Identity]; ok {
				ewma = fmt.Sprintf("%.1fms", l.EWMAMs)
			}
			rows = append(rows, []string{rec.Identity.String(), yesNo(rec.Available), ewma, observed})
		}
		formatter.PrintTable([]string{"ENDPOINT", "AVAILABLE", "LATENCY", "OBSERVED AT"}, rows)
		return nil
	},
}

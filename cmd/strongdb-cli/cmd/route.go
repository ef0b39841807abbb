// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package cmd

import (
	"fmt"
	"net/url"

	"github.com/loganrossus/strongdb/cmd/strongdb-cli/output"
	"github.com/loganrossus/strongdb/pkg/api"
	"github.com/loganrossus/strongdb/pkg/routing"
	"github.com/spf13/cobra"
)

var routeIntent string

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Acquire a probe session and show which endpoint served it",
	Long: `Ask the router for a session with the given intent, ping it, and report
the endpoint that served it.

Examples:
  strongdb-cli route
  strongdb-cli route --intent write`,
	RunE: func(cmd *cobra.Command, args []string) error {
		intent, err := routing.ParseIntent(routeIntent)
		if err != nil {
			return err
		}

		var resp api.RouteResponse
		query := url.Values{"intent": {intent.String()}}
		if _, err := NewAPIClient().Get("/api/v1/route", query, &resp); err != nil {
			return fmt.Errorf("route %s: %w", intent, err)
		}

		if jsonOutput {
			return formatter.Print(resp)
		}

		formatter.PrintKeyValue([]output.KVPair{
			{Key: "Intent", Value: resp.Intent},
			{Key: "Endpoint", Value: resp.Endpoint},
			{Key: "Degraded", Value: yesNo(resp.Degraded)},
			{Key: "Session", Value: resp.SessionID},
			{Key: "Latency", Value: fmt.Sprintf("%.1fms", resp.LatencyMs)},
		})
		return nil
	},
}

func init() {
	routeCmd.Flags().StringVar(&routeIntent, "intent", "read", "session intent: read or write")
}

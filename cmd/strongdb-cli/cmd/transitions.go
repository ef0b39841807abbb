// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package cmd

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/loganrossus/strongdb/pkg/api"
	"github.com/spf13/cobra"
)

var transitionsLimit int

var transitionsCmd = &cobra.Command{
	Use:   "transitions",
	Short: "List recent availability transitions",
	Long: `List availability transitions recorded in the router's journal, newest
first. The journal must be enabled in the router configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if transitionsLimit <= 0 {
			return fmt.Errorf("--limit must be positive")
		}

		var resp api.TransitionsResponse
		query := url.Values{"limit": {strconv.Itoa(transitionsLimit)}}
		if _, err := NewAPIClient().Get("/api/v1/transitions", query, &resp); err != nil {
			return fmt.Errorf("failed to list transitions: %w", err)
		}

		if jsonOutput {
			return formatter.Print(resp)
		}

		rows := make([][]string, 0, len(resp.Transitions))
		for _, e := range resp.Transitions {
			rows = append(rows, []string{
				strconv.FormatUint(e.Seq, 10),
				e.At.Format(time.RFC3339),
				e.Endpoint.String(),
				e.From.String() + " -> " + e.To.String(),
				e.Reason,
			})
		}
		formatter.PrintTable([]string{"SEQ", "AT", "ENDPOINT", "CHANGE", "REASON"}, rows)
		return nil
	},
}

func init() {
	transitionsCmd.Flags().IntVarP(&transitionsLimit, "limit", "n", 20, "maximum number of transitions to show")
}

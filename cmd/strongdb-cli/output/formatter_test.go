// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestTableFormatter_PrintTable(t *testing.T) {
	tests := []struct {
		name     string
		headers  []string
		rows     [][]string
		contains []string
	}{
		{
			name:    "basic table",
			headers: []string{"ENDPOINT", "AVAILABLE"},
			rows: [][]string{
				{"primary", "yes"},
				{"replica-1", "no"},
			},
			contains: []string{"ENDPOINT", "AVAILABLE", "primary", "yes", "replica-1", "no"},
		},
		{
			name:     "empty table",
			headers:  []string{"ENDPOINT", "AVAILABLE"},
			rows:     [][]string{},
			contains: []string{"No data available"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			f := &TableFormatter{Writer: buf}
			f.PrintTable(tt.headers, tt.rows)

			output := buf.String()
			for _, s := range tt.contains {
				if !strings.Contains(output, s) {
					t.Errorf("expected output to contain %q, got:\n%s", s, output)
				}
			}
		})
	}
}

func TestTableFormatter_PrintKeyValue(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &TableFormatter{Writer: buf}

	f.PrintKeyValue([]KVPair{
		{Key: "Status", Value: "healthy"},
		{Key: "Last refresh", Value: "2025-06-01T12:00:00Z"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), buf.String())
	}
	// Values are aligned on the longest key.
	if strings.Index(lines[0], "healthy") != strings.Index(lines[1], "2025") {
		t.Errorf("values not aligned:\n%s", buf.String())
	}
}

func TestTableFormatter_Print(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &TableFormatter{Writer: buf}

	err := f.Print(struct {
		Valid    bool     `json:"valid"`
		Primary  string   `json:"primary"`
		Replicas int      `json:"replicas"`
		Errors   []string `json:"errors"`
	}{Valid: true, Primary: "db1:5432", Replicas: 2})
	if err != nil {
		t.Fatalf("Print: %v", err)
	}

	out := buf.String()
	for _, s := range []string{"valid:", "true", "primary:", "db1:5432", "replicas:", "2", "errors:", "-"} {
		if !strings.Contains(out, s) {
			t.Errorf("expected output to contain %q, got:\n%s", s, out)
		}
	}
	// Keys are sorted.
	if strings.Index(out, "errors:") > strings.Index(out, "valid:") {
		t.Errorf("keys not sorted:\n%s", out)
	}
}

func TestTableFormatter_PrintNonObject(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &TableFormatter{Writer: buf}
	if err := f.Print([]int{1, 2}); err != nil {
		t.Fatalf("Print: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[1,2]" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestJSONFormatter_PrintTable(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &JSONFormatter{Writer: buf}

	f.PrintTable([]string{"Endpoint", "Observed At"}, [][]string{{"standby", "now"}})

	var result []map[string]string
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(result) != 1 || result[0]["endpoint"] != "standby" || result[0]["observed_at"] != "now" {
		t.Errorf("unexpected result: %v", result)
	}
}

func TestJSONFormatter_MessagesAndErrors(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &JSONFormatter{Writer: buf}

	f.PrintError(errors.New("database unavailable"))

	var result map[string]string
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if result["error"] != "database unavailable" {
		t.Errorf("unexpected result: %v", result)
	}
}

func TestGetFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	if _, ok := GetFormatter(buf, true).(*JSONFormatter); !ok {
		t.Error("expected JSONFormatter for json output")
	}
	if _, ok := GetFormatter(buf, false).(*TableFormatter); !ok {
		t.Error("expected TableFormatter for table output")
	}
}

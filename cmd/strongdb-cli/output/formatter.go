// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

// Package output provides formatters for CLI output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
)

// Formatter defines the interface for output formatting.
type Formatter interface {
	// Print outputs a structured value.
	Print(data any) error
	// PrintTable outputs tabular data with headers.
	PrintTable(headers []string, rows [][]string)
	// PrintKeyValue outputs key-value pairs.
	PrintKeyValue(pairs []KVPair)
	// PrintMessage outputs a simple message.
	PrintMessage(msg string)
	// PrintError outputs an error message.
	PrintError(err error)
}

// KVPair represents a key-value pair for output.
type KVPair struct {
	Key   string
	Value string
}

// TableFormatter outputs human-readable text.
type TableFormatter struct {
	Writer io.Writer
}

// Print renders the JSON fields of data as aligned key-value pairs, sorted
// by key. Values that are not JSON objects are printed as is.
func (f *TableFormatter) Print(data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		fmt.Fprintln(f.Writer, string(raw))
		return nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]KVPair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, KVPair{Key: k, Value: scalar(fields[k])})
	}
	f.PrintKeyValue(pairs)
	return nil
}

func scalar(v any) string {
	switch v := v.(type) {
	case nil:
		return "-"
	case string:
		return v
	case map[string]any, []any:
		b, _ := json.Marshal(v)
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}

// PrintTable outputs tabular data with headers.
func (f *TableFormatter) PrintTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(f.Writer, "No data available.")
		return
	}

	w := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
}

// PrintKeyValue outputs key-value pairs aligned on the longest key.
func (f *TableFormatter) PrintKeyValue(pairs []KVPair) {
	maxKeyLen := 0
	for _, pair := range pairs {
		maxKeyLen = max(maxKeyLen, len(pair.Key))
	}

	for _, pair := range pairs {
		fmt.Fprintf(f.Writer, "  %-*s  %s\n", maxKeyLen+1, pair.Key+":", pair.Value)
	}
}

// PrintMessage outputs a simple message.
func (f *TableFormatter) PrintMessage(msg string) {
	fmt.Fprintln(f.Writer, msg)
}

// PrintError outputs an error message.
func (f *TableFormatter) PrintError(err error) {
	fmt.Fprintf(f.Writer, "Error: %v\n", err)
}

// JSONFormatter outputs JSON.
type JSONFormatter struct {
	Writer io.Writer
	Pretty bool
}

// Print outputs data as JSON.
func (f *JSONFormatter) Print(data any) error {
	encoder := json.NewEncoder(f.Writer)
	if f.Pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// PrintTable outputs tabular data as a JSON array of objects keyed by the
// snake_cased headers.
func (f *JSONFormatter) PrintTable(headers []string, rows [][]string) {
	result := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		obj := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(row) {
				obj[jsonKey(header)] = row[i]
			}
		}
		result = append(result, obj)
	}
	_ = f.Print(result)
}

// PrintKeyValue outputs key-value pairs as a JSON object.
func (f *JSONFormatter) PrintKeyValue(pairs []KVPair) {
	obj := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		obj[jsonKey(pair.Key)] = pair.Value
	}
	_ = f.Print(obj)
}

// PrintMessage outputs a message as JSON.
func (f *JSONFormatter) PrintMessage(msg string) {
	_ = f.Print(map[string]string{"message": msg})
}

// PrintError outputs an error as JSON.
func (f *JSONFormatter) PrintError(err error) {
	_ = f.Print(map[string]string{"error": err.Error()})
}

func jsonKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", "_"))
}

// GetFormatter returns the formatter for the --json flag, writing to w.
func GetFormatter(w io.Writer, jsonOutput bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{Writer: w, Pretty: true}
	}
	return &TableFormatter{Writer: w}
}

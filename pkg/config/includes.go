// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxIncludeDepth is the maximum nesting level for includes.
const MaxIncludeDepth = 10

// IncludeError represents an error during include processing with file context.
type IncludeError struct {
	File    string
	Message string
	Cause   error
}

func (e *IncludeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.File, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

func (e *IncludeError) Unwrap() error {
	return e.Cause
}

// CircularIncludeError represents a circular include detection.
type CircularIncludeError struct {
	Path  []string
	Cycle string
}

func (e *CircularIncludeError) Error() string {
	return fmt.Sprintf("circular include detected: %s -> %s", strings.Join(e.Path, " -> "), e.Cycle)
}

type includeContext struct {
	depth       int
	visited     map[string]bool
	visitPath   []string
	loadedFiles []string
}

// LoadWithIncludes reads a configuration file and merges the replicas
// declared by its include fragments. Only databases.replicas is taken from
// fragments; every other section must live in the main file. It returns
// the merged configuration and every file read, main file first.
func LoadWithIncludes(path string) (*Config, []string, error) {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return nil, nil, &IncludeError{File: path, Message: "failed to resolve path", Cause: err}
	}

	ctx := &includeContext{visited: make(map[string]bool)}
	cfg, err := ctx.load(absPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, ctx.loadedFiles, nil
}

func (ctx *includeContext) load(absPath string) (*Config, error) {
	if ctx.depth > MaxIncludeDepth {
		return nil, &IncludeError{
			File:    absPath,
			Message: fmt.Sprintf("maximum include depth (%d) exceeded", MaxIncludeDepth),
		}
	}
	if ctx.visited[absPath] {
		return nil, &CircularIncludeError{
			Path:  append([]string{}, ctx.visitPath...),
			Cycle: absPath,
		}
	}

	ctx.visited[absPath] = true
	ctx.visitPath = append(ctx.visitPath, absPath)
	ctx.loadedFiles = append(ctx.loadedFiles, absPath)
	defer func() {
		ctx.visitPath = ctx.visitPath[:len(ctx.visitPath)-1]
	}()

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, &IncludeError{File: absPath, Message: "failed to read file", Cause: err}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &IncludeError{File: absPath, Message: "failed to parse YAML", Cause: err}
	}

	if len(cfg.Includes) > 0 {
		ctx.depth++
		defer func() { ctx.depth-- }()

		baseDir := filepath.Dir(absPath)
		for _, pattern := range cfg.Includes {
			if err := ctx.includePattern(baseDir, pattern, &cfg); err != nil {
				return nil, err
			}
		}
	}

	return &cfg, nil
}

func (ctx *includeContext) includePattern(baseDir, pattern string, cfg *Config) error {
	fullPattern := pattern
	if !filepath.IsAbs(pattern) {
		fullPattern = filepath.Join(baseDir, pattern)
	}

	matches, err := filepath.Glob(fullPattern)
	if err != nil {
		return &IncludeError{
			File:    baseDir,
			Message: fmt.Sprintf("invalid glob pattern %q", pattern),
			Cause:   err,
		}
	}
	sort.Strings(matches)

	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			return &IncludeError{File: match, Message: "failed to stat file", Cause: err}
		}
		if info.IsDir() {
			continue
		}
		if err := CheckFilePermissions(match); err != nil {
			return &IncludeError{File: match, Message: "permission check failed", Cause: err}
		}

		included, err := ctx.load(match)
		if err != nil {
			return err
		}
		if err := mergeReplicas(cfg, included, match); err != nil {
			return err
		}
	}
	return nil
}

// CheckFilePermissions rejects files that other users can read or write.
// Connection strings may carry passwords.
func CheckFilePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	mode := info.Mode().Perm()
	if mode&0o002 != 0 {
		return fmt.Errorf("file is world-writable (%04o)", mode)
	}
	if mode&0o004 != 0 {
		return fmt.Errorf("file is world-readable (%04o)", mode)
	}
	return nil
}

// mergeReplicas appends the fragment's replicas, rejecting targets that are
// already configured.
func mergeReplicas(main, included *Config, sourceFile string) error {
	existing := make(map[string]bool, len(main.Databases.Replicas)+2)
	existing[main.Databases.Primary] = true
	existing[main.Databases.Standby] = true
	for _, r := range main.Databases.Replicas {
		existing[r] = true
	}

	for _, r := range included.Databases.Replicas {
		if existing[r] {
			return &IncludeError{
				File:    sourceFile,
				Message: fmt.Sprintf("replica target %q already configured", redact(r)),
			}
		}
		existing[r] = true
	}
	main.Databases.Replicas = append(main.Databases.Replicas, included.Databases.Replicas...)
	return nil
}

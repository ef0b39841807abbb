// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loganrossus/strongdb/pkg/config"
	"github.com/loganrossus/strongdb/pkg/logging"
	"github.com/loganrossus/strongdb/pkg/metrics"
	"github.com/loganrossus/strongdb/pkg/version"
)

const (
	DefaultConfigPath               = "/etc/strongdb/config.yaml"
	MaxInsecureFileMode fs.FileMode = 0o004
)

// Command-line flags stored at package level for reload handler access.
var (
	configPath string
)

func main() {
	flag.StringVar(&configPath, "config", DefaultConfigPath, "path to configuration file")
	showVersion := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("strongdb %s\n", version.Version)
		os.Exit(0)
	}

	// Bootstrap logger for startup (before config is loaded)
	bootstrapLogger := logging.Bootstrap(os.Stdout)

	bootstrapLogger.Info("strongdb starting",
		"version", version.Version,
		"config", configPath,
	)

	// Check config file permissions before loading
	if err := checkConfigPermissions(configPath, bootstrapLogger); err != nil {
		bootstrapLogger.Error("configuration file security check failed", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		bootstrapLogger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := config.Validate(cfg); err != nil {
		bootstrapLogger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		bootstrapLogger.Error("failed to create logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger.Logger)

	logger.Info("configuration loaded",
		"log_level", cfg.Logging.Level,
		"log_format", cfg.Logging.Format,
		"replicas", len(cfg.Databases.Replicas),
		"refresh_interval", cfg.Router.RefreshInterval,
		"probe_timeout", cfg.Router.ProbeTimeout,
	)

	app := NewApplication(cfg, logger)
	if err := app.Initialize(); err != nil {
		logger.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	// Set up context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals (SIGINT, SIGTERM) and reload signal (SIGHUP)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Start(ctx)
	}()

	logger.Info("strongdb running",
		"pid", os.Getpid(),
		"reload", "send SIGHUP to reload the log level",
	)

	// Main event loop
	for {
		select {
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGHUP:
				logger.Info("received SIGHUP, reloading configuration")
				err := handleReload(app, logger.Logger)
				metrics.RecordReload(err == nil)
				if err != nil {
					logger.Error("configuration reload failed", "error", err)
				}
			case syscall.SIGINT, syscall.SIGTERM:
				logger.Info("received shutdown signal", "signal", sig)
				goto shutdown
			}
		case err := <-errChan:
			if err != nil {
				logger.Error("application error", "error", err)
			}
			goto shutdown
		}
	}

shutdown:
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("strongdb stopped")
}

// handleReload re-reads the configuration file. Only the logging level is
// applied; other changes are reported and require a restart.
func handleReload(app *Application, logger *slog.Logger) error {
	if err := checkConfigPermissions(configPath, logger); err != nil {
		return fmt.Errorf("config file security check failed: %w", err)
	}

	newCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.Validate(newCfg); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	if err := app.Reload(newCfg); err != nil {
		return fmt.Errorf("failed to apply configuration: %w", err)
	}

	logger.Info("configuration reloaded successfully", "log_level", newCfg.Logging.Level)
	return nil
}

// checkConfigPermissions verifies the config file has secure permissions.
func checkConfigPermissions(path string, logger *slog.Logger) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	mode := info.Mode().Perm()
	if mode&MaxInsecureFileMode != 0 {
		return fmt.Errorf(
			"config file %s has insecure permissions %04o (world-readable); "+
				"run 'chmod 640 %s' or 'chmod 600 %s' to fix",
			path, mode, path, path,
		)
	}
	// Also refuses world-writable modes such as 0602.
	if err := config.CheckFilePermissions(path); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	if logger != nil {
		logger.Debug("config file permissions verified", "path", path, "mode", fmt.Sprintf("%04o", mode))
	}

	return nil
}

// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loganrossus/strongdb/pkg/access"
	"github.com/loganrossus/strongdb/pkg/api"
	"github.com/loganrossus/strongdb/pkg/config"
	"github.com/loganrossus/strongdb/pkg/endpoint"
	"github.com/loganrossus/strongdb/pkg/health"
	"github.com/loganrossus/strongdb/pkg/logging"
	"github.com/loganrossus/strongdb/pkg/metrics"
	"github.com/loganrossus/strongdb/pkg/postgres"
	"github.com/loganrossus/strongdb/pkg/routing"
	"github.com/loganrossus/strongdb/pkg/store"
	"github.com/loganrossus/strongdb/pkg/version"
)

// Application manages the lifecycle of all strongdb components.
type Application struct {
	config   *config.Config
	configMu sync.RWMutex
	logger   *logging.Logger

	endpoints *endpoint.Set
	prober    *health.CheckProber
	cache     *health.Cache
	router    *routing.Router
	executor  *access.Executor

	journal  store.Journal
	recorder *store.Recorder

	metricsServer *metrics.Server
	apiServer     *api.Server
	startTime     time.Time
	started       atomic.Bool
}

// NewApplication creates a new Application instance with pre-loaded configuration.
func NewApplication(cfg *config.Config, logger *logging.Logger) *Application {
	if logger == nil {
		logger, _ = logging.NewLogger(logging.Config{Level: config.DefaultLogLevel})
	}
	return &Application{
		config: cfg,
		logger: logger,
	}
}

// Initialize sets up all components using the loaded configuration.
func (a *Application) Initialize() error {
	a.logger.Info("initializing application")
	a.startTime = time.Now()

	metrics.SetAppInfo(version.Version)
	metrics.SetConfigMetrics(len(a.config.Databases.Replicas), float64(a.startTime.Unix()))

	if err := a.initializeRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	if err := a.initializeJournal(); err != nil {
		return fmt.Errorf("failed to initialize transition journal: %w", err)
	}

	a.initializeMetricsServer()

	if err := a.initializeAPIServer(); err != nil {
		return fmt.Errorf("failed to initialize API server: %w", err)
	}

	return nil
}

// initializeRouter builds the endpoint set, the prober, the availability
// cache and the router on top of them.
func (a *Application) initializeRouter() error {
	db := a.config.Databases
	set, err := endpoint.NewSet(db.Primary, db.Standby, db.Replicas)
	if err != nil {
		return fmt.Errorf("invalid database topology: %w", err)
	}
	a.endpoints = set

	for _, d := range set.All() {
		a.logger.Info("endpoint configured",
			"endpoint", d.Identity.String(),
			"target", d.Redacted(),
			"check_type", d.Scheme(),
		)
	}

	rc := a.config.Router
	pgOpts := postgres.Options{CommandTimeout: rc.SessionCommandTimeout}

	checker := health.NewCompositeChecker()
	checker.Register("postgres", postgres.NewChecker(pgOpts))
	checker.Register("tcp", health.NewTCPChecker())
	a.logger.Debug("registered health checkers", "types", checker.RegisteredTypes())

	a.prober = health.NewProber(checker, rc.ProbeTimeout, a.component("health"))
	a.cache = health.NewCache(set, a.prober, health.CacheConfig{
		RefreshInterval: rc.RefreshInterval,
		Logger:          a.component("cache"),
	})

	router, err := routing.NewRouter(routing.Config{
		Endpoints:      set,
		Cache:          a.cache,
		Inspector:      a.prober,
		Connector:      postgres.NewConnector(pgOpts, a.component("postgres")),
		SessionTimeout: rc.ProbeTimeout,
		Logger:         a.component("router"),
	})
	if err != nil {
		return err
	}
	a.router = router

	a.executor = access.NewExecutor(router, access.Options{
		RetryCount: rc.RetryOnFailureCount,
		RetryDelay: rc.RetryDelay,
		Logger:     a.logger.Logger,
	})

	a.logger.Info("router initialized",
		"endpoints", set.Len(),
		"replicas", set.ReplicaCount(),
		"refresh_interval", rc.RefreshInterval,
		"probe_timeout", rc.ProbeTimeout,
		"session_command_timeout", rc.SessionCommandTimeout,
		"retry_on_failure_count", rc.RetryOnFailureCount,
	)
	return nil
}

// initializeJournal opens the transition journal and subscribes it to
// cache changes.
func (a *Application) initializeJournal() error {
	if !a.config.Journal.Enabled {
		a.logger.Info("transition journal disabled")
		return nil
	}

	journal, err := store.New(store.Config{
		Type:       store.JournalBBolt,
		Path:       a.config.Journal.Path,
		MaxEntries: a.config.Journal.MaxEntries,
	})
	if err != nil {
		return err
	}
	a.journal = journal
	a.recorder = store.NewRecorder(journal, store.DefaultRecorderBuffer, a.component("journal"))
	a.cache.OnChange(a.recorder.Record)

	a.logger.Info("transition journal initialized",
		"path", a.config.Journal.Path,
		"max_entries", a.config.Journal.MaxEntries,
	)
	return nil
}

// initializeMetricsServer creates and configures the metrics server.
func (a *Application) initializeMetricsServer() {
	if !a.config.Metrics.Enabled {
		a.logger.Info("metrics server disabled")
		return
	}

	address := a.config.Metrics.Address
	if address == "" {
		address = config.DefaultMetricsAddress
	}

	a.metricsServer = metrics.NewServer(metrics.ServerConfig{
		Address: address,
		Logger:  a.logger.Logger,
	})

	a.logger.Info("metrics server initialized", "address", address)
}

// initializeAPIServer creates and configures the API server.
func (a *Application) initializeAPIServer() error {
	if !a.config.API.Enabled {
		a.logger.Info("API server disabled")
		return nil
	}

	handlers := api.NewHandlers(api.HandlersConfig{
		Records:   a.cache,
		Reporter:  a.router,
		Executor:  a.executor,
		Journal:   a.journal,
		Latency:   a.prober.Latency(),
		Version:   version.Version,
		StartTime: a.startTime,
		Logger:    a.component("api"),
	})

	server, err := api.NewServer(api.ServerConfig{
		Address:           a.config.API.Address,
		AllowedNetworks:   a.config.API.AllowedNetworks,
		TrustProxyHeaders: a.config.API.TrustProxyHeaders,
		Logger:            a.component("api"),
	}, handlers)
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}
	a.apiServer = server

	a.logger.Info("API server initialized",
		"address", a.config.API.Address,
		"allowed_networks", a.config.API.AllowedNetworks,
	)
	return nil
}

// Start runs every component and blocks until ctx is canceled.
func (a *Application) Start(ctx context.Context) error {
	a.logger.Info("starting application")
	a.started.Store(true)

	if a.recorder != nil {
		go a.recorder.Run(ctx)
	}

	// Warm the cache so the first acquisition does not pay for a sweep.
	a.cache.RefreshIfStale(ctx, time.Now())
	for _, r := range a.cache.Records() {
		a.logger.Info("initial endpoint availability",
			"endpoint", r.Identity.String(),
			"available", r.Available,
		)
	}

	errCh := make(chan error, 2)
	if a.metricsServer != nil {
		go func() {
			if err := a.metricsServer.Start(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	if a.apiServer != nil {
		go func() {
			if err := a.apiServer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("API server error: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops all application components.
func (a *Application) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down application")

	var shutdownErr error

	if a.apiServer != nil {
		a.logger.Debug("stopping API server")
		if err := a.apiServer.Shutdown(ctx); err != nil {
			a.logger.Error("error stopping API server", "error", err)
			shutdownErr = err
		}
	}

	if a.recorder != nil && a.started.Load() {
		select {
		case <-a.recorder.Done():
		case <-ctx.Done():
			a.logger.Warn("shutdown deadline exceeded while flushing transition journal")
			return ctx.Err()
		}
	}

	if a.journal != nil {
		a.logger.Debug("closing transition journal")
		if err := a.journal.Close(); err != nil {
			a.logger.Error("error closing transition journal", "error", err)
			shutdownErr = err
		}
	}

	a.logger.Info("application shutdown complete")
	return shutdownErr
}

// Reload applies the parts of newCfg that can change at runtime: the log
// level. Topology and router changes are reported and ignored.
func (a *Application) Reload(newCfg *config.Config) error {
	a.configMu.Lock()
	defer a.configMu.Unlock()

	if changes := restartRequired(a.config, newCfg); len(changes) > 0 {
		a.logger.Warn("configuration changes require restart and were not applied",
			"sections", changes,
		)
	}

	if err := a.logger.SetLevel(newCfg.Logging.Level); err != nil {
		return err
	}
	a.config.Logging.Level = newCfg.Logging.Level
	return nil
}

func (a *Application) component(name string) *slog.Logger {
	return a.logger.With("component", name)
}

// restartRequired lists the configuration sections that differ between old
// and new and cannot be applied at runtime.
func restartRequired(oldCfg, newCfg *config.Config) []string {
	var changed []string
	if oldCfg.Databases.Primary != newCfg.Databases.Primary ||
		oldCfg.Databases.Standby != newCfg.Databases.Standby ||
		!slices.Equal(oldCfg.Databases.Replicas, newCfg.Databases.Replicas) {
		changed = append(changed, "databases")
	}
	if oldCfg.Router != newCfg.Router {
		changed = append(changed, "router")
	}
	if oldCfg.Logging.Format != newCfg.Logging.Format {
		changed = append(changed, "logging.format")
	}
	if oldCfg.Metrics != newCfg.Metrics {
		changed = append(changed, "metrics")
	}
	if oldCfg.API.Enabled != newCfg.API.Enabled || oldCfg.API.Address != newCfg.API.Address ||
		oldCfg.API.TrustProxyHeaders != newCfg.API.TrustProxyHeaders ||
		!slices.Equal(oldCfg.API.AllowedNetworks, newCfg.API.AllowedNetworks) {
		changed = append(changed, "api")
	}
	if oldCfg.Journal != newCfg.Journal {
		changed = append(changed, "journal")
	}
	return changed
}

// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// ServerConfig holds API server configuration.
type ServerConfig struct {
	Address           string
	AllowedNetworks   []string
	TrustProxyHeaders bool
	Logger            *slog.Logger
}

// Server provides the diagnostic HTTP API.
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	logger     *slog.Logger
	handlers   *Handlers
	acl        *ACLMiddleware
	ready      chan struct{}
	addr       string
}

// NewServer creates a new API server. It fails if an allowed network
// cannot be parsed.
func NewServer(cfg ServerConfig, handlers *Handlers) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	acl, err := NewACLMiddleware(cfg.AllowedNetworks, cfg.TrustProxyHeaders, logger)
	if err != nil {
		return nil, err
	}

	return &Server{
		config:   cfg,
		logger:   logger,
		handlers: handlers,
		acl:      acl,
		ready:    make(chan struct{}),
		addr:     cfg.Address,
	}, nil
}

// Handler builds the routed, access-controlled handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Liveness endpoints
	mux.HandleFunc("/api/health", s.handlers.HandleHealth)
	mux.HandleFunc("/api/v1/live", s.handlers.Live)

	mux.Handle("/api/v1/endpoints", s.withACL(s.handlers.Endpoints))
	mux.Handle("/api/v1/health/databases", s.withACL(s.handlers.HealthDatabases))
	mux.Handle("/api/v1/route", s.withACL(s.handlers.Route))
	mux.Handle("/api/v1/transitions", s.withACL(s.handlers.Transitions))
	mux.Handle("/api/v1/version", s.withACL(s.handlers.Version))

	return NewLoggingMiddleware(s.logger).Wrap(mux)
}

func (s *Server) withACL(next http.HandlerFunc) http.Handler {
	return s.acl.Wrap(next)
}

// Start starts the API server and blocks until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Live health checks and routed pings can run for a probe timeout.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("api server listen: %w", err)
	}
	s.addr = ln.Addr().String()
	close(s.ready)

	s.logger.Info("starting API server",
		"address", s.addr,
		"allowed_networks", s.config.AllowedNetworks,
		"trust_proxy_headers", s.config.TrustProxyHeaders,
		"journal_endpoints", s.handlers.journal != nil,
	)

	// Start server in a way that respects context cancellation
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Address returns the bound address once Ready is closed.
func (s *Server) Address() string {
	select {
	case <-s.ready:
		return s.addr
	default:
		return s.config.Address
	}
}

// Shutdown gracefully stops the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("stopping API server")

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

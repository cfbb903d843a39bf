/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires the daemon together: protocol clients, player
// manager, dispatcher, scheduler jobs and the HTTP surfaces.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_cast/internal/api"
	"github.com/friendsincode/skald_cast/internal/config"
	"github.com/friendsincode/skald_cast/internal/control"
	"github.com/friendsincode/skald_cast/internal/dlna"
	"github.com/friendsincode/skald_cast/internal/events"
	"github.com/friendsincode/skald_cast/internal/logbuffer"
	"github.com/friendsincode/skald_cast/internal/player"
	"github.com/friendsincode/skald_cast/internal/scheduler"
	"github.com/friendsincode/skald_cast/internal/telemetry"
)

// discoveryJobName keys the periodic SSDP sweep in the scheduler.
const discoveryJobName = "Player_Discovery"

const soapTimeout = 10 * time.Second

// Server bundles the daemon's services behind one lifecycle.
type Server struct {
	cfg    *config.Config
	logger zerolog.Logger
	router chi.Router

	httpServer    *http.Server
	metricsServer *http.Server

	bus        *events.Bus
	logBuffer  *logbuffer.Buffer
	scheduler  *scheduler.Scheduler
	soap       *dlna.SOAPClient
	manager    *player.Manager
	dispatcher *control.Dispatcher
	api        *api.API

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logBuf *logbuffer.Buffer, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		router:     router,
		bus:        events.NewBus(),
		logBuffer:  logBuf,
		scheduler:  scheduler.New(logger),
		shutdownCh: make(chan struct{}),
	}

	s.soap = dlna.NewSOAPClient(soapTimeout, logger)
	s.manager = player.NewManager(cfg.Players, s.soap, s.bus, logger)

	var media control.Searcher
	if url := cfg.FirstMediaServerURL(); url != "" {
		media = dlna.NewMediaServer(url, cfg.RequestedCount, s.soap, logger)
	} else {
		logger.Warn().Msg("no media server configured, item playback disabled")
		media = noMediaServer{}
	}

	waker := player.NewWaker(s.bus, logger)
	s.dispatcher = control.NewDispatcher(
		s.manager, media, s.scheduler, waker, s.soap,
		cfg.PollInterval, s.bus, logger,
	)

	s.api = api.New(s.dispatcher, s.manager, logBuf, s.RequestShutdown, logger)
	s.configureRoutes()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.metricsServer = &http.Server{
		Addr:              cfg.MetricsBind,
		Handler:           telemetry.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
	}

	return s, nil
}

func (s *Server) configureRoutes() {
	if s.cfg.CORSAllow {
		s.router.Use(corsMiddleware)
	}
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.api.Routes(s.router)
}

// Start launches the background jobs and both HTTP listeners. It
// returns a channel that delivers the first listener error.
func (s *Server) Start() <-chan error {
	s.scheduler.StartJob(discoveryJobName, s.cfg.DiscoveryInterval, true, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DiscoveryInterval)
		defer cancel()
		s.manager.RunDiscovery(ctx)
	})

	errCh := make(chan error, 2)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	go func() {
		s.logger.Info().Str("addr", s.metricsServer.Addr).Msg("metrics server listening")
		if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// RequestShutdown asks the process to exit. Safe to call repeatedly.
func (s *Server) RequestShutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
}

// ShutdownRequested delivers when the API asked the process to exit.
func (s *Server) ShutdownRequested() <-chan struct{} {
	return s.shutdownCh
}

// Shutdown stops jobs and drains the HTTP listeners.
func (s *Server) Shutdown(ctx context.Context) error {
	s.scheduler.Shutdown()

	var first error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		first = err
	}
	if err := s.metricsServer.Shutdown(ctx); err != nil && first == nil {
		first = err
	}
	return first
}

// Router exposes the HTTP handler, mainly for tests.
func (s *Server) Router() chi.Router {
	return s.router
}

// corsMiddleware allows any origin. The daemon lives on a trusted
// home network and is driven by browser frontends on other hosts.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// noMediaServer rejects item-mode commands when config has no media
// server.
type noMediaServer struct{}

func (noMediaServer) Search(context.Context, dlna.SearchQuery) (*dlna.SearchResponse, error) {
	return nil, fmt.Errorf("%w: no media server configured", control.ErrCannotBeHandled)
}

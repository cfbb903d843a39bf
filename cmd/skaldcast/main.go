/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/friendsincode/skald_cast/internal/config"
	"github.com/friendsincode/skald_cast/internal/logbuffer"
	"github.com/friendsincode/skald_cast/internal/logging"
	"github.com/friendsincode/skald_cast/internal/server"
	"github.com/friendsincode/skald_cast/internal/telemetry"
	"github.com/friendsincode/skald_cast/internal/version"
)

var (
	logger     zerolog.Logger
	cfg        *config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "skaldcast",
	Short: "Skald Cast - DLNA renderer control daemon",
	Long:  "Skald Cast drives UPnP/DLNA media renderers on the local network: it searches a media server, starts and supervises playback, and wakes sleeping devices.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Skald Cast daemon",
	Long:  "Start the HTTP API, the renderer discovery job and the playback supervisors",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "path to config.json (default $SKALD_CONFIG or ./config.json)")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig(logWriter io.Writer) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.SetupWithWriter(cfg.Environment, logWriter)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	logBuf := logbuffer.New(1000)
	if err := loadConfig(logbuffer.NewWriter(logBuf, io.Discard)); err != nil {
		return err
	}

	logger.Info().Str("version", version.Version).Msg("Skald Cast starting")

	tracerProvider, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName:    "skald-cast",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown tracer provider")
		}
	}()

	srv, err := server.New(cfg, logBuf, logger)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	serveErr := srv.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully...")
	case <-srv.ShutdownRequested():
		logger.Info().Msg("shutdown requested via api, shutting down gracefully...")
	case err := <-serveErr:
		logger.Error().Err(err).Msg("listener failed")
	}

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("Skald Cast stopped")
	return nil
}

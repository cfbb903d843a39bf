/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry provides Prometheus metrics and OpenTelemetry tracing.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestsTotal counts HTTP API requests.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_api_requests_total",
		Help: "Total HTTP API requests by method, endpoint and status code.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes HTTP API request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skald_api_request_duration_seconds",
		Help:    "HTTP API request duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections tracks in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skald_api_active_connections",
		Help: "Number of HTTP requests currently being served.",
	})

	// SOAPRequestsTotal counts SOAP invocations against renderers and media servers.
	SOAPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_soap_requests_total",
		Help: "Total SOAP requests by service, action and outcome.",
	}, []string{"service", "action", "outcome"})

	// ObserverTicksTotal counts playback observer loop executions per player.
	ObserverTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_observer_ticks_total",
		Help: "Total playback observer ticks per player.",
	}, []string{"player"})

	// ObserverErrorsTotal counts failed observer loop executions per player.
	ObserverErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_observer_errors_total",
		Help: "Total playback observer errors per player.",
	}, []string{"player"})

	// TracksPlayedTotal counts tracks started per player.
	TracksPlayedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_tracks_played_total",
		Help: "Total tracks started per player.",
	}, []string{"player"})

	// WakeAttemptsTotal counts Wake-on-LAN packets sent per player.
	WakeAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_wake_attempts_total",
		Help: "Total Wake-on-LAN magic packets sent per player.",
	}, []string{"player"})

	// DiscoveryCyclesTotal counts SSDP discovery runs by outcome.
	DiscoveryCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_discovery_cycles_total",
		Help: "Total SSDP discovery cycles by outcome.",
	}, []string{"outcome"})

	// PlayersKnown tracks the current size of the renderer list.
	PlayersKnown = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skald_players_known",
		Help: "Number of renderers currently known to the player manager.",
	})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

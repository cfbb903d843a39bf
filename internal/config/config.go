/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// PlayerConfig describes one configured renderer.
type PlayerConfig struct {
	Name         string   `json:"name"`
	Aliases      []string `json:"aliases"`
	URL          string   `json:"url"`
	MAC          string   `json:"mac"`
	Capabilities []string `json:"capabilities"`
	SendMetadata bool     `json:"send_metadata"`
}

// MediaServerConfig describes one ContentDirectory media server.
type MediaServerConfig struct {
	URL string `json:"url"`
}

// fileConfig is the on-disk layout of config.json.
type fileConfig struct {
	Players         []PlayerConfig      `json:"players"`
	MediaServers    []MediaServerConfig `json:"media_servers"`
	WebserverPort   int                 `json:"webserver_port"`
	WebserverCORS   bool                `json:"webserver_cors_allow"`
	RequestedCount  string              `json:"requested_count,omitempty"`
	PollIntervalSec int                 `json:"poll_interval_seconds,omitempty"`
}

// Config covers process level configuration: config.json merged with
// SKALD_* environment overrides.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	CORSAllow   bool
	MetricsBind string

	Players      []PlayerConfig
	MediaServers []MediaServerConfig

	// RequestedCount is the ContentDirectory Search RequestedCount.
	RequestedCount int
	// PollInterval is the playback observer interval.
	PollInterval time.Duration
	// DiscoveryInterval is the SSDP reconciliation interval.
	DiscoveryInterval time.Duration

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads config.json from path, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		path = getEnv("SKALD_CONFIG", "config.json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg := &Config{
		Environment: getEnv("SKALD_ENV", "development"),
		HTTPBind:    getEnv("SKALD_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    fc.WebserverPort,
		CORSAllow:   fc.WebserverCORS,
		MetricsBind: getEnv("SKALD_METRICS_BIND", "127.0.0.1:9000"),

		Players:      fc.Players,
		MediaServers: fc.MediaServers,

		RequestedCount:    200,
		PollInterval:      time.Duration(getEnvInt("SKALD_POLL_INTERVAL_SECONDS", 10)) * time.Second,
		DiscoveryInterval: time.Duration(getEnvInt("SKALD_DISCOVERY_INTERVAL_SECONDS", 300)) * time.Second,

		TracingEnabled:    getEnvBool("SKALD_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("SKALD_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("SKALD_TRACING_SAMPLE_RATE", 1.0),
	}

	if cfg.HTTPPort == 0 {
		cfg.HTTPPort = getEnvInt("SKALD_HTTP_PORT", 7777)
	}

	if fc.PollIntervalSec > 0 {
		cfg.PollInterval = time.Duration(fc.PollIntervalSec) * time.Second
	}

	if raw := firstNonEmpty(os.Getenv("SKALD_REQUESTED_COUNT"), fc.RequestedCount); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("requested_count must be a positive integer, got %q", raw)
		}
		cfg.RequestedCount = parsed
	}

	for i, p := range cfg.Players {
		if p.URL == "" {
			return nil, fmt.Errorf("players[%d] (%q) has no url", i, p.Name)
		}
	}

	return cfg, nil
}

// FirstMediaServerURL returns the ContentDirectory control URL used by
// the dispatcher, or "" when none is configured.
func (c *Config) FirstMediaServerURL() string {
	if len(c.MediaServers) == 0 {
		return ""
	}
	return c.MediaServers[0].URL
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "true" || v == "1" || v == "yes" {
			return true
		}
		if v == "false" || v == "0" || v == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

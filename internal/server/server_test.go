/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_cast/internal/config"
	"github.com/friendsincode/skald_cast/internal/logbuffer"
)

func testConfig(cors bool) *config.Config {
	return &config.Config{
		Environment:       "test",
		HTTPBind:          "127.0.0.1",
		HTTPPort:          0,
		CORSAllow:         cors,
		MetricsBind:       "127.0.0.1:0",
		RequestedCount:    200,
		PollInterval:      10 * time.Second,
		DiscoveryInterval: 5 * time.Minute,
	}
}

func newTestServer(t *testing.T, cors bool) *Server {
	t.Helper()
	srv, err := New(testConfig(cors), logbuffer.New(10), zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, false)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRoutesMounted(t *testing.T) {
	srv := newTestServer(t, false)

	for _, path := range []string{"/state", "/players", "/info"} {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestCORSHeader(t *testing.T) {
	srv := newTestServer(t, true)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}

	// Without the toggle, no CORS headers.
	srv = newTestServer(t, false)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want unset", got)
	}
}

func TestShutdownRequestOnce(t *testing.T) {
	srv := newTestServer(t, false)

	srv.RequestShutdown()
	srv.RequestShutdown()

	select {
	case <-srv.ShutdownRequested():
	default:
		t.Fatal("shutdown channel not closed")
	}
}

func TestPlayWithoutMediaServer(t *testing.T) {
	srv := newTestServer(t, false)

	// No players configured and no media server: the dispatcher finds
	// no renderer and answers REQUEST_CANNOT_BE_HANDLED.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/play", nil)
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for empty body", rec.Code)
	}
}

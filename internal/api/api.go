/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the HTTP control surface: playback commands,
// renderer state and process info.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_cast/internal/control"
	"github.com/friendsincode/skald_cast/internal/logbuffer"
	"github.com/friendsincode/skald_cast/internal/player"
	"github.com/friendsincode/skald_cast/internal/version"
)

// Error codes of the command path.
const (
	codeRequestInvalid  = "REQUEST_INVALID"
	codeCannotBeHandled = "REQUEST_CANNOT_BE_HANDLED"
	codeUpstreamFailure = "UPSTREAM_FAILURE"
	codeInternal        = "INTERNAL_INVARIANT"
)

// API exposes HTTP handlers.
type API struct {
	dispatcher *control.Dispatcher
	manager    *player.Manager
	logBuffer  *logbuffer.Buffer
	shutdown   func()
	started    time.Time
	logger     zerolog.Logger
}

// New creates the API handler set. shutdown is invoked by POST /exit
// and must not block.
func New(dispatcher *control.Dispatcher, manager *player.Manager, logBuf *logbuffer.Buffer, shutdown func(), logger zerolog.Logger) *API {
	return &API{
		dispatcher: dispatcher,
		manager:    manager,
		logBuffer:  logBuf,
		shutdown:   shutdown,
		started:    time.Now(),
		logger:     logger,
	}
}

// Routes mounts all handlers.
func (a *API) Routes(r chi.Router) {
	r.Post("/play", a.handlePlay)
	r.Post("/pause", a.handlePause)
	r.Post("/stop", a.handleStop)
	r.Get("/state", a.handleState)
	r.Get("/players", a.handlePlayers)
	r.Get("/info", a.handleInfo)
	r.Post("/exit", a.handleExit)
}

type playRequest struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Type   string `json:"type"`
	Target string `json:"target"`
	Loop   bool   `json:"loop"`
}

type targetRequest struct {
	Target string `json:"target"`
}

func (a *API) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeRequestInvalid, "invalid json")
		return
	}

	view, err := a.dispatcher.Play(r.Context(), control.PlayCommand{
		Target: req.Target,
		URL:    req.URL,
		Title:  req.Title,
		Artist: req.Artist,
		Type:   control.MediaTypeOf(req.Type),
		Loop:   req.Loop,
	})
	if err != nil {
		a.writeCommandError(w, err)
		return
	}

	// A successful dispatch that started nothing means the media
	// server had no matching item.
	if view.LastPlayedURL == "" && !view.Running {
		writeError(w, http.StatusNotFound, codeCannotBeHandled, "Kein passenden Titel gefunden")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handlePause(w http.ResponseWriter, r *http.Request) {
	target, ok := a.decodeTarget(w, r)
	if !ok {
		return
	}
	view, err := a.dispatcher.Pause(r.Context(), target)
	if err != nil {
		a.writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleStop(w http.ResponseWriter, r *http.Request) {
	target, ok := a.decodeTarget(w, r)
	if !ok {
		return
	}
	view, err := a.dispatcher.Stop(r.Context(), target)
	if err != nil {
		a.writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleState(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	writeJSON(w, http.StatusOK, a.dispatcher.States(target))
}

func (a *API) handlePlayers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.manager.Views())
}

func (a *API) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"name":    version.Name,
		"version": version.Version,
		"pid":     os.Getpid(),
		"started": a.started,
		"uptime":  time.Since(a.started).String(),
		"players": len(a.manager.Players()),
	}
	if a.logBuffer != nil {
		info["logs"] = a.logBuffer.Recent(50)
	}
	writeJSON(w, http.StatusOK, info)
}

func (a *API) handleExit(w http.ResponseWriter, r *http.Request) {
	a.logger.Info().Str("remote", r.RemoteAddr).Msg("shutdown requested via api")
	writeJSON(w, http.StatusOK, map[string]string{"status": "shutting down"})
	if a.shutdown != nil {
		a.shutdown()
	}
}

// decodeTarget reads the optional {target} body. An empty body is
// fine; malformed JSON is not.
func (a *API) decodeTarget(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req targetRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeRequestInvalid, "invalid json")
			return "", false
		}
	}
	return req.Target, true
}

func (a *API) writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, control.ErrRequestInvalid):
		writeError(w, http.StatusBadRequest, codeRequestInvalid, err.Error())
	case errors.Is(err, control.ErrCannotBeHandled):
		writeError(w, http.StatusInternalServerError, codeCannotBeHandled, err.Error())
	case errors.Is(err, control.ErrInternal):
		writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
	default:
		a.logger.Warn().Err(err).Msg("upstream failure")
		writeError(w, http.StatusInternalServerError, codeUpstreamFailure, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

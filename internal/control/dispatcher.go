/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package control

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_cast/internal/dlna"
	"github.com/friendsincode/skald_cast/internal/events"
	"github.com/friendsincode/skald_cast/internal/player"
	"github.com/friendsincode/skald_cast/internal/telemetry"
)

// Onliner decides whether a renderer is reachable, waking it when
// needed. *player.Waker implements it.
type Onliner interface {
	EnsureOnline(h *player.Handle) bool
}

// Dispatcher routes commands to renderers. Integrators are
// materialized lazily, one per renderer, and reused for the process
// lifetime.
type Dispatcher struct {
	mu          sync.Mutex
	integrators map[*player.Handle]*Integrator

	manager      *player.Manager
	media        Searcher
	jobs         Jobs
	waker        Onliner
	soap         *dlna.SOAPClient
	pollInterval time.Duration

	bus    *events.Bus
	logger zerolog.Logger

	// create builds the integrator for a handle; swapped in tests.
	create func(h *player.Handle) *Integrator
}

// NewDispatcher wires the dispatcher to the renderer list and the
// shared media server.
func NewDispatcher(manager *player.Manager, media Searcher, jobs Jobs, waker Onliner, soap *dlna.SOAPClient, pollInterval time.Duration, bus *events.Bus, logger zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		integrators:  make(map[*player.Handle]*Integrator),
		manager:      manager,
		media:        media,
		jobs:         jobs,
		waker:        waker,
		soap:         soap,
		pollInterval: pollInterval,
		bus:          bus,
		logger:       logger.With().Str("component", "dispatcher").Logger(),
	}
	d.create = func(h *player.Handle) *Integrator {
		renderer := h.Renderer(d.soap, d.logger)
		return NewIntegrator(h.Name(), renderer, d.media, d.jobs, d.pollInterval, d.bus, d.logger)
	}
	return d
}

// Play dispatches a play command to a suitable renderer.
func (d *Dispatcher) Play(ctx context.Context, cmd PlayCommand) (StateView, error) {
	ctx, span := telemetry.StartSpan(ctx, "dispatcher", "play")
	defer span.End()

	if err := cmd.Validate(); err != nil {
		return StateView{}, err
	}
	integ, err := d.decide(cmd.Target, cmd.Type)
	if err != nil {
		return StateView{}, err
	}
	telemetry.AddSpanAttributes(span, map[string]any{"player": integ.Name()})
	return integ.Play(ctx, cmd)
}

// Pause pauses the targeted (or first online) renderer.
func (d *Dispatcher) Pause(ctx context.Context, target string) (StateView, error) {
	integ, err := d.decide(target, "")
	if err != nil {
		return StateView{}, err
	}
	return integ.Pause(ctx)
}

// Stop stops the targeted (or first online) renderer.
func (d *Dispatcher) Stop(ctx context.Context, target string) (StateView, error) {
	integ, err := d.decide(target, "")
	if err != nil {
		return StateView{}, err
	}
	return integ.Stop(ctx)
}

// PlayerState pairs a renderer name with its playback snapshot.
type PlayerState struct {
	PlayerName string    `json:"player_name"`
	State      StateView `json:"state"`
}

// States reports the playback state of every renderer that has been
// driven so far. A resolvable target narrows the list to that
// renderer.
func (d *Dispatcher) States(target string) []PlayerState {
	var targeted *player.Handle
	if target != "" {
		targeted = d.manager.ByName(target)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]PlayerState, 0, len(d.integrators))
	for h, integ := range d.integrators {
		if targeted != nil && h != targeted {
			continue
		}
		out = append(out, PlayerState{PlayerName: integ.Name(), State: integ.View()})
	}
	return out
}

// decide picks the renderer for a command: the named target when it
// resolves (which must be online), otherwise the first online renderer
// that can play the requested media type.
func (d *Dispatcher) decide(target string, mediaType dlna.MediaType) (*Integrator, error) {
	if target != "" {
		if h := d.manager.ByName(target); h != nil {
			if !d.waker.EnsureOnline(h) {
				return nil, fmt.Errorf("%w: renderer %q is offline", ErrCannotBeHandled, target)
			}
			return d.integrator(h), nil
		}
		d.logger.Debug().Str("target", target).Msg("target matches no renderer, falling back")
	}

	for _, h := range d.manager.Players() {
		if mediaType != "" && !h.CanPlay(mediaType) {
			continue
		}
		if d.waker.EnsureOnline(h) {
			return d.integrator(h), nil
		}
	}
	return nil, fmt.Errorf("%w: no online renderer found", ErrCannotBeHandled)
}

// integrator returns the renderer's integrator, creating it on first
// use.
func (d *Dispatcher) integrator(h *player.Handle) *Integrator {
	d.mu.Lock()
	defer d.mu.Unlock()

	if integ, ok := d.integrators[h]; ok {
		return integ
	}
	integ := d.create(h)
	d.integrators[h] = integ
	return integ
}

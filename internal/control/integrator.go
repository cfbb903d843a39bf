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
	"github.com/friendsincode/skald_cast/internal/telemetry"
)

// observerJobPrefix keys the poll job of a renderer in the scheduler.
const observerJobPrefix = "Media_Observer_"

// observeTimeout bounds one poll iteration's SOAP round trips.
const observeTimeout = 30 * time.Second

// Transport is the slice of the AVTransport client the integrator
// needs. *dlna.Renderer implements it.
type Transport interface {
	Play(ctx context.Context, url string, item *dlna.Item) error
	SetNext(ctx context.Context, url string, item *dlna.Item) error
	Pause(ctx context.Context) error
	Stop(ctx context.Context) error
	State(ctx context.Context) (dlna.PlayerState, error)
}

// Searcher finds items on a media server. *dlna.MediaServer
// implements it.
type Searcher interface {
	Search(ctx context.Context, query dlna.SearchQuery) (*dlna.SearchResponse, error)
}

// Jobs is the scheduler surface the playback core uses.
type Jobs interface {
	StartJob(name string, interval time.Duration, immediate bool, fn func())
	StopJob(name string)
}

// Integrator supervises playback on one renderer. All operations and
// the poll loop serialize on one mutex, so effects on a renderer are
// linearizable.
type Integrator struct {
	mu sync.Mutex

	name         string
	transport    Transport
	media        Searcher
	jobs         Jobs
	pollInterval time.Duration
	state        *playState

	bus    *events.Bus
	logger zerolog.Logger
}

// NewIntegrator creates the supervisor for one renderer.
func NewIntegrator(name string, transport Transport, media Searcher, jobs Jobs, pollInterval time.Duration, bus *events.Bus, logger zerolog.Logger) *Integrator {
	return &Integrator{
		name:         name,
		transport:    transport,
		media:        media,
		jobs:         jobs,
		pollInterval: pollInterval,
		state:        &playState{},
		bus:          bus,
		logger:       logger.With().Str("player", name).Logger(),
	}
}

// Name returns the renderer name this integrator drives.
func (i *Integrator) Name() string { return i.name }

func (i *Integrator) jobName() string {
	return observerJobPrefix + i.name
}

// Play starts playback for cmd, replacing whatever ran before, and
// begins supervising it. The returned view reflects the initial track
// start; a view without a last played URL means the media server had
// nothing matching.
func (i *Integrator) Play(ctx context.Context, cmd PlayCommand) (StateView, error) {
	if err := cmd.Validate(); err != nil {
		return StateView{}, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	i.jobs.StopJob(i.jobName())
	i.state = newPlayState(cmd)

	if err := i.startTrack(ctx); err != nil {
		i.endLocked("exception in play: " + err.Error())
		return i.state.view(), fmt.Errorf("play on %s: %w", i.name, err)
	}

	if i.state.running {
		i.jobs.StartJob(i.jobName(), i.pollInterval, false, i.observe)
		i.publish(events.EventPlaybackStarted, i.state.lastPlayedURL)
	}
	return i.state.view(), nil
}

// Pause ends supervision and pauses the renderer.
func (i *Integrator) Pause(ctx context.Context) (StateView, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.endLocked("pause invoked")
	if err := i.transport.Pause(ctx); err != nil {
		i.endLocked("exception in pause: " + err.Error())
		return i.state.view(), fmt.Errorf("pause on %s: %w", i.name, err)
	}
	return i.state.view(), nil
}

// Stop ends supervision and stops the renderer.
func (i *Integrator) Stop(ctx context.Context) (StateView, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.endLocked("stop invoked")
	if err := i.transport.Stop(ctx); err != nil {
		i.endLocked("exception in stop: " + err.Error())
		return i.state.view(), fmt.Errorf("stop on %s: %w", i.name, err)
	}
	return i.state.view(), nil
}

// View returns the current playback snapshot.
func (i *Integrator) View() StateView {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state.view()
}

// startTrack performs one track start: the command URL directly, or a
// random item from the (possibly freshly fetched) search result. An
// empty search result ends the command without error.
func (i *Integrator) startTrack(ctx context.Context) error {
	s := i.state

	if s.cmd.URLMode() {
		if err := i.transport.Play(ctx, s.cmd.URL, nil); err != nil {
			return err
		}
		s.nowPlaying(s.cmd.URL, nil)
		telemetry.TracksPlayedTotal.WithLabelValues(i.name).Inc()
		if s.looping() {
			if err := i.transport.SetNext(ctx, s.cmd.URL, nil); err != nil {
				return err
			}
			s.nextPlay(s.cmd.URL, nil)
		}
		return nil
	}

	if s.search == nil {
		search, err := i.media.Search(ctx, s.cmd.Query())
		if err != nil {
			return err
		}
		s.search = search
	}

	item := s.search.RandomItem()
	if item == nil {
		i.logger.Info().Msg("nothing found in media server")
		i.endLocked("nothing found in media server")
		return nil
	}

	if err := i.transport.Play(ctx, item.URL, item); err != nil {
		return err
	}
	s.nowPlaying(item.URL, item)
	telemetry.TracksPlayedTotal.WithLabelValues(i.name).Inc()

	if s.looping() {
		return i.queueNext(ctx)
	}
	return nil
}

// queueNext computes the follow-up track and hands it to the renderer.
func (i *Integrator) queueNext(ctx context.Context) error {
	s := i.state

	if s.cmd.URLMode() {
		if err := i.transport.SetNext(ctx, s.cmd.URL, nil); err != nil {
			return err
		}
		s.nextPlay(s.cmd.URL, nil)
		return nil
	}

	if s.search == nil {
		search, err := i.media.Search(ctx, s.cmd.Query())
		if err != nil {
			return err
		}
		s.search = search
	}
	item := s.search.RandomItem()
	if item == nil {
		return fmt.Errorf("search result became empty")
	}
	if err := i.transport.SetNext(ctx, item.URL, item); err != nil {
		return err
	}
	s.nextPlay(item.URL, item)
	return nil
}

// runningState classifies what the renderer is doing relative to what
// we asked of it.
type runningState int

const (
	runningUnknown runningState = iota
	runningCurrent
	runningNext
	runningStopped
	runningInterrupted
)

type nextState int

const (
	nextUnknown nextState = iota
	nextSet
	nextUnset
)

// classify maps one renderer observation onto the decision table the
// poll loop acts on.
func classify(observed dlna.PlayerState, s *playState) (runningState, nextState) {
	switch {
	case observed.Transport == dlna.StateTransitioning:
		// Mid track change; who is playing is not decidable yet.
		return runningCurrent, nextUnknown
	case observed.Transport == dlna.StateNoMediaPresent:
		return runningInterrupted, nextUnknown
	case observed.CurrentURL != s.lastPlayedURL && (s.nextPlayURL == "" || observed.CurrentURL != s.nextPlayURL):
		// Someone else loaded media behind our back. An empty next
		// slot never counts as a match.
		return runningInterrupted, nextUnknown
	case observed.Transport == dlna.StateStopped && observed.ProgressCount == 0:
		return runningStopped, nextUnknown
	case observed.Transport == dlna.StateStopped:
		// Stopped mid-track.
		return runningInterrupted, nextUnknown
	case observed.Transport == dlna.StatePlaying && observed.CurrentURL == s.lastPlayedURL:
		if observed.NextURL != "" {
			return runningCurrent, nextSet
		}
		return runningCurrent, nextUnset
	case observed.Transport == dlna.StatePlaying && s.nextPlayURL != "" && observed.CurrentURL == s.nextPlayURL:
		// The renderer moved on by itself; its own queued next, if
		// any, is not one of ours.
		return runningNext, nextUnset
	default:
		return runningUnknown, nextUnknown
	}
}

// observe is one poll iteration, run by the scheduler.
func (i *Integrator) observe() {
	ctx, cancel := context.WithTimeout(context.Background(), observeTimeout)
	defer cancel()

	i.mu.Lock()
	defer i.mu.Unlock()

	telemetry.ObserverTicksTotal.WithLabelValues(i.name).Inc()
	if !i.state.running {
		return
	}

	observed, err := i.transport.State(ctx)
	if err != nil {
		telemetry.ObserverErrorsTotal.WithLabelValues(i.name).Inc()
		i.logger.Warn().Err(err).Msg("observation failed")
		i.endLocked("exception in looping: " + err.Error())
		return
	}

	running, next := classify(observed, i.state)
	i.logger.Debug().
		Str("transport", string(observed.Transport)).
		Str("current_url", observed.CurrentURL).
		Int("progress", observed.ProgressCount).
		Msg("observation")

	switch running {
	case runningInterrupted:
		i.endLocked("interrupted")

	case runningCurrent:
		if i.state.looping() && next == nextUnset {
			if err := i.queueNext(ctx); err != nil {
				telemetry.ObserverErrorsTotal.WithLabelValues(i.name).Inc()
				i.endLocked("exception in looping: " + err.Error())
			}
		}

	case runningNext:
		if !i.state.looping() {
			telemetry.ObserverErrorsTotal.WithLabelValues(i.name).Inc()
			i.logger.Error().Msg("renderer advanced to next track without looping")
			i.endLocked("exception in looping: " + ErrInternal.Error())
			return
		}
		i.state.nextTrackIsPlaying()
		telemetry.TracksPlayedTotal.WithLabelValues(i.name).Inc()
		i.publish(events.EventPlaybackNext, i.state.lastPlayedURL)
		if err := i.queueNext(ctx); err != nil {
			telemetry.ObserverErrorsTotal.WithLabelValues(i.name).Inc()
			i.endLocked("exception in looping: " + err.Error())
		}

	case runningStopped:
		if !i.state.looping() {
			i.endLocked("not looping")
			return
		}
		if err := i.startTrack(ctx); err != nil {
			telemetry.ObserverErrorsTotal.WithLabelValues(i.name).Inc()
			i.endLocked("exception in looping: " + err.Error())
		}

	case runningUnknown:
		i.logger.Info().Str("transport", string(observed.Transport)).Msg("renderer in unhandled state, leaving it alone")
	}
}

// endLocked stops supervision and resets the state. Callers hold the
// mutex.
func (i *Integrator) endLocked(reason string) {
	i.jobs.StopJob(i.jobName())
	wasRunning := i.state.running
	i.state.stop(reason)
	if wasRunning {
		i.logger.Info().Str("reason", reason).Msg("playback ended")
		i.publish(events.EventPlaybackEnded, i.state.lastPlayedURL)
	}
}

func (i *Integrator) publish(eventType events.EventType, url string) {
	if i.bus == nil {
		return
	}
	i.bus.Publish(eventType, events.Payload{"player": i.name, "url": url})
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dlna

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// TransportState is the renderer-reported AVTransport state.
type TransportState string

const (
	StateStopped         TransportState = "STOPPED"
	StatePlaying         TransportState = "PLAYING"
	StateTransitioning   TransportState = "TRANSITIONING"
	StatePausedPlayback  TransportState = "PAUSED_PLAYBACK"
	StatePausedRecording TransportState = "PAUSED_RECORDING"
	StateRecording       TransportState = "RECORDING"
	StateNoMediaPresent  TransportState = "NO_MEDIA_PRESENT"
)

var knownTransportStates = map[TransportState]bool{
	StateStopped:         true,
	StatePlaying:         true,
	StateTransitioning:   true,
	StatePausedPlayback:  true,
	StatePausedRecording: true,
	StateRecording:       true,
	StateNoMediaPresent:  true,
}

// settled are the states in which a renderer accepts a Play after
// SetAVTransportURI, per UPnP AVTransport:1 spec section 2.4.9.2.
var settled = map[TransportState]bool{
	StateStopped:        true,
	StatePlaying:        true,
	StatePausedPlayback: true,
}

const (
	settleAttempts = 20
	settleDelay    = 100 * time.Millisecond
)

// PlayerState is one observation of a renderer: the transport state
// plus the URIs and playback progress needed to interpret it.
type PlayerState struct {
	Transport TransportState
	// CurrentURL and NextURL are the renderer's notion of what is
	// loaded, from GetMediaInfo.
	CurrentURL string
	NextURL    string
	// ProgressCount is GetPositionInfo RelCount. A renderer that
	// stopped at zero finished its track; one that stopped elsewhere
	// was interrupted.
	ProgressCount int
}

// Renderer drives one AVTransport endpoint.
type Renderer struct {
	controlURL   string
	soap         *SOAPClient
	sendMetadata bool
	logger       zerolog.Logger

	// sleep is swapped in tests to skip the settle delay.
	sleep func(time.Duration)
}

// NewRenderer creates an AVTransport client for the given control URL.
// When sendMetadata is false the URI metadata arguments stay empty;
// some renderers refuse URIs that arrive with metadata attached.
func NewRenderer(controlURL string, sendMetadata bool, soap *SOAPClient, logger zerolog.Logger) *Renderer {
	return &Renderer{
		controlURL:   controlURL,
		soap:         soap,
		sendMetadata: sendMetadata,
		logger:       logger.With().Str("control_url", controlURL).Logger(),
		sleep:        time.Sleep,
	}
}

// ControlURL returns the AVTransport control endpoint.
func (r *Renderer) ControlURL() string {
	return r.controlURL
}

// Play loads url as the current track and starts playback. The item
// may be nil for plain URL playback.
func (r *Renderer) Play(ctx context.Context, url string, item *Item) error {
	if err := r.setURI(ctx, "SetAVTransportURI", "CurrentURI", "CurrentURIMetaData", url, item); err != nil {
		return err
	}
	r.waitForSettled(ctx)

	_, err := r.soap.Invoke(ctx, r.controlURL, "AVTransport", "Play", []Arg{
		{Name: "InstanceID", Value: "0"},
		{Name: "Speed", Value: "1"},
	})
	if err != nil {
		return fmt.Errorf("play %s: %w", url, err)
	}
	r.logger.Debug().Str("url", url).Msg("playback started")
	return nil
}

// SetNext queues url as the gapless follow-up track.
func (r *Renderer) SetNext(ctx context.Context, url string, item *Item) error {
	return r.setURI(ctx, "SetNextAVTransportURI", "NextURI", "NextURIMetaData", url, item)
}

// Pause pauses playback.
func (r *Renderer) Pause(ctx context.Context) error {
	_, err := r.soap.Invoke(ctx, r.controlURL, "AVTransport", "Pause", []Arg{
		{Name: "InstanceID", Value: "0"},
	})
	if err != nil {
		return fmt.Errorf("pause: %w", err)
	}
	return nil
}

// Stop stops playback.
func (r *Renderer) Stop(ctx context.Context) error {
	_, err := r.soap.Invoke(ctx, r.controlURL, "AVTransport", "Stop", []Arg{
		{Name: "InstanceID", Value: "0"},
	})
	if err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}

// State observes the renderer: GetTransportInfo for the transport
// state, GetPositionInfo for playback progress and GetMediaInfo for
// the loaded URIs.
func (r *Renderer) State(ctx context.Context) (PlayerState, error) {
	var state PlayerState

	env, err := r.soap.Invoke(ctx, r.controlURL, "AVTransport", "GetTransportInfo", []Arg{
		{Name: "InstanceID", Value: "0"},
	})
	if err != nil {
		return state, fmt.Errorf("get transport info: %w", err)
	}
	transport := TransportState(strings.TrimSpace(ExtractValue(env, "CurrentTransportState")))
	if !knownTransportStates[transport] {
		return state, fmt.Errorf("unknown transport state %q", transport)
	}
	state.Transport = transport

	env, err = r.soap.Invoke(ctx, r.controlURL, "AVTransport", "GetPositionInfo", []Arg{
		{Name: "InstanceID", Value: "0"},
	})
	if err != nil {
		return state, fmt.Errorf("get position info: %w", err)
	}
	relCount := strings.TrimSpace(ExtractValue(env, "RelCount"))
	state.ProgressCount, err = strconv.Atoi(relCount)
	if err != nil {
		return state, fmt.Errorf("parse RelCount %q: %w", relCount, err)
	}

	env, err = r.soap.Invoke(ctx, r.controlURL, "AVTransport", "GetMediaInfo", []Arg{
		{Name: "InstanceID", Value: "0"},
	})
	if err != nil {
		return state, fmt.Errorf("get media info: %w", err)
	}
	state.CurrentURL = strings.TrimSpace(ExtractValue(env, "CurrentURI"))
	state.NextURL = strings.TrimSpace(ExtractValue(env, "NextURI"))

	return state, nil
}

func (r *Renderer) setURI(ctx context.Context, action, uriArg, metaArg, url string, item *Item) error {
	metadata := ""
	if r.sendMetadata && item != nil {
		metadata = Escape(BuildMetadata(*item))
	}
	_, err := r.soap.Invoke(ctx, r.controlURL, "AVTransport", action, []Arg{
		{Name: "InstanceID", Value: "0"},
		{Name: uriArg, Value: url},
		{Name: metaArg, Value: metadata, Raw: true},
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", action, url, err)
	}
	return nil
}

// waitForSettled polls the transport state after SetAVTransportURI
// until the renderer leaves TRANSITIONING, per AVTransport:1 spec
// section 2.4.9.2. After settleAttempts tries Play is attempted
// anyway; a slow renderer beats a stuck one.
func (r *Renderer) waitForSettled(ctx context.Context) {
	for attempt := 0; attempt < settleAttempts; attempt++ {
		env, err := r.soap.Invoke(ctx, r.controlURL, "AVTransport", "GetTransportInfo", []Arg{
			{Name: "InstanceID", Value: "0"},
		})
		if err == nil {
			transport := TransportState(strings.TrimSpace(ExtractValue(env, "CurrentTransportState")))
			if settled[transport] {
				return
			}
		}
		r.sleep(settleDelay)
	}
	r.logger.Warn().Msg("transport state did not settle, playing anyway")
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_cast/internal/config"
	"github.com/friendsincode/skald_cast/internal/dlna"
	"github.com/friendsincode/skald_cast/internal/events"
	"github.com/friendsincode/skald_cast/internal/telemetry"
)

const discoveryTimeout = 3 * time.Second

// Manager keeps the set of known renderers: the configured ones from
// startup plus whatever SSDP discovery turns up, merged by control
// URL so a discovered device enriches its config entry instead of
// duplicating it.
type Manager struct {
	mu      sync.RWMutex
	handles []*Handle

	soap   *dlna.SOAPClient
	bus    *events.Bus
	logger zerolog.Logger

	// discover is swapped in tests.
	discover func(ctx context.Context) []Detected
}

// NewManager seeds the manager with the configured players.
func NewManager(players []config.PlayerConfig, soap *dlna.SOAPClient, bus *events.Bus, logger zerolog.Logger) *Manager {
	m := &Manager{
		soap:   soap,
		bus:    bus,
		logger: logger.With().Str("component", "player_manager").Logger(),
	}
	m.discover = m.discoverSSDP
	for _, p := range players {
		m.handles = append(m.handles, NewConfiguredHandle(p))
	}
	telemetry.PlayersKnown.Set(float64(len(m.handles)))
	return m
}

// Players returns a snapshot of all known renderers.
func (m *Manager) Players() []*Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Handle, len(m.handles))
	copy(out, m.handles)
	return out
}

// Views returns the API representation of all known renderers.
func (m *Manager) Views() []View {
	players := m.Players()
	views := make([]View, 0, len(players))
	for _, h := range players {
		views = append(views, h.View())
	}
	return views
}

// ByName returns the renderer answering to name, or nil.
func (m *Manager) ByName(name string) *Handle {
	for _, h := range m.Players() {
		if h.AnswersTo(name) {
			return h
		}
	}
	return nil
}

// RunDiscovery performs one SSDP sweep and folds the findings into
// the handle set. Known control URLs are refreshed, new ones appended.
func (m *Manager) RunDiscovery(ctx context.Context) {
	found := m.discover(ctx)

	for _, det := range found {
		if det.ControlURL == "" {
			continue
		}
		if existing := m.byControlURL(det.ControlURL); existing != nil {
			existing.MarkSeen(det)
			m.publish(events.EventPlayerUpdated, det)
			continue
		}

		m.mu.Lock()
		m.handles = append(m.handles, NewDiscoveredHandle(det))
		m.mu.Unlock()
		m.logger.Info().Str("player", det.Name).Str("control_url", det.ControlURL).Msg("renderer discovered")
		m.publish(events.EventPlayerDiscovered, det)
	}

	m.mu.RLock()
	telemetry.PlayersKnown.Set(float64(len(m.handles)))
	m.mu.RUnlock()
}

func (m *Manager) byControlURL(controlURL string) *Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, h := range m.handles {
		if h.ControlURL() == controlURL {
			return h
		}
	}
	return nil
}

func (m *Manager) publish(eventType events.EventType, det Detected) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(eventType, events.Payload{
		"player":      det.Name,
		"control_url": det.ControlURL,
	})
}

// discoverSSDP multicasts an M-SEARCH and resolves each response into
// a renderer description. Locations that fail to resolve are skipped.
func (m *Manager) discoverSSDP(ctx context.Context) []Detected {
	locations, err := dlna.Discover(ctx, discoveryTimeout, m.logger)
	if err != nil {
		m.logger.Warn().Err(err).Msg("ssdp discovery failed")
		return nil
	}

	var found []Detected
	for _, loc := range locations {
		desc, err := dlna.FetchDescription(ctx, loc.Location)
		if err != nil {
			m.logger.Debug().Err(err).Str("location", loc.Location).Msg("description fetch failed")
			continue
		}
		if !desc.HasAVTransport() {
			continue
		}
		caps, err := desc.Capabilities(ctx, m.soap)
		if err != nil {
			m.logger.Debug().Err(err).Str("player", desc.FriendlyName).Msg("capability probe failed")
		}
		found = append(found, Detected{
			Name:         desc.FriendlyName,
			UDN:          desc.UDN,
			ControlURL:   desc.ControlURL("AVTransport"),
			Capabilities: caps,
		})
	}
	return found
}

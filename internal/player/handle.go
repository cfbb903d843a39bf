/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package player tracks known renderers: configured ones from
// config.json and discovered ones from SSDP, merged by control URL,
// plus the wake-on-LAN path to bring sleeping devices back.
package player

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_cast/internal/config"
	"github.com/friendsincode/skald_cast/internal/dlna"
)

// Detected holds what SSDP discovery learned about a renderer.
type Detected struct {
	Name         string
	UDN          string
	ControlURL   string
	Capabilities []string
}

// Handle is one known renderer. Configured attributes win over
// detected ones wherever both exist.
type Handle struct {
	mu         sync.RWMutex
	configured *config.PlayerConfig
	detected   *Detected
	lastSeen   time.Time

	rendererOnce sync.Once
	renderer     *dlna.Renderer
}

// NewConfiguredHandle wraps a config entry.
func NewConfiguredHandle(cfg config.PlayerConfig) *Handle {
	c := cfg
	return &Handle{configured: &c}
}

// NewDiscoveredHandle wraps an SSDP find with no config entry.
func NewDiscoveredHandle(d Detected) *Handle {
	det := d
	return &Handle{detected: &det, lastSeen: time.Now()}
}

// MarkSeen refreshes the detected attributes after a discovery cycle.
func (h *Handle) MarkSeen(d Detected) {
	h.mu.Lock()
	det := d
	h.detected = &det
	h.lastSeen = time.Now()
	h.mu.Unlock()
}

// Name returns the configured name, falling back to the SSDP friendly
// name.
func (h *Handle) Name() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.configured != nil && h.configured.Name != "" {
		return h.configured.Name
	}
	if h.detected != nil {
		return h.detected.Name
	}
	return ""
}

// ControlURL returns the AVTransport control URL.
func (h *Handle) ControlURL() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.configured != nil && h.configured.URL != "" {
		return h.configured.URL
	}
	if h.detected != nil {
		return h.detected.ControlURL
	}
	return ""
}

// MAC returns the configured wake-on-LAN address, or "".
func (h *Handle) MAC() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.configured != nil {
		return h.configured.MAC
	}
	return ""
}

// SendMetadata reports whether DIDL metadata accompanies URIs.
func (h *Handle) SendMetadata() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.configured != nil && h.configured.SendMetadata
}

// KnownNames lists every name this renderer answers to: configured
// name, aliases and the detected friendly name. Matching is exact.
func (h *Handle) KnownNames() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var names []string
	if h.configured != nil {
		if h.configured.Name != "" {
			names = append(names, h.configured.Name)
		}
		names = append(names, h.configured.Aliases...)
	}
	if h.detected != nil && h.detected.Name != "" {
		names = append(names, h.detected.Name)
	}
	return names
}

// AnswersTo reports whether name is one of the renderer's known names.
func (h *Handle) AnswersTo(name string) bool {
	for _, known := range h.KnownNames() {
		if known == name {
			return true
		}
	}
	return false
}

// Capabilities returns the media types this renderer handles,
// configured over detected. Empty means unknown.
func (h *Handle) Capabilities() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.configured != nil && len(h.configured.Capabilities) > 0 {
		return h.configured.Capabilities
	}
	if h.detected != nil {
		return h.detected.Capabilities
	}
	return nil
}

// CanPlay reports whether the renderer handles the media type. A
// renderer with no capability information is assumed capable.
func (h *Handle) CanPlay(mediaType dlna.MediaType) bool {
	caps := h.Capabilities()
	if len(caps) == 0 {
		return true
	}
	for _, c := range caps {
		if c == string(mediaType) {
			return true
		}
	}
	return false
}

// Renderer returns the AVTransport client for this handle, created on
// first use.
func (h *Handle) Renderer(soap *dlna.SOAPClient, logger zerolog.Logger) *dlna.Renderer {
	h.rendererOnce.Do(func() {
		h.renderer = dlna.NewRenderer(h.ControlURL(), h.SendMetadata(), soap, logger)
	})
	return h.renderer
}

// View is the API representation of a handle.
type View struct {
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	MAC          string    `json:"mac,omitempty"`
	Aliases      []string  `json:"aliases,omitempty"`
	Capabilities []string  `json:"capabilities,omitempty"`
	SendMetadata bool      `json:"send_metadata"`
	Configured   bool      `json:"configured"`
	Discovered   bool      `json:"discovered"`
	LastSeen     time.Time `json:"last_seen,omitzero"`
}

// View snapshots the handle for the API.
func (h *Handle) View() View {
	v := View{
		Name:         h.Name(),
		URL:          h.ControlURL(),
		MAC:          h.MAC(),
		Capabilities: h.Capabilities(),
		SendMetadata: h.SendMetadata(),
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	v.Configured = h.configured != nil
	v.Discovered = h.detected != nil
	v.LastSeen = h.lastSeen
	if h.configured != nil {
		v.Aliases = h.configured.Aliases
	}
	return v
}

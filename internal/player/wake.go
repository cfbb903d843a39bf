/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_cast/internal/events"
	"github.com/friendsincode/skald_cast/internal/telemetry"
)

const (
	probeTimeout = 200 * time.Millisecond
	wakeRetries  = 10
	wakeDelay    = 2 * time.Second
	wolPort      = 9
)

// Waker decides whether a renderer is reachable and wakes it over the
// LAN when it is not.
type Waker struct {
	logger zerolog.Logger
	bus    *events.Bus

	// Injection points for tests.
	probe     func(url string) bool
	sendMagic func(mac string) error
	sleep     func(time.Duration)
}

// NewWaker creates a waker with real network probes.
func NewWaker(bus *events.Bus, logger zerolog.Logger) *Waker {
	return &Waker{
		logger:    logger.With().Str("component", "waker").Logger(),
		bus:       bus,
		probe:     probeHTTP,
		sendMagic: SendMagicPacket,
		sleep:     time.Sleep,
	}
}

// EnsureOnline reports whether the renderer answers on its control
// URL, waking it via WoL when possible. Without a configured MAC an
// unreachable renderer stays unreachable.
func (w *Waker) EnsureOnline(h *Handle) bool {
	url := h.ControlURL()
	if w.probe(url) {
		return true
	}

	mac := h.MAC()
	if mac == "" {
		w.logger.Debug().Str("player", h.Name()).Msg("offline and no mac configured")
		return false
	}

	for attempt := 1; attempt <= wakeRetries; attempt++ {
		// Re-probe before every packet; the device may have come up
		// on its own in the meantime.
		if w.probe(url) {
			w.logger.Info().Str("player", h.Name()).Int("attempt", attempt).Msg("player woken up")
			if w.bus != nil {
				w.bus.Publish(events.EventPlayerWoken, events.Payload{
					"player":   h.Name(),
					"attempts": attempt,
				})
			}
			return true
		}
		telemetry.WakeAttemptsTotal.WithLabelValues(h.Name()).Inc()
		if err := w.sendMagic(mac); err != nil {
			w.logger.Warn().Err(err).Str("player", h.Name()).Msg("wake-on-lan send failed")
			return false
		}
		w.sleep(wakeDelay)
	}

	w.logger.Warn().Str("player", h.Name()).Msg("player did not wake up")
	return false
}

// probeHTTP considers any HTTP response, error statuses included, as
// proof of life. Only a transport failure counts as offline.
func probeHTTP(url string) bool {
	client := &http.Client{Timeout: probeTimeout}
	resp, err := client.Get(url)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// SendMagicPacket broadcasts a WoL magic packet for mac.
func SendMagicPacket(mac string) error {
	packet, err := BuildMagicPacket(mac)
	if err != nil {
		return err
	}

	conn, err := net.Dial("udp4", fmt.Sprintf("255.255.255.255:%d", wolPort))
	if err != nil {
		return fmt.Errorf("open broadcast socket: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Write(packet); err != nil {
		return fmt.Errorf("send magic packet: %w", err)
	}
	return nil
}

// BuildMagicPacket renders the packet: six 0xff bytes followed by the
// MAC repeated sixteen times.
func BuildMagicPacket(mac string) ([]byte, error) {
	hwAddr, err := net.ParseMAC(mac)
	if err != nil {
		return nil, fmt.Errorf("parse mac %q: %w", mac, err)
	}
	packet := make([]byte, 0, 6+16*len(hwAddr))
	for i := 0; i < 6; i++ {
		packet = append(packet, 0xff)
	}
	for i := 0; i < 16; i++ {
		packet = append(packet, hwAddr...)
	}
	return packet, nil
}

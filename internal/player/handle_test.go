/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"testing"

	"github.com/friendsincode/skald_cast/internal/config"
	"github.com/friendsincode/skald_cast/internal/dlna"
)

func TestHandlePrefersConfiguredAttributes(t *testing.T) {
	h := NewConfiguredHandle(config.PlayerConfig{
		Name:         "Wohnzimmer",
		Aliases:      []string{"TV"},
		URL:          "http://10.0.0.5:8080/AVTransport/Control",
		MAC:          "aa:bb:cc:dd:ee:ff",
		Capabilities: []string{"audio"},
	})
	h.MarkSeen(Detected{
		Name:         "LivingRoom Speaker",
		ControlURL:   "http://10.0.0.5:8080/AVTransport/Control",
		Capabilities: []string{"audio", "video"},
	})

	if h.Name() != "Wohnzimmer" {
		t.Errorf("Name() = %q, want configured name", h.Name())
	}
	caps := h.Capabilities()
	if len(caps) != 1 || caps[0] != "audio" {
		t.Errorf("Capabilities() = %v, want configured [audio]", caps)
	}
}

func TestHandleFallsBackToDetected(t *testing.T) {
	h := NewDiscoveredHandle(Detected{
		Name:         "Küche Radio",
		ControlURL:   "http://10.0.0.9:8080/AVTransport/Control",
		Capabilities: []string{"audio"},
	})

	if h.Name() != "Küche Radio" {
		t.Errorf("Name() = %q", h.Name())
	}
	if h.ControlURL() != "http://10.0.0.9:8080/AVTransport/Control" {
		t.Errorf("ControlURL() = %q", h.ControlURL())
	}
	if h.MAC() != "" {
		t.Errorf("MAC() = %q, want empty for discovered-only", h.MAC())
	}
}

func TestKnownNames(t *testing.T) {
	h := NewConfiguredHandle(config.PlayerConfig{
		Name:    "Wohnzimmer",
		Aliases: []string{"TV", "Fernseher"},
		URL:     "http://10.0.0.5:8080/AVTransport/Control",
	})
	h.MarkSeen(Detected{Name: "LivingRoom Speaker", ControlURL: h.ControlURL()})

	for _, name := range []string{"Wohnzimmer", "TV", "Fernseher", "LivingRoom Speaker"} {
		if !h.AnswersTo(name) {
			t.Errorf("AnswersTo(%q) = false", name)
		}
	}
	// Matching is exact, no substrings or case folding.
	if h.AnswersTo("wohnzimmer") {
		t.Error(`AnswersTo("wohnzimmer") = true, want exact matching`)
	}
	if h.AnswersTo("TV im Wohnzimmer") {
		t.Error("AnswersTo() matched a substring")
	}
}

func TestCanPlay(t *testing.T) {
	tests := []struct {
		name string
		caps []string
		typ  dlna.MediaType
		want bool
	}{
		{name: "listed type", caps: []string{"audio", "video"}, typ: dlna.MediaVideo, want: true},
		{name: "unlisted type", caps: []string{"audio"}, typ: dlna.MediaImage, want: false},
		{name: "unknown capabilities assume capable", caps: nil, typ: dlna.MediaVideo, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewConfiguredHandle(config.PlayerConfig{
				Name: "p", URL: "http://host/control", Capabilities: tt.caps,
			})
			if got := h.CanPlay(tt.typ); got != tt.want {
				t.Errorf("CanPlay(%q) = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}

func TestView(t *testing.T) {
	h := NewConfiguredHandle(config.PlayerConfig{
		Name:         "Wohnzimmer",
		Aliases:      []string{"TV"},
		URL:          "http://10.0.0.5:8080/AVTransport/Control",
		SendMetadata: true,
	})
	v := h.View()
	if !v.Configured || v.Discovered {
		t.Errorf("View() source flags = configured %v discovered %v", v.Configured, v.Discovered)
	}
	if !v.SendMetadata {
		t.Error("View().SendMetadata = false")
	}

	h.MarkSeen(Detected{Name: "LivingRoom", ControlURL: h.ControlURL()})
	v = h.View()
	if !v.Discovered {
		t.Error("View().Discovered = false after MarkSeen")
	}
	if v.LastSeen.IsZero() {
		t.Error("View().LastSeen is zero after MarkSeen")
	}
}

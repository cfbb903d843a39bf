/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package control

import (
	"testing"

	"github.com/friendsincode/skald_cast/internal/dlna"
)

func TestDescription(t *testing.T) {
	tests := []struct {
		name string
		prep func() *playState
		want string
	}{
		{
			name: "fresh state",
			prep: func() *playState { return &playState{} },
			want: "Aus",
		},
		{
			name: "url mode",
			prep: func() *playState {
				s := newPlayState(PlayCommand{URL: "http://radio/stream"})
				s.nowPlaying("http://radio/stream", nil)
				return s
			},
			want: "Spielt http://radio/stream",
		},
		{
			name: "url mode looping",
			prep: func() *playState {
				s := newPlayState(PlayCommand{URL: "http://radio/stream", Loop: true})
				s.nowPlaying("http://radio/stream", nil)
				return s
			},
			want: "Wiederholt http://radio/stream",
		},
		{
			name: "looping audio with artist and title",
			prep: func() *playState {
				s := newPlayState(PlayCommand{Title: "Lied", Artist: "Kapelle", Type: dlna.MediaAudio, Loop: true})
				s.nowPlaying("u", &dlna.Item{})
				return s
			},
			want: "Spielt Lieder von Kapelle mit 'Lied'",
		},
		{
			name: "looping without media type",
			prep: func() *playState {
				s := newPlayState(PlayCommand{Title: "must go", Loop: true})
				s.nowPlaying("u", &dlna.Item{})
				return s
			},
			want: "Spielt Medien mit 'must go'",
		},
		{
			name: "looping video plain",
			prep: func() *playState {
				s := newPlayState(PlayCommand{Title: "Heimat", Type: dlna.MediaVideo, Loop: true})
				s.nowPlaying("u", &dlna.Item{})
				return s
			},
			want: "Spielt Videos mit 'Heimat'",
		},
		{
			name: "looping image by artist",
			prep: func() *playState {
				s := newPlayState(PlayCommand{Artist: "Fotografin", Type: dlna.MediaImage, Loop: true})
				s.nowPlaying("u", &dlna.Item{})
				return s
			},
			want: "Spielt Bilder von Fotografin",
		},
		{
			name: "single item with title and artist",
			prep: func() *playState {
				s := newPlayState(PlayCommand{Title: "must go"})
				s.nowPlaying("u", &dlna.Item{Title: "Show must go on", Artist: "Queen"})
				return s
			},
			want: "Spielt Show must go on von Queen",
		},
		{
			name: "single item actor wins over artist",
			prep: func() *playState {
				s := newPlayState(PlayCommand{Title: "x"})
				s.nowPlaying("u", &dlna.Item{Title: "Film", Actor: "Schauspieler", Artist: "egal"})
				return s
			},
			want: "Spielt Film von Schauspieler",
		},
		{
			name: "single item without title",
			prep: func() *playState {
				s := newPlayState(PlayCommand{Artist: "Queen"})
				s.nowPlaying("u", &dlna.Item{Actor: "Queen"})
				return s
			},
			want: "Spielt etwas von Queen",
		},
		{
			name: "stopped",
			prep: func() *playState {
				s := newPlayState(PlayCommand{URL: "u"})
				s.nowPlaying("u", nil)
				s.stop("not looping")
				return s
			},
			want: "Aus",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.prep().description(); got != tt.want {
				t.Errorf("description() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStopResetsRuntimeFields(t *testing.T) {
	s := newPlayState(PlayCommand{URL: "u", Loop: true})
	s.nowPlaying("u", nil)
	s.nextPlay("u", nil)
	s.stop("stop invoked")

	if s.cmd != nil || s.running {
		t.Error("command survived stop")
	}
	if s.playedCount != 0 {
		t.Errorf("playedCount = %d, want 0", s.playedCount)
	}
	if s.nextPlayURL != "" {
		t.Errorf("nextPlayURL = %q, want cleared", s.nextPlayURL)
	}
	if s.lastPlayedURL != "u" {
		t.Errorf("lastPlayedURL = %q, must survive", s.lastPlayedURL)
	}
	if s.stopReason != "stop invoked" {
		t.Errorf("stopReason = %q", s.stopReason)
	}
}

func TestNextTrackIsPlayingShifts(t *testing.T) {
	s := newPlayState(PlayCommand{Title: "x", Loop: true})
	first := &dlna.Item{Title: "eins", URL: "u1"}
	second := &dlna.Item{Title: "zwei", URL: "u2"}
	s.nowPlaying("u1", first)
	s.nextPlay("u2", second)

	s.nextTrackIsPlaying()

	if s.lastPlayedURL != "u2" || s.lastPlayedItem != second {
		t.Errorf("shift failed: url %q", s.lastPlayedURL)
	}
	if s.nextPlayURL != "" || s.nextPlayItem != nil {
		t.Error("next slot not cleared")
	}
	if s.playedCount != 2 {
		t.Errorf("playedCount = %d, want 2", s.playedCount)
	}
}

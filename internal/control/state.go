/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package control

import (
	"fmt"
	"time"

	"github.com/friendsincode/skald_cast/internal/dlna"
)

// playState is the mutable per-renderer playback state. It is only
// touched under the owning integrator's mutex.
type playState struct {
	cmd      *PlayCommand
	running  bool
	runStart time.Time

	// search caches the media server response for the lifetime of the
	// command, so loop continuations pick from the same result set.
	search *dlna.SearchResponse

	playedCount int
	stopReason  string

	lastPlayedURL  string
	lastPlayedItem *dlna.Item
	nextPlayURL    string
	nextPlayItem   *dlna.Item
}

func newPlayState(cmd PlayCommand) *playState {
	c := cmd
	return &playState{cmd: &c}
}

func (s *playState) looping() bool {
	return s.cmd != nil && s.cmd.Loop
}

// nowPlaying records a track start.
func (s *playState) nowPlaying(url string, item *dlna.Item) {
	s.running = true
	if s.runStart.IsZero() {
		s.runStart = time.Now()
	}
	s.lastPlayedURL = url
	s.lastPlayedItem = item
	s.playedCount++
}

// nextPlay records the queued follow-up track.
func (s *playState) nextPlay(url string, item *dlna.Item) {
	s.nextPlayURL = url
	s.nextPlayItem = item
}

// nextTrackIsPlaying shifts the queued track into the playing slot
// after the renderer moved on by itself.
func (s *playState) nextTrackIsPlaying() {
	s.lastPlayedURL = s.nextPlayURL
	s.lastPlayedItem = s.nextPlayItem
	s.nextPlayURL = ""
	s.nextPlayItem = nil
	s.playedCount++
}

// stop ends the command. The last played track survives the reset so
// callers can still see what was on.
func (s *playState) stop(reason string) {
	s.cmd = nil
	s.running = false
	s.runStart = time.Time{}
	s.search = nil
	s.playedCount = 0
	s.stopReason = reason
	s.nextPlayURL = ""
	s.nextPlayItem = nil
}

// StateView is an immutable snapshot of one renderer's playback state.
type StateView struct {
	Running         bool      `json:"running"`
	Looping         bool      `json:"looping"`
	Description     string    `json:"description"`
	PlayedCount     int       `json:"played_count"`
	StopReason      string    `json:"stop_reason,omitempty"`
	LastPlayedURL   string    `json:"last_played_url,omitempty"`
	LastPlayedTitle string    `json:"last_played_title,omitempty"`
	NextPlayURL     string    `json:"next_play_url,omitempty"`
	RunStart        time.Time `json:"run_start,omitzero"`
}

func (s *playState) view() StateView {
	v := StateView{
		Running:       s.running,
		Looping:       s.looping(),
		Description:   s.description(),
		PlayedCount:   s.playedCount,
		StopReason:    s.stopReason,
		LastPlayedURL: s.lastPlayedURL,
		NextPlayURL:   s.nextPlayURL,
		RunStart:      s.runStart,
	}
	if s.lastPlayedItem != nil {
		v.LastPlayedTitle = s.lastPlayedItem.Title
	}
	return v
}

// description renders the human readable playback summary.
func (s *playState) description() string {
	if s.cmd == nil || !s.running {
		return "Aus"
	}

	if s.cmd.URLMode() {
		if s.cmd.Loop {
			return "Wiederholt " + s.cmd.URL
		}
		return "Spielt " + s.cmd.URL
	}

	if s.cmd.Loop {
		text := "Spielt " + typeText(s.cmd.Type)
		if s.cmd.Artist != "" {
			text += " von " + s.cmd.Artist
		}
		if s.cmd.Title != "" {
			text += fmt.Sprintf(" mit '%s'", s.cmd.Title)
		}
		return text
	}

	title, actor := "", ""
	if s.lastPlayedItem != nil {
		title = s.lastPlayedItem.Title
		actor = s.lastPlayedItem.Actor
		if actor == "" {
			actor = s.lastPlayedItem.Artist
		}
	}
	switch {
	case title != "" && actor != "":
		return fmt.Sprintf("Spielt %s von %s", title, actor)
	case title != "":
		return "Spielt " + title
	case actor != "":
		return "Spielt etwas von " + actor
	default:
		return "Spielt etwas"
	}
}

func typeText(t dlna.MediaType) string {
	switch t {
	case dlna.MediaAudio:
		return "Lieder"
	case dlna.MediaVideo:
		return "Videos"
	case dlna.MediaImage:
		return "Bilder"
	default:
		// Covers an absent type too: the search may default to audio,
		// the description does not.
		return "Medien"
	}
}

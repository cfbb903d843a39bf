/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package control

import (
	"fmt"

	"github.com/friendsincode/skald_cast/internal/dlna"
)

// PlayCommand describes what to play and where. URL set means direct
// URL playback; otherwise title/artist/type drive a media server
// search.
type PlayCommand struct {
	Target string
	URL    string
	Title  string
	Artist string
	Type   dlna.MediaType
	Loop   bool
}

// Validate rejects commands that cannot be dispatched.
func (c PlayCommand) Validate() error {
	if c.URL == "" && c.Title == "" && c.Artist == "" {
		return fmt.Errorf("%w: one of url, title or artist is required", ErrRequestInvalid)
	}
	if c.Type != "" && !dlna.ValidMediaType(c.Type) {
		return fmt.Errorf("%w: unknown media type %q", ErrRequestInvalid, c.Type)
	}
	return nil
}

// MediaTypeOf converts the wire value into a media type without
// judging it; Validate rejects unknown values later.
func MediaTypeOf(s string) dlna.MediaType {
	return dlna.MediaType(s)
}

// URLMode reports whether the command plays a direct URL instead of
// searched items.
func (c PlayCommand) URLMode() bool {
	return c.URL != ""
}

// Query renders the media server search for an item-mode command.
func (c PlayCommand) Query() dlna.SearchQuery {
	return dlna.SearchQuery{
		Title:  c.Title,
		Artist: c.Artist,
		Type:   c.Type,
	}
}

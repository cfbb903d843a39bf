/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dlna

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// MediaType selects which DIDL item class a search targets.
type MediaType string

const (
	MediaAudio MediaType = "audio"
	MediaVideo MediaType = "video"
	MediaImage MediaType = "image"
)

// ValidMediaType reports whether t is a recognized media type.
func ValidMediaType(t MediaType) bool {
	switch t {
	case MediaAudio, MediaVideo, MediaImage:
		return true
	}
	return false
}

// SearchQuery describes one ContentDirectory search. Zero-value fields
// are omitted from the criteria; an empty Type searches audio.
type SearchQuery struct {
	Title  string
	Artist string
	Type   MediaType
}

// sortOrder keeps albums together and in track order, so sequential
// playback of a result set sounds like the album.
const sortOrder = "+upnp:artist,+upnp:album,+upnp:originalTrackNumber,+dc:title"

// Selector picks an index from n candidates. The default selector is
// random; tests substitute a deterministic one.
type Selector interface {
	Pick(n int) int
}

type randomSelector struct{}

func (randomSelector) Pick(n int) int { return rand.Intn(n) }

// MediaServer is a ContentDirectory:1 client bound to one control URL.
type MediaServer struct {
	controlURL     string
	requestedCount int
	soap           *SOAPClient
	selector       Selector
	logger         zerolog.Logger
}

// NewMediaServer creates a search client. requestedCount bounds how
// many results a single Search asks for.
func NewMediaServer(controlURL string, requestedCount int, soap *SOAPClient, logger zerolog.Logger) *MediaServer {
	return &MediaServer{
		controlURL:     controlURL,
		requestedCount: requestedCount,
		soap:           soap,
		selector:       randomSelector{},
		logger:         logger.With().Str("media_server", controlURL).Logger(),
	}
}

// SetSelector overrides the item selection strategy.
func (m *MediaServer) SetSelector(s Selector) {
	m.selector = s
}

// Search runs a ContentDirectory Search and returns the parsed result.
func (m *MediaServer) Search(ctx context.Context, query SearchQuery) (*SearchResponse, error) {
	criteria := BuildCriteria(query)

	env, err := m.soap.Invoke(ctx, m.controlURL, "ContentDirectory", "Search", []Arg{
		{Name: "ContainerID", Value: "0"},
		{Name: "SearchCriteria", Value: criteria},
		{Name: "Filter", Value: "*"},
		{Name: "StartingIndex", Value: "0"},
		{Name: "RequestedCount", Value: strconv.Itoa(m.requestedCount)},
		{Name: "SortCriteria", Value: sortOrder},
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", criteria, err)
	}

	matches, err := strconv.Atoi(strings.TrimSpace(ExtractValue(env, "TotalMatches")))
	if err != nil {
		return nil, fmt.Errorf("parse TotalMatches: %w", err)
	}
	returned, err := strconv.Atoi(strings.TrimSpace(ExtractValue(env, "NumberReturned")))
	if err != nil {
		return nil, fmt.Errorf("parse NumberReturned: %w", err)
	}

	items, err := ParseDIDL(ExtractValue(env, "Result"))
	if err != nil {
		return nil, err
	}

	m.logger.Debug().
		Str("criteria", criteria).
		Int("matches", matches).
		Int("returned", returned).
		Msg("content directory search")

	return &SearchResponse{
		matches:  matches,
		returned: returned,
		items:    items,
		selector: m.selector,
	}, nil
}

// BuildCriteria renders the UPnP search criteria string for a query.
// @refID exists false keeps reference duplicates out of the result.
func BuildCriteria(query SearchQuery) string {
	kind := query.Type
	if kind == "" {
		kind = MediaAudio
	}

	var b strings.Builder
	fmt.Fprintf(&b, `upnp:class derivedfrom "object.item.%sItem" and @refID exists false`, kind)
	if query.Title != "" {
		fmt.Fprintf(&b, ` and dc:title contains "%s"`, query.Title)
	}
	if query.Artist != "" {
		fmt.Fprintf(&b, ` and upnp:artist contains "%s"`, query.Artist)
	}
	return b.String()
}

// SearchResponse is one immutable ContentDirectory search result.
type SearchResponse struct {
	matches  int
	returned int
	items    []Item
	selector Selector
}

// NewSearchResponse builds a result outside of a Search call. A nil
// selector falls back to random selection.
func NewSearchResponse(matches, returned int, items []Item, selector Selector) *SearchResponse {
	if selector == nil {
		selector = randomSelector{}
	}
	return &SearchResponse{matches: matches, returned: returned, items: items, selector: selector}
}

// Matches is the server-side total for the criteria.
func (s *SearchResponse) Matches() int { return s.matches }

// Returned is how many items came back in this response.
func (s *SearchResponse) Returned() int { return s.returned }

// Items returns the parsed result items.
func (s *SearchResponse) Items() []Item { return s.items }

// FirstItem returns the first item, or nil when the result is empty.
func (s *SearchResponse) FirstItem() *Item {
	if len(s.items) == 0 {
		return nil
	}
	return &s.items[0]
}

// RandomItem returns an item chosen by the selection strategy, or nil
// when the result is empty.
func (s *SearchResponse) RandomItem() *Item {
	if len(s.items) == 0 {
		return nil
	}
	return &s.items[s.selector.Pick(len(s.items))]
}

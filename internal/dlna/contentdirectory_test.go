/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dlna

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestBuildCriteria(t *testing.T) {
	tests := []struct {
		name  string
		query SearchQuery
		want  string
	}{
		{
			name:  "default audio",
			query: SearchQuery{},
			want:  `upnp:class derivedfrom "object.item.audioItem" and @refID exists false`,
		},
		{
			name:  "video with title",
			query: SearchQuery{Type: MediaVideo, Title: "Heimat"},
			want:  `upnp:class derivedfrom "object.item.videoItem" and @refID exists false and dc:title contains "Heimat"`,
		},
		{
			name:  "audio with title and artist",
			query: SearchQuery{Title: "Lied", Artist: "Kapelle"},
			want:  `upnp:class derivedfrom "object.item.audioItem" and @refID exists false and dc:title contains "Lied" and upnp:artist contains "Kapelle"`,
		},
		{
			name:  "image artist only",
			query: SearchQuery{Type: MediaImage, Artist: "Fotograf"},
			want:  `upnp:class derivedfrom "object.item.imageItem" and @refID exists false and upnp:artist contains "Fotograf"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildCriteria(tt.query); got != tt.want {
				t.Errorf("BuildCriteria() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidMediaType(t *testing.T) {
	for _, valid := range []MediaType{MediaAudio, MediaVideo, MediaImage} {
		if !ValidMediaType(valid) {
			t.Errorf("ValidMediaType(%q) = false", valid)
		}
	}
	if ValidMediaType("music") {
		t.Error(`ValidMediaType("music") = true`)
	}
}

// fixedSelector always picks the same index.
type fixedSelector int

func (f fixedSelector) Pick(n int) int { return int(f) % n }

func newTestMediaServer(t *testing.T, handler http.Handler) *MediaServer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewMediaServer(srv.URL, 200, NewSOAPClient(time.Second, zerolog.Nop()), zerolog.Nop())
}

func TestSearch(t *testing.T) {
	var gotBody string
	ms := newTestMediaServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		fmt.Fprintf(w, `<e><u:SearchResponse><Result>%s</Result>`+
			`<NumberReturned>2</NumberReturned><TotalMatches>17</TotalMatches>`+
			`</u:SearchResponse></e>`, Escape(sampleDIDL))
	}))

	resp, err := ms.Search(context.Background(), SearchQuery{Title: "Lied"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if !strings.Contains(gotBody, "<ContainerID>0</ContainerID>") {
		t.Errorf("body misses ContainerID: %q", gotBody)
	}
	if !strings.Contains(gotBody, "<RequestedCount>200</RequestedCount>") {
		t.Errorf("body misses RequestedCount: %q", gotBody)
	}
	if !strings.Contains(gotBody, Escape(sortOrder)) {
		t.Errorf("body misses sort order: %q", gotBody)
	}

	if resp.Matches() != 17 {
		t.Errorf("Matches() = %d, want 17", resp.Matches())
	}
	if resp.Returned() != 2 {
		t.Errorf("Returned() = %d, want 2", resp.Returned())
	}
	if len(resp.Items()) != 2 {
		t.Fatalf("Items() = %d, want 2", len(resp.Items()))
	}
	if resp.FirstItem().Title != "Grönland" {
		t.Errorf("FirstItem().Title = %q", resp.FirstItem().Title)
	}
}

func TestSearchEmptyResult(t *testing.T) {
	ms := newTestMediaServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<e><Result>%s</Result><NumberReturned>0</NumberReturned><TotalMatches>0</TotalMatches></e>`,
			Escape(`<DIDL-Lite xmlns="urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/"></DIDL-Lite>`))
	}))

	resp, err := ms.Search(context.Background(), SearchQuery{Title: "nichts"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.FirstItem() != nil {
		t.Error("FirstItem() != nil for empty result")
	}
	if resp.RandomItem() != nil {
		t.Error("RandomItem() != nil for empty result")
	}
}

func TestSearchUpstreamFailure(t *testing.T) {
	ms := newTestMediaServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	if _, err := ms.Search(context.Background(), SearchQuery{}); err == nil {
		t.Fatal("Search() error = nil, want upstream failure")
	}
}

func TestRandomItemUsesSelector(t *testing.T) {
	ms := newTestMediaServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<e><Result>%s</Result><NumberReturned>2</NumberReturned><TotalMatches>2</TotalMatches></e>`,
			Escape(sampleDIDL))
	}))
	ms.SetSelector(fixedSelector(1))

	resp, err := ms.Search(context.Background(), SearchQuery{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := resp.RandomItem().Title; got != "Zweites Lied" {
		t.Errorf("RandomItem().Title = %q, want Zweites Lied", got)
	}
}

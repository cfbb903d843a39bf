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

// fakeRenderer answers AVTransport SOAP actions with canned values and
// records the order of actions it saw.
type fakeRenderer struct {
	transportState string
	relCount       string
	currentURI     string
	nextURI        string

	actions []string
	bodies  []string
}

func (f *fakeRenderer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		action := r.Header.Get("Soapaction")
		action = strings.Trim(action, `"`)
		_, action, _ = strings.Cut(action, "#")
		body, _ := io.ReadAll(r.Body)
		f.actions = append(f.actions, action)
		f.bodies = append(f.bodies, string(body))

		switch action {
		case "GetTransportInfo":
			fmt.Fprintf(w, `<e><CurrentTransportState>%s</CurrentTransportState></e>`, f.transportState)
		case "GetPositionInfo":
			fmt.Fprintf(w, `<e><RelCount>%s</RelCount></e>`, f.relCount)
		case "GetMediaInfo":
			fmt.Fprintf(w, `<e><CurrentURI>%s</CurrentURI><NextURI>%s</NextURI></e>`, f.currentURI, f.nextURI)
		default:
			fmt.Fprintf(w, `<e><u:%sResponse/></e>`, action)
		}
	})
}

func newTestRenderer(t *testing.T, fake *fakeRenderer, sendMetadata bool) *Renderer {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	r := NewRenderer(srv.URL, sendMetadata, NewSOAPClient(time.Second, zerolog.Nop()), zerolog.Nop())
	r.sleep = func(time.Duration) {}
	return r
}

func TestPlaySetsURIThenPlays(t *testing.T) {
	fake := &fakeRenderer{transportState: "STOPPED"}
	r := newTestRenderer(t, fake, false)

	if err := r.Play(context.Background(), "http://media/1.mp3", nil); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	want := []string{"SetAVTransportURI", "GetTransportInfo", "Play"}
	if len(fake.actions) != len(want) {
		t.Fatalf("actions = %v, want %v", fake.actions, want)
	}
	for i, action := range want {
		if fake.actions[i] != action {
			t.Errorf("actions[%d] = %q, want %q", i, fake.actions[i], action)
		}
	}
	if !strings.Contains(fake.bodies[0], "<CurrentURIMetaData></CurrentURIMetaData>") {
		t.Errorf("metadata must stay empty without send_metadata: %q", fake.bodies[0])
	}
	if !strings.Contains(fake.bodies[2], "<Speed>1</Speed>") {
		t.Errorf("Play body = %q, want Speed 1", fake.bodies[2])
	}
}

func TestPlayWaitsOutTransitioning(t *testing.T) {
	fake := &fakeRenderer{transportState: "TRANSITIONING"}
	r := newTestRenderer(t, fake, false)

	if err := r.Play(context.Background(), "http://media/1.mp3", nil); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	// One SetAVTransportURI, then the full settle budget, then Play
	// despite the renderer never settling.
	if got := len(fake.actions); got != settleAttempts+2 {
		t.Fatalf("actions = %d, want %d", got, settleAttempts+2)
	}
	if fake.actions[len(fake.actions)-1] != "Play" {
		t.Errorf("last action = %q, want Play", fake.actions[len(fake.actions)-1])
	}
}

func TestPlaySendsMetadata(t *testing.T) {
	fake := &fakeRenderer{transportState: "STOPPED"}
	r := newTestRenderer(t, fake, true)

	item := &Item{Title: "Grönland", Class: "object.item.audioItem.musicTrack"}
	if err := r.Play(context.Background(), "http://media/1.mp3", item); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	body := fake.bodies[0]
	// Escaped exactly once: the envelope carries entities, not tags.
	if !strings.Contains(body, "&lt;dc:title&gt;Groenland&lt;/dc:title&gt;") {
		t.Errorf("metadata not single-escaped: %q", body)
	}
	if strings.Contains(body, "&amp;lt;") {
		t.Errorf("metadata double-escaped: %q", body)
	}
}

func TestSetNext(t *testing.T) {
	fake := &fakeRenderer{}
	r := newTestRenderer(t, fake, false)

	if err := r.SetNext(context.Background(), "http://media/2.mp3", nil); err != nil {
		t.Fatalf("SetNext() error = %v", err)
	}
	if len(fake.actions) != 1 || fake.actions[0] != "SetNextAVTransportURI" {
		t.Fatalf("actions = %v", fake.actions)
	}
	if !strings.Contains(fake.bodies[0], "<NextURI>http://media/2.mp3</NextURI>") {
		t.Errorf("body = %q", fake.bodies[0])
	}
}

func TestState(t *testing.T) {
	fake := &fakeRenderer{
		transportState: "PLAYING",
		relCount:       "4321",
		currentURI:     "http://media/1.mp3",
		nextURI:        "http://media/2.mp3",
	}
	r := newTestRenderer(t, fake, false)

	state, err := r.State(context.Background())
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if state.Transport != StatePlaying {
		t.Errorf("transport = %q, want PLAYING", state.Transport)
	}
	if state.ProgressCount != 4321 {
		t.Errorf("progress = %d, want 4321", state.ProgressCount)
	}
	if state.CurrentURL != "http://media/1.mp3" || state.NextURL != "http://media/2.mp3" {
		t.Errorf("uris = %q / %q", state.CurrentURL, state.NextURL)
	}
}

func TestStateRejectsUnknownTransport(t *testing.T) {
	fake := &fakeRenderer{transportState: "CUSTOM_VENDOR_STATE"}
	r := newTestRenderer(t, fake, false)

	if _, err := r.State(context.Background()); err == nil {
		t.Fatal("State() error = nil, want unknown transport state")
	}
}

func TestStateRejectsUnparsableRelCount(t *testing.T) {
	fake := &fakeRenderer{transportState: "PLAYING", relCount: "NOT_IMPLEMENTED"}
	r := newTestRenderer(t, fake, false)

	if _, err := r.State(context.Background()); err == nil {
		t.Fatal("State() error = nil, want RelCount parse error")
	}
}

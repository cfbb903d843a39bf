/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logbuffer

import (
	"fmt"
	"io"
	"testing"
)

func TestBufferWrapsAround(t *testing.T) {
	b := New(3)
	for i := 0; i < 5; i++ {
		b.Add(LogEntry{Message: fmt.Sprintf("msg-%d", i)})
	}

	all := b.GetAll()
	if len(all) != 3 {
		t.Fatalf("GetAll() = %d entries, want 3", len(all))
	}
	if all[0].Message != "msg-2" || all[2].Message != "msg-4" {
		t.Errorf("order = %q .. %q", all[0].Message, all[2].Message)
	}
}

func TestRecentNewestFirst(t *testing.T) {
	b := New(10)
	for i := 0; i < 4; i++ {
		b.Add(LogEntry{Message: fmt.Sprintf("msg-%d", i)})
	}

	recent := b.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("Recent(2) = %d entries", len(recent))
	}
	if recent[0].Message != "msg-3" || recent[1].Message != "msg-2" {
		t.Errorf("recent = %q, %q", recent[0].Message, recent[1].Message)
	}
}

func TestForPlayer(t *testing.T) {
	b := New(10)
	b.Add(LogEntry{Message: "a", Player: "Wohnzimmer"})
	b.Add(LogEntry{Message: "b", Player: "Küche"})
	b.Add(LogEntry{Message: "c", Player: "wohnzimmer"})

	got := b.ForPlayer("Wohnzimmer", 0)
	if len(got) != 2 {
		t.Fatalf("ForPlayer() = %d entries, want case-insensitive 2", len(got))
	}
}

func TestWriterParsesZerologLines(t *testing.T) {
	b := New(10)
	w := NewWriter(b, io.Discard)

	line := `{"level":"info","player":"Wohnzimmer","url":"http://x","time":"2026-08-26T10:00:00Z","message":"playback started"}`
	if _, err := w.Write([]byte(line)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	all := b.GetAll()
	if len(all) != 1 {
		t.Fatalf("entries = %d, want 1", len(all))
	}
	entry := all[0]
	if entry.Level != "info" || entry.Message != "playback started" || entry.Player != "Wohnzimmer" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Fields["url"] != "http://x" {
		t.Errorf("fields = %v", entry.Fields)
	}
}

func TestWriterIgnoresNonJSON(t *testing.T) {
	b := New(10)
	w := NewWriter(b, nil)

	if _, err := w.Write([]byte("plain text line\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(b.GetAll()) != 0 {
		t.Error("non-json line landed in buffer")
	}
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "testing"

func TestPublishReachesSubscriber(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventPlaybackStarted)

	bus.Publish(EventPlaybackStarted, Payload{"player": "Wohnzimmer"})

	select {
	case payload := <-sub:
		if payload["player"] != "Wohnzimmer" {
			t.Errorf("payload = %v", payload)
		}
	default:
		t.Fatal("no payload delivered")
	}
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventPlaybackEnded)

	// Overflow the buffered channel; Publish must drop, not block.
	for i := 0; i < cap(sub)+5; i++ {
		bus.Publish(EventPlaybackEnded, Payload{"n": i})
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventPlayerWoken)
	bus.Unsubscribe(EventPlayerWoken, sub)

	if _, open := <-sub; open {
		t.Fatal("channel still open after unsubscribe")
	}

	// Publishing to the now-empty type must be harmless.
	bus.Publish(EventPlayerWoken, Payload{})
}

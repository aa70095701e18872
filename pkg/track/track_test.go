// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianTrack/pkg/datatypes"
	"github.com/AleutianAI/AleutianTrack/pkg/queue"
	"github.com/AleutianAI/AleutianTrack/pkg/store"
)

func newTestRecorder(t *testing.T) (*Recorder, *store.BadgerStore, *queue.MockQueue) {
	t.Helper()
	s, err := store.Open(store.InMemoryConfig("com.example.app", "site-1"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	q := queue.NewMockQueue()
	return NewRecorder(Config{Store: s, Queue: q}), s, q
}

func TestTrack_IdentifiedProfile(t *testing.T) {
	r, s, q := newTestRecorder(t)
	s.SaveIdentifier("alice")

	r.Track("purchase", datatypes.Attributes{"amount": 19.99})

	require.Len(t, q.Tracks, 1)
	ev := q.Tracks[0]
	assert.Equal(t, "alice", ev.Identifier)
	assert.Equal(t, "purchase", ev.Name)
	assert.Equal(t, queue.EventTypeEvent, ev.EventType)
	assert.Equal(t, 19.99, ev.Attributes["amount"])
}

func TestScreen_IdentifiedProfile(t *testing.T) {
	r, s, q := newTestRecorder(t)
	s.SaveIdentifier("alice")

	r.Screen("Checkout", nil)

	require.Len(t, q.Tracks, 1)
	assert.Equal(t, queue.EventTypeScreen, q.Tracks[0].EventType)
	assert.Equal(t, "Checkout", q.Tracks[0].Name)
}

func TestTrack_NoProfileDropped(t *testing.T) {
	r, _, q := newTestRecorder(t)

	r.Track("purchase", nil)

	assert.Empty(t, q.Tracks, "events without a profile are dropped, not queued")
}

func TestTrack_EmptyNameIgnored(t *testing.T) {
	r, s, q := newTestRecorder(t)
	s.SaveIdentifier("alice")

	r.Track("", nil)

	assert.Empty(t, q.Tracks)
}

func TestTrack_AdmissionFailureIsSilent(t *testing.T) {
	r, s, q := newTestRecorder(t)
	s.SaveIdentifier("alice")
	q.FailTrack = true

	r.Track("purchase", nil)

	assert.Len(t, q.Tracks, 0, "rejected events are not recorded")
}

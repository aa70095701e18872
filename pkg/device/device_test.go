// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianTrack/pkg/datatypes"
	"github.com/AleutianAI/AleutianTrack/pkg/queue"
	"github.com/AleutianAI/AleutianTrack/pkg/store"
)

func newTestManager(t *testing.T, autoTrack bool) (*Manager, *store.BadgerStore, *queue.MockQueue) {
	t.Helper()
	s, err := store.Open(store.InMemoryConfig("com.example.app", "site-1"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	q := queue.NewMockQueue()
	m := NewManager(Config{
		Store: s,
		Queue: q,
		Attributes: StaticAttributes(datatypes.Attributes{
			"device_os":    33,
			"device_model": "Pixel 6",
		}),
		AutoTrackDeviceAttributes: autoTrack,
	})
	return m, s, q
}

func TestRegisterToken_NoProfileStoresOnly(t *testing.T) {
	m, s, q := newTestManager(t, true)

	m.RegisterToken("tok1", nil)

	tok, ok := s.DeviceToken()
	require.True(t, ok)
	assert.Equal(t, "tok1", tok)
	assert.Empty(t, q.TokenRegisters, "no registration task without an identified profile")
}

func TestRegisterToken_IdentifiedProfileQueuesTask(t *testing.T) {
	m, s, q := newTestManager(t, true)
	s.SaveIdentifier("alice")

	m.RegisterToken("tok1", datatypes.Attributes{"push_enabled": true})

	require.Len(t, q.TokenRegisters, 1)
	reg := q.TokenRegisters[0]
	assert.Equal(t, "alice", reg.ProfileIdentified)
	assert.Equal(t, "tok1", reg.DeviceToken)
	assert.Equal(t, 33, reg.Attributes["device_os"], "default device attributes attached")
	assert.Equal(t, true, reg.Attributes["push_enabled"], "custom attributes preserved")
}

func TestRegisterToken_AutoTrackDisabledOmitsDefaults(t *testing.T) {
	m, s, q := newTestManager(t, false)
	s.SaveIdentifier("alice")

	m.RegisterToken("tok1", datatypes.Attributes{"push_enabled": true})

	require.Len(t, q.TokenRegisters, 1)
	attrs := q.TokenRegisters[0].Attributes
	assert.NotContains(t, attrs, "device_os")
	assert.Equal(t, true, attrs["push_enabled"])
}

func TestRegisterToken_EmptyTokenIgnored(t *testing.T) {
	m, s, q := newTestManager(t, true)

	m.RegisterToken("", nil)

	_, ok := s.DeviceToken()
	assert.False(t, ok)
	assert.Empty(t, q.TokenRegisters)
}

func TestDeleteToken_RemovesAndQueues(t *testing.T) {
	m, s, q := newTestManager(t, true)
	s.SaveIdentifier("alice")
	s.SaveDeviceToken("tok1")

	m.DeleteToken()

	_, ok := s.DeviceToken()
	assert.False(t, ok, "token must be absent after deletion")
	require.Len(t, q.TokenDeletes, 1)
	assert.Equal(t, "alice", q.TokenDeletes[0].ProfileIdentified)
	assert.Equal(t, "tok1", q.TokenDeletes[0].DeviceToken)
}

func TestDeleteToken_NoProfileStillRemovesLocally(t *testing.T) {
	m, s, q := newTestManager(t, true)
	s.SaveDeviceToken("tok1")

	m.DeleteToken()

	_, ok := s.DeviceToken()
	assert.False(t, ok)
	assert.Empty(t, q.TokenDeletes, "no delete task without an identified profile")
}

func TestDeleteToken_NoTokenIsNoop(t *testing.T) {
	m, _, q := newTestManager(t, true)
	m.DeleteToken()
	assert.Empty(t, q.TokenDeletes)
}

func TestDeleteToken_AdmissionFailureStillRemovesLocally(t *testing.T) {
	m, s, q := newTestManager(t, true)
	s.SaveIdentifier("alice")
	s.SaveDeviceToken("tok1")
	q.FailDeleteToken = true

	m.DeleteToken()

	_, ok := s.DeviceToken()
	assert.False(t, ok, "local token removal is unconditional once chosen")
}

func TestToken_ReadsStore(t *testing.T) {
	m, s, _ := newTestManager(t, true)

	_, ok := m.Token()
	assert.False(t, ok)

	s.SaveDeviceToken("tok1")
	tok, ok := m.Token()
	require.True(t, ok)
	assert.Equal(t, "tok1", tok)
}

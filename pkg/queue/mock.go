// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package queue

import (
	"sync"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianTrack/pkg/datatypes"
)

// MockQueue is an in-memory Queue for testing.
//
// Each admission kind can be made to fail independently, and every
// admitted payload is recorded for assertions.
type MockQueue struct {
	mu sync.Mutex

	// FailIdentify rejects QueueIdentifyProfile calls.
	FailIdentify bool
	// FailMerge rejects QueueMergeProfiles calls.
	FailMerge bool
	// FailRegisterToken rejects QueueRegisterDeviceToken calls.
	FailRegisterToken bool
	// FailDeleteToken rejects QueueDeleteDeviceToken calls.
	FailDeleteToken bool
	// FailTrack rejects QueueTrackEvent calls.
	FailTrack bool

	Identifies     []IdentifyProfileTaskData
	Merges         []MergeProfilesTaskData
	TokenRegisters []RegisterDeviceTokenTaskData
	TokenDeletes   []DeleteDeviceTokenTaskData
	Tracks         []TrackEventTaskData
}

var _ Queue = (*MockQueue)(nil)

// NewMockQueue creates a MockQueue that admits everything.
func NewMockQueue() *MockQueue {
	return &MockQueue{}
}

// QueueIdentifyProfile records the identify payload.
func (m *MockQueue) QueueIdentifyProfile(identifier, previousIdentifier string, attributes datatypes.Attributes) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIdentify {
		return Status{}
	}
	m.Identifies = append(m.Identifies, IdentifyProfileTaskData{
		Identifier:         identifier,
		PreviousIdentifier: previousIdentifier,
		Attributes:         attributes.Copy(),
	})
	return Status{Success: true, TaskID: uuid.NewString()}
}

// QueueMergeProfiles records the merge payload.
func (m *MockQueue) QueueMergeProfiles(primaryIdentifier, secondaryIdentifier string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailMerge {
		return Status{}
	}
	m.Merges = append(m.Merges, MergeProfilesTaskData{
		PrimaryIdentifier:   primaryIdentifier,
		SecondaryIdentifier: secondaryIdentifier,
	})
	return Status{Success: true, TaskID: uuid.NewString()}
}

// QueueRegisterDeviceToken records the register payload.
func (m *MockQueue) QueueRegisterDeviceToken(identifier, token string, attributes datatypes.Attributes) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRegisterToken {
		return Status{}
	}
	m.TokenRegisters = append(m.TokenRegisters, RegisterDeviceTokenTaskData{
		ProfileIdentified: identifier,
		DeviceToken:       token,
		Attributes:        attributes.Copy(),
	})
	return Status{Success: true, TaskID: uuid.NewString()}
}

// QueueDeleteDeviceToken records the delete payload.
func (m *MockQueue) QueueDeleteDeviceToken(identifier, token string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDeleteToken {
		return Status{}
	}
	m.TokenDeletes = append(m.TokenDeletes, DeleteDeviceTokenTaskData{
		ProfileIdentified: identifier,
		DeviceToken:       token,
	})
	return Status{Success: true, TaskID: uuid.NewString()}
}

// QueueTrackEvent records the track payload.
func (m *MockQueue) QueueTrackEvent(identifier, name string, eventType EventType, attributes datatypes.Attributes) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailTrack {
		return Status{}
	}
	m.Tracks = append(m.Tracks, TrackEventTaskData{
		Identifier: identifier,
		Name:       name,
		EventType:  eventType,
		Attributes: attributes.Copy(),
	})
	return Status{Success: true, TaskID: uuid.NewString()}
}

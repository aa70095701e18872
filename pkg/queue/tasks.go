// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package queue

import (
	"encoding/json"
	"time"

	"github.com/AleutianAI/AleutianTrack/pkg/datatypes"
)

// TaskType identifies the kind of work a persisted task represents.
type TaskType string

const (
	// TaskTypeIdentifyProfile adds or updates a profile.
	TaskTypeIdentifyProfile TaskType = "identify_profile"

	// TaskTypeMergeProfiles merges an anonymous profile's history into
	// an identified profile, server side.
	TaskTypeMergeProfiles TaskType = "merge_profiles"

	// TaskTypeRegisterDeviceToken registers a push token on a profile.
	TaskTypeRegisterDeviceToken TaskType = "register_device_token"

	// TaskTypeDeleteDeviceToken deletes a push token from a profile.
	TaskTypeDeleteDeviceToken TaskType = "delete_device_token"

	// TaskTypeTrackEvent records a tracked event or screen view.
	TaskTypeTrackEvent TaskType = "track_event"
)

// Task is one persisted unit of deliverable work.
//
// Data holds the JSON-encoded task payload; its shape depends on Type.
type Task struct {
	ID        string          `json:"id"`
	Type      TaskType        `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
	Data      json.RawMessage `json:"data"`
}

// IdentifyProfileTaskData is the payload of TaskTypeIdentifyProfile.
type IdentifyProfileTaskData struct {
	Identifier string `json:"identifier"`

	// PreviousIdentifier is empty on a first-time identify.
	PreviousIdentifier string `json:"previous_identifier,omitempty"`

	Attributes datatypes.Attributes `json:"attributes,omitempty"`
}

// MergeProfilesTaskData is the payload of TaskTypeMergeProfiles.
type MergeProfilesTaskData struct {
	PrimaryIdentifier   string `json:"primary_identifier"`
	SecondaryIdentifier string `json:"secondary_identifier"`
}

// RegisterDeviceTokenTaskData is the payload of TaskTypeRegisterDeviceToken.
type RegisterDeviceTokenTaskData struct {
	ProfileIdentified string               `json:"profile_identified"`
	DeviceToken       string               `json:"device_token"`
	Attributes        datatypes.Attributes `json:"attributes,omitempty"`
	LastUsed          time.Time            `json:"last_used"`
}

// DeleteDeviceTokenTaskData is the payload of TaskTypeDeleteDeviceToken.
type DeleteDeviceTokenTaskData struct {
	ProfileIdentified string `json:"profile_identified"`
	DeviceToken       string `json:"device_token"`
}

// TrackEventTaskData is the payload of TaskTypeTrackEvent.
type TrackEventTaskData struct {
	Identifier string               `json:"identifier"`
	Name       string               `json:"name"`
	EventType  EventType            `json:"event_type"`
	Timestamp  time.Time            `json:"timestamp"`
	Attributes datatypes.Attributes `json:"attributes,omitempty"`
}

// DecodeData unmarshals the task payload into out.
func (t Task) DecodeData(out any) error {
	return json.Unmarshal(t.Data, out)
}

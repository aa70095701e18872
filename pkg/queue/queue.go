// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package queue provides the dispatch-queue admission contract consumed
// by the profile engine, plus a BadgerDB-backed implementation.
//
// Admission is the synchronous acceptance of a task into the
// asynchronous delivery queue, independent of eventual network success.
// The profile engine only ever observes admission: it submits a task,
// reads Status.Success, and moves on. Batching, retry, backoff, and HTTP
// delivery are layered on top of the persisted task log by a delivery
// runner and are invisible to this contract.
//
// Admission performs bounded local I/O only (one BadgerDB transaction)
// and is safe to call while the profile engine's lock is held.
package queue

import "github.com/AleutianAI/AleutianTrack/pkg/datatypes"

// Status is the synchronous result of one admission attempt.
type Status struct {
	// Success reports whether the task was durably admitted.
	Success bool

	// TaskID identifies the admitted task. Empty when Success is false.
	TaskID string
}

// Queue accepts discrete tracking operations for asynchronous delivery.
//
// Thread Safety: implementations are safe for concurrent use.
type Queue interface {
	// QueueIdentifyProfile admits an identify task for identifier.
	// previousIdentifier is the identifier being replaced, or empty
	// when this is a first-time identify.
	QueueIdentifyProfile(identifier, previousIdentifier string, attributes datatypes.Attributes) Status

	// QueueMergeProfiles admits a server-side merge of the secondary
	// (anonymous) profile's history into the primary profile.
	QueueMergeProfiles(primaryIdentifier, secondaryIdentifier string) Status

	// QueueRegisterDeviceToken admits a device-token registration
	// against the given profile.
	QueueRegisterDeviceToken(identifier, token string, attributes datatypes.Attributes) Status

	// QueueDeleteDeviceToken admits a device-token deletion for the
	// given profile.
	QueueDeleteDeviceToken(identifier, token string) Status

	// QueueTrackEvent admits a track or screen event under the given
	// profile identifier.
	QueueTrackEvent(identifier, name string, eventType EventType, attributes datatypes.Attributes) Status
}

// EventType distinguishes track events from screen views.
type EventType string

const (
	// EventTypeEvent is a plain tracked event.
	EventTypeEvent EventType = "event"

	// EventTypeScreen is a screen-view event.
	EventTypeScreen EventType = "screen"
)

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package track records named events and screen views against the
// currently identified profile.
package track

import (
	"github.com/AleutianAI/AleutianTrack/pkg/datatypes"
	"github.com/AleutianAI/AleutianTrack/pkg/logging"
	"github.com/AleutianAI/AleutianTrack/pkg/queue"
	"github.com/AleutianAI/AleutianTrack/pkg/store"
)

// Config holds configuration for a Recorder.
type Config struct {
	// Store resolves the current profile identifier. Required.
	Store store.SiteStore

	// Queue admits track-event tasks. Required.
	Queue queue.Queue

	// Logger receives tracking events. Nil disables logging.
	Logger *logging.Logger
}

// Recorder submits track and screen events for asynchronous delivery.
//
// Events require an identified profile: without one there is no
// server-side subject to attribute the event to, so the event is
// dropped with a log line rather than queued into limbo.
type Recorder struct {
	store  store.SiteStore
	queue  queue.Queue
	logger *logging.Logger
}

// NewRecorder creates an event Recorder.
func NewRecorder(cfg Config) *Recorder {
	return &Recorder{
		store:  cfg.Store,
		queue:  cfg.Queue,
		logger: logging.OrNop(cfg.Logger),
	}
}

// Track records a named event with optional attributes.
func (r *Recorder) Track(name string, attributes datatypes.Attributes) {
	r.record(queue.EventTypeEvent, name, attributes)
}

// Screen records a screen view. name is the screen's title.
func (r *Recorder) Screen(name string, attributes datatypes.Attributes) {
	r.record(queue.EventTypeScreen, name, attributes)
}

func (r *Recorder) record(eventType queue.EventType, name string, attributes datatypes.Attributes) {
	if name == "" {
		r.logger.Debug("ignoring event with empty name", "event_type", string(eventType))
		return
	}

	identifier, ok := r.store.Identifier()
	if !ok {
		r.logger.Info("no profile identified, dropping event",
			"event_type", string(eventType),
			"name", name,
		)
		return
	}

	r.logger.Debug("recording event",
		"event_type", string(eventType),
		"name", name,
		"identifier", identifier,
	)

	status := r.queue.QueueTrackEvent(identifier, name, eventType, attributes)
	if !status.Success {
		r.logger.Error("failed to admit track-event task", "name", name)
	}
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package device owns the push device token: persisting it locally and
// registering or deleting it against the currently identified profile.
//
// The token survives identify/clear cycles in local storage until it is
// explicitly deleted; the profile engine invokes this package around
// identity switches but never owns the token itself.
package device

import (
	"time"

	"github.com/AleutianAI/AleutianTrack/pkg/datatypes"
	"github.com/AleutianAI/AleutianTrack/pkg/logging"
	"github.com/AleutianAI/AleutianTrack/pkg/queue"
	"github.com/AleutianAI/AleutianTrack/pkg/store"
)

// AttributesProvider supplies default device attributes for token
// registration: OS version, device model, app version, SDK version and
// the like. The host application owns device introspection; the SDK only
// forwards what it is given.
type AttributesProvider func() datatypes.Attributes

// StaticAttributes adapts a fixed attribute set into an AttributesProvider.
func StaticAttributes(attrs datatypes.Attributes) AttributesProvider {
	return func() datatypes.Attributes { return attrs.Copy() }
}

// Config holds configuration for a token Manager.
type Config struct {
	// Store persists the token. Required.
	Store store.SiteStore

	// Queue admits register/delete tasks. Required.
	Queue queue.Queue

	// Attributes supplies default device attributes. Nil means none.
	Attributes AttributesProvider

	// AutoTrackDeviceAttributes controls whether default device
	// attributes are attached to token registrations.
	// Default: false.
	AutoTrackDeviceAttributes bool

	// Logger receives token-path events. Nil disables logging.
	Logger *logging.Logger
}

// Manager registers and deletes the device token.
//
// The token itself is stored unconditionally once chosen; only the
// server-side registration rides the dispatch queue. Every failure path
// degrades to a log line, never an error to the caller.
//
// Thread Safety: safe for concurrent use given a thread-safe store and
// queue; the profile engine additionally serializes calls it makes
// around identity transitions.
type Manager struct {
	store     store.SiteStore
	queue     queue.Queue
	attrs     AttributesProvider
	autoTrack bool
	logger    *logging.Logger
	now       func() time.Time
}

// NewManager creates a token Manager.
func NewManager(cfg Config) *Manager {
	return &Manager{
		store:     cfg.Store,
		queue:     cfg.Queue,
		attrs:     cfg.Attributes,
		autoTrack: cfg.AutoTrackDeviceAttributes,
		logger:    logging.OrNop(cfg.Logger),
		now:       time.Now,
	}
}

// RegisterToken persists the token and, when a profile is identified,
// admits a registration task for it.
//
// The local save happens before the identity check: a token chosen by
// the host is remembered even when no profile exists yet, so a later
// identify can auto-register it.
func (m *Manager) RegisterToken(token string, attributes datatypes.Attributes) {
	if token == "" {
		m.logger.Debug("ignoring empty device token")
		return
	}

	m.logger.Info("registering device token", "token_present", true)
	m.store.SaveDeviceToken(token)

	identifier, ok := m.store.Identifier()
	if !ok {
		m.logger.Debug("no profile identified, token stored for next identify")
		return
	}

	status := m.queue.QueueRegisterDeviceToken(identifier, token, m.registrationAttributes(attributes))
	if !status.Success {
		m.logger.Error("failed to admit register-device-token task", "identifier", identifier)
	}
}

// DeleteToken removes the stored token and admits a deletion task for
// the currently identified profile, preventing future pushes from being
// attributed to it.
func (m *Manager) DeleteToken() {
	token, ok := m.store.DeviceToken()
	if !ok {
		m.logger.Debug("no device token stored, nothing to delete")
		return
	}

	if identifier, identified := m.store.Identifier(); identified {
		status := m.queue.QueueDeleteDeviceToken(identifier, token)
		if !status.Success {
			m.logger.Error("failed to admit delete-device-token task", "identifier", identifier)
		}
	}

	m.store.RemoveDeviceToken()
}

// Token returns the locally stored device token, if any.
func (m *Manager) Token() (string, bool) {
	return m.store.DeviceToken()
}

// registrationAttributes merges default device attributes under the
// caller's custom attributes. Custom keys win on conflict.
func (m *Manager) registrationAttributes(custom datatypes.Attributes) datatypes.Attributes {
	var defaults datatypes.Attributes
	if m.autoTrack && m.attrs != nil {
		defaults = m.attrs()
	}
	return defaults.Merged(custom)
}

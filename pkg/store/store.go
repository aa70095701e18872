// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store provides durable local key/value state for the SDK.
//
// Every SDK instance persists a small set of identity keys (who the
// current profile is, the anonymous id, the device token, the HTTP pause
// window) in an embedded BadgerDB. Keys are namespaced per
// (application package, site id) so multiple embedded SDK instances or
// app reinstalls never cross-contaminate.
//
// All operations are synchronous and fail-soft: a read error yields
// "absent", a write error is swallowed and logged. The SDK must never
// crash the host application over a storage fault; the profile engine
// orders individual single-key writes itself to keep state consistent.
package store

import "time"

// Persisted key names, one per identity-state value.
//
// These are stable wire names; changing them orphans state written by
// previous SDK versions.
const (
	KeyIdentifier         = "identifier"
	KeyAnonymousID        = "anonymous_id"
	KeyAnonymousProfileID = "anonymous_profile_id"
	KeyDeviceToken        = "device_token"
	KeyHTTPPauseEnds      = "http_pause_until"
)

// SiteStore is durable key/value storage scoped to one site/workspace.
//
// Pure storage; no business logic. Absence of a key means "unset".
//
// Thread Safety: implementations are safe for concurrent use, but the
// profile engine serializes multi-key sequences itself.
type SiteStore interface {
	// SaveIdentifier persists the currently identified profile id.
	SaveIdentifier(identifier string)
	// RemoveIdentifier deletes the identifier key.
	RemoveIdentifier()
	// Identifier returns the identified profile id, if set.
	Identifier() (string, bool)

	// SaveAnonymousID persists the local anonymous tag.
	SaveAnonymousID(anonymousID string)
	// RemoveAnonymousID deletes the anonymous id key.
	RemoveAnonymousID()
	// AnonymousID returns the local anonymous tag, if set.
	AnonymousID() (string, bool)

	// SaveAnonymousProfileID persists the anonymous pseudo-profile id.
	SaveAnonymousProfileID(anonymousProfileID string)
	// RemoveAnonymousProfileID deletes the anonymous profile id key.
	RemoveAnonymousProfileID()
	// AnonymousProfileID returns the anonymous pseudo-profile id, if set.
	AnonymousProfileID() (string, bool)

	// SaveDeviceToken persists the last known push token.
	SaveDeviceToken(token string)
	// RemoveDeviceToken deletes the device token key.
	RemoveDeviceToken()
	// DeviceToken returns the last known push token, if set.
	DeviceToken() (string, bool)

	// SaveHTTPRequestsPauseEnds persists the timestamp until which the
	// transport layer must not send. The SDK core does not interpret it.
	SaveHTTPRequestsPauseEnds(t time.Time)
	// HTTPRequestsPauseEnds returns the pause timestamp, if set.
	HTTPRequestsPauseEnds() (time.Time, bool)

	// ClearAll removes every key in this store's namespace.
	ClearAll()

	// Close releases the underlying database handle.
	Close() error
}

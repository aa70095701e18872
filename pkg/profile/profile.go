// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package profile implements the profile identity engine: the single
// place that decides, for every identify/merge/clear/attribute-update
// call, which locally persisted keys change, in what order, and only
// after the corresponding queue admission succeeded.
//
// Correctness here spans two independently failable systems — local
// key/value storage and the dispatch queue. The engine upholds:
//
//   - There is never a partial identify: either the local identifier
//     and the queued identify task are both committed, or neither is.
//   - A failed admission leaves durable state unchanged and fires no
//     hooks.
//   - The device token survives identify/clear cycles until explicitly
//     deleted or re-associated after a profile switch.
//   - Local writes happen after, never before, admission succeeds
//     (the pre-switch token/anonymous-id removal is the one deliberate
//     exception, documented on Identify).
//
// All entry points are serialized by one mutex per engine instance:
// two concurrent identifies racing on the same keys could otherwise
// both observe "no previous identity" and both behave as first-time.
package profile

import (
	"sync"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianTrack/pkg/datatypes"
	"github.com/AleutianAI/AleutianTrack/pkg/hooks"
	"github.com/AleutianAI/AleutianTrack/pkg/logging"
	"github.com/AleutianAI/AleutianTrack/pkg/queue"
	"github.com/AleutianAI/AleutianTrack/pkg/store"
)

// Reserved attribute keys the engine injects into outgoing payloads.
const (
	// AttributeAnonymousID carries the local anonymous tag on identify
	// payloads so server-side identity stitching can occur.
	AttributeAnonymousID = "anonymous_id"

	// AttributeAnonymousProfile marks an identify that creates an
	// anonymous pseudo-profile.
	AttributeAnonymousProfile = "anonymous_profile"
)

// TokenManager is the device-token collaborator the engine invokes
// around identity transitions.
type TokenManager interface {
	// RegisterToken registers the token against the currently
	// identified profile, merging default device attributes.
	RegisterToken(token string, attributes datatypes.Attributes)

	// DeleteToken removes the stored token and detaches it from the
	// current profile.
	DeleteToken()

	// Token returns the locally stored token, if any.
	Token() (string, bool)
}

// Repository is the public contract of the profile identity engine.
//
// All operations are synchronous from the caller's point of view: they
// may perform local I/O and a queue-admission check, but never block on
// network delivery.
type Repository interface {
	// Identify associates the device with the named profile.
	Identify(identifier string, attributes datatypes.Attributes) error

	// SetAnonymousID tags or pseudo-identifies an anonymous profile.
	// Empty input is a no-op.
	SetAnonymousID(anonymousID string) error

	// AddCustomProfileAttributes merges attributes into the currently
	// identified profile. A no-op when no profile is identified.
	AddCustomProfileAttributes(attributes datatypes.Attributes) error

	// ClearIdentify stops identifying the current profile.
	// A no-op when no profile is identified.
	ClearIdentify()
}

// Config holds the engine's collaborators.
type Config struct {
	// Store is the durable site-scoped state. Required.
	Store store.SiteStore

	// Queue is the dispatch-queue admission API. Required.
	Queue queue.Queue

	// Tokens is the device token manager. Required.
	Tokens TokenManager

	// Notifier publishes identity transitions to other modules. Required.
	Notifier *hooks.Notifier

	// AllowAnonymousMessaging makes SetAnonymousID identify an
	// anonymous pseudo-profile instead of storing a local tag.
	// Default: false.
	AllowAnonymousMessaging bool

	// Logger receives engine events. Nil disables logging.
	Logger *logging.Logger
}

// repository is the engine implementation.
type repository struct {
	mu sync.Mutex

	store          store.SiteStore
	queue          queue.Queue
	tokens         TokenManager
	notifier       *hooks.Notifier
	allowAnonymous bool
	logger         *logging.Logger
}

// NewRepository creates the profile identity engine.
func NewRepository(cfg Config) Repository {
	return &repository{
		store:          cfg.Store,
		queue:          cfg.Queue,
		tokens:         cfg.Tokens,
		notifier:       cfg.Notifier,
		allowAnonymous: cfg.AllowAnonymousMessaging,
		logger:         logging.OrNop(cfg.Logger),
	}
}

// NewAnonymousID returns a locally generated id suitable for
// SetAnonymousID before a real identifier is known.
func NewAnonymousID() string {
	return uuid.NewString()
}

// Identify associates the device with the named profile.
//
// Description:
//
//	Reads the current identity, detects whether this is a first-time
//	identify or a profile switch, admits an identify task, and only on
//	admission success persists the new identifier, merges any pending
//	anonymous pseudo-profile, fires the ProfileIdentified hook, and
//	re-registers a stored device token.
//
//	When switching profiles, the stored device token and anonymous id
//	are removed before the admission check so no event can leak under
//	the old identity's token once the switch is decided. If admission
//	then fails those removals are not rolled back; this matches the
//	behavior push modules observe today and keeps the failure window
//	bounded to token/tag state, never identity itself.
//
// Outputs:
//
//	error - ErrEmptyIdentifier before any side effect when identifier
//	        is empty; ErrNotAdmitted when the queue rejects the task
//	        (durable identity state is then unchanged and no hook
//	        fires); nil otherwise.
func (r *repository) Identify(identifier string, attributes datatypes.Attributes) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.identifyLocked(identifier, attributes)
}

// identifyLocked runs the identify sequence. Callers hold r.mu.
func (r *repository) identifyLocked(identifier string, attributes datatypes.Attributes) error {
	if identifier == "" {
		return ErrEmptyIdentifier
	}

	r.logger.Info("identify profile", "identifier", identifier)

	profileAttributes := attributes.Copy()

	previousIdentifier, hadPrevious := r.store.Identifier()
	anonymousProfileID, hadAnonymousProfile := r.store.AnonymousProfileID()

	// The engine is also called with the already-identified profile to
	// change its attributes; that is not a switch.
	isChangingIdentifiedProfile := hadPrevious && previousIdentifier != identifier
	isFirstTimeIdentifying := !hadPrevious

	if isChangingIdentifiedProfile {
		r.logger.Info("changing identified profile",
			"from", previousIdentifier,
			"to", identifier,
		)
		r.logger.Debug("deleting device token before identifying new profile")
		r.tokens.DeleteToken()
		r.logger.Debug("removing anonymous id before identifying new profile")
		r.store.RemoveAnonymousID()
	}

	if anonymousID, ok := r.store.AnonymousID(); ok {
		r.logger.Debug("adding anonymous id to profile attributes")
		profileAttributes[AttributeAnonymousID] = anonymousID
	}

	status := r.queue.QueueIdentifyProfile(identifier, previousIdentifier, profileAttributes)

	// Don't modify durable identity state until the task is admitted.
	// A persisted identifier without a queued identify would put the
	// delivery API permanently out of sync with local state.
	if !status.Success {
		r.logger.Error("failed to admit identify task, aborting", "identifier", identifier)
		return ErrNotAdmitted
	}

	if hadAnonymousProfile && isChangingIdentifiedProfile {
		r.logger.Debug("merging anonymous profile into identified profile",
			"anonymous_profile_id", anonymousProfileID,
			"identifier", identifier,
		)
		mergeStatus := r.queue.QueueMergeProfiles(identifier, anonymousProfileID)
		if mergeStatus.Success {
			r.store.RemoveAnonymousProfileID()
		} else {
			// Left in place so a later identify can retry the merge.
			r.logger.Error("failed to admit merge task, keeping anonymous profile id")
		}
	}

	r.logger.Debug("storing identifier", "identifier", identifier)
	r.store.SaveIdentifier(identifier)

	r.notifier.Publish(hooks.TypeProfileIdentified, identifier)

	if isFirstTimeIdentifying || isChangingIdentifiedProfile {
		if token, ok := r.store.DeviceToken(); ok {
			r.logger.Debug("auto-registering device token to newly identified profile")
			// No extra attributes; the token manager attaches defaults.
			r.tokens.RegisterToken(token, nil)
		}
	}

	return nil
}

// SetAnonymousID tags or pseudo-identifies an anonymous profile.
//
// When anonymous messaging is enabled the id identifies a pseudo-profile
// through the full identify path, and only on admission success is the
// anonymous profile id persisted for a later merge. Otherwise the id is
// a pure local tag and nothing is submitted.
func (r *repository) SetAnonymousID(anonymousID string) error {
	if anonymousID == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.allowAnonymous {
		r.logger.Info("setting anonymous id for profile", "anonymous_id", anonymousID)
		err := r.identifyLocked(anonymousID, datatypes.Attributes{AttributeAnonymousProfile: true})
		if err != nil {
			return err
		}
		r.store.SaveAnonymousProfileID(anonymousID)
		return nil
	}

	r.logger.Info("setting anonymous id, anonymous messaging is disabled", "anonymous_id", anonymousID)
	r.store.SaveAnonymousID(anonymousID)
	return nil
}

// AddCustomProfileAttributes merges attributes into the current profile.
//
// Attribute updates are modeled as re-identification with a merged
// attribute set, reusing every identify invariant instead of
// duplicating them.
func (r *repository) AddCustomProfileAttributes(attributes datatypes.Attributes) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug("add profile attributes request")

	identifier, ok := r.store.Identifier()
	if !ok {
		r.logger.Debug("no profile identified, ignoring attribute update")
		return nil
	}

	return r.identifyLocked(identifier, attributes)
}

// ClearIdentify stops identifying the current profile.
//
// The BeforeProfileStoppedBeingIdentified hook fires before any state
// is removed so dependent modules can still read the old identity; then
// the device token is deleted, and finally the identifier and anonymous
// id are removed. The anonymous profile id is intentionally untouched —
// it only changes via the merge path in Identify.
func (r *repository) ClearIdentify() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug("clear identified profile request")

	identifier, ok := r.store.Identifier()
	if !ok {
		r.logger.Info("no profile identified, ignoring clear request")
		return
	}

	r.notifier.Publish(hooks.TypeBeforeProfileStoppedBeingIdentified, identifier)

	// Delete the token so pushes are never attributed to a profile the
	// SDK no longer identifies.
	r.tokens.DeleteToken()

	r.logger.Debug("removing profile from device storage", "identifier", identifier)
	r.store.RemoveIdentifier()
	r.store.RemoveAnonymousID()
}

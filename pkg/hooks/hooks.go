// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package hooks provides the process-wide publish point for identity
// transitions.
//
// Other SDK modules (push, in-app) react to identity changes without the
// profile engine depending on them: they subscribe a handler and receive
// hooks synchronously, in subscription order. A handler that panics does
// not prevent delivery to subsequent handlers and never aborts the
// engine's own state transition.
package hooks

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianTrack/pkg/logging"
)

// Type identifies a hook event.
type Type string

const (
	// TypeProfileIdentified fires after a profile identify has been
	// admitted to the queue and committed to local storage.
	TypeProfileIdentified Type = "profile_identified"

	// TypeBeforeProfileStoppedBeingIdentified fires before a
	// clear-identify removes any state, so handlers can still read the
	// old identity.
	TypeBeforeProfileStoppedBeingIdentified Type = "before_profile_stopped_being_identified"
)

// Hook is one identity-transition event.
type Hook struct {
	// Type says which transition occurred.
	Type Type `json:"type"`

	// Identifier is the profile the transition concerns: the new
	// identifier for TypeProfileIdentified, the outgoing identifier for
	// TypeBeforeProfileStoppedBeingIdentified.
	Identifier string `json:"identifier"`

	// Timestamp is when the hook was published.
	Timestamp time.Time `json:"timestamp"`
}

// Handler is a function that processes hooks.
type Handler func(hook Hook)

type subscription struct {
	id      string
	handler Handler
	types   []Type
}

// Notifier broadcasts identity hooks to subscribers.
//
// Thread Safety: Notifier is safe for concurrent use.
type Notifier struct {
	mu     sync.RWMutex
	subs   []*subscription // slice, not map: delivery order is subscription order
	logger *logging.Logger
}

// NewNotifier creates a new hook notifier. A nil logger disables
// panic reporting but not panic recovery.
func NewNotifier(logger *logging.Logger) *Notifier {
	return &Notifier{logger: logging.OrNop(logger)}
}

// Subscribe registers a handler for hooks.
//
// Inputs:
//
//	handler - Function to call for each hook.
//	types - Hook types to subscribe to (none = all types).
//
// Outputs:
//
//	string - Subscription ID for unsubscribing.
func (n *Notifier) Subscribe(handler Handler, types ...Type) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	sub := &subscription{
		id:      uuid.NewString(),
		handler: handler,
		types:   types,
	}
	n.subs = append(n.subs, sub)
	return sub.id
}

// Unsubscribe removes a subscription.
//
// Outputs:
//
//	bool - True if the subscription was found and removed.
func (n *Notifier) Unsubscribe(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, sub := range n.subs {
		if sub.id == id {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Publish delivers a hook to all matching subscribers, synchronously and
// in subscription order.
//
// Description:
//
//	Handler panics are recovered so one misbehaving module cannot block
//	delivery to the others or abort the caller. Publish returns after
//	every matching handler has run.
func (n *Notifier) Publish(hookType Type, identifier string) {
	n.mu.RLock()
	subs := make([]*subscription, len(n.subs))
	copy(subs, n.subs)
	n.mu.RUnlock()

	hook := Hook{
		Type:       hookType,
		Identifier: identifier,
		Timestamp:  time.Now(),
	}

	for _, sub := range subs {
		if sub.matches(hookType) {
			n.safeInvoke(sub.handler, hook)
		}
	}
}

// safeInvoke invokes a handler with panic recovery.
func (n *Notifier) safeInvoke(handler Handler, hook Hook) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("hook handler panicked",
				"hook_type", hook.Type,
				"identifier", hook.Identifier,
				"panic", r,
			)
		}
	}()
	handler(hook)
}

func (s *subscription) matches(hookType Type) bool {
	if len(s.types) == 0 {
		return true
	}
	for _, t := range s.types {
		if t == hookType {
			return true
		}
	}
	return false
}

// SubscriptionCount returns the number of active subscriptions.
func (n *Notifier) SubscriptionCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}

// Reset removes all subscriptions. Called on SDK teardown so a dropped
// instance stops delivering hooks.
func (n *Notifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = nil
}

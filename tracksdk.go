// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package tracksdk is the embeddable event-tracking SDK facade.
//
// An SDK instance owns the durable local state for one workspace site:
// the identified profile, anonymous ids, the device token, and the
// persisted dispatch queue of unsent tasks. Hosts construct one SDK per
// site and hold it for the process lifetime:
//
//	sdk, err := tracksdk.New(tracksdk.Config{
//	    SiteID:      "site-123",
//	    APIKey:      "key-abc",
//	    AppPackage:  "com.example.app",
//	    StoragePath: "/data/app/tracksdk",
//	})
//	if err != nil {
//	    return err
//	}
//	defer sdk.Close()
//
//	sdk.Identify("alice")
//	sdk.Track("purchase", datatypes.Attributes{"amount": 19.99})
package tracksdk

import (
	"errors"
	"fmt"
	"sync"

	"github.com/AleutianAI/AleutianTrack/pkg/datatypes"
	"github.com/AleutianAI/AleutianTrack/pkg/device"
	"github.com/AleutianAI/AleutianTrack/pkg/hooks"
	"github.com/AleutianAI/AleutianTrack/pkg/logging"
	"github.com/AleutianAI/AleutianTrack/pkg/profile"
	"github.com/AleutianAI/AleutianTrack/pkg/queue"
	"github.com/AleutianAI/AleutianTrack/pkg/store"
	"github.com/AleutianAI/AleutianTrack/pkg/track"
)

// Option customizes SDK construction.
type Option func(*options)

type options struct {
	dispatch queue.Queue
	logger   *logging.Logger
}

// WithDispatchQueue substitutes the host's own dispatch queue for the
// built-in persisted one. The SDK then never owns or closes the queue.
func WithDispatchQueue(q queue.Queue) Option {
	return func(o *options) { o.dispatch = q }
}

// WithLogger overrides the SDK logger. Takes precedence over both
// Config.Logger and Config.LogLevel.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// SDK is one initialized tracking instance, scoped to a single site.
//
// Thread Safety: all methods are safe for concurrent use.
type SDK struct {
	cfg      Config
	logger   *logging.Logger
	store    *store.BadgerStore
	dispatch queue.Queue
	notifier *hooks.Notifier
	devices  *device.Manager
	profiles profile.Repository
	recorder *track.Recorder

	// ownedQueue is the built-in queue when the host did not supply one;
	// nil otherwise. Only an owned queue is closed with the SDK.
	ownedQueue *queue.BadgerQueue

	mu      sync.Mutex
	modules map[string]Module
	closed  bool
}

// New constructs and wires an SDK instance.
//
// Description:
//
//	Validates the config, opens the durable site store, opens (or
//	adopts) the dispatch queue, and wires the profile engine, device
//	token manager, event recorder, and hook notifier on top. A non-nil
//	return means local storage is open and every operation is ready.
//
// Outputs:
//
//	*SDK  - the initialized instance; callers own Close.
//	error - config validation failure or storage open failure.
func New(cfg Config, opts ...Option) (*SDK, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = cfg.Logger
	}
	if logger == nil {
		logger = logging.New(logging.Config{Level: cfg.LogLevel, Component: "tracksdk"})
	}

	st, err := store.Open(store.Config{
		Path:       cfg.StoragePath,
		InMemory:   cfg.InMemoryStorage,
		AppPackage: cfg.AppPackage,
		SiteID:     cfg.SiteID,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open local state store: %w", err)
	}

	dispatch := o.dispatch
	var ownedQueue *queue.BadgerQueue
	if dispatch == nil {
		ownedQueue, err = queue.NewBadgerQueue(queue.Config{
			DB:             st.DB(),
			SiteID:         cfg.SiteID,
			TaskExpiration: cfg.TaskExpiration,
			Logger:         logger,
		})
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("open dispatch queue: %w", err)
		}
		dispatch = ownedQueue
	}

	notifier := hooks.NewNotifier(logger)

	devices := device.NewManager(device.Config{
		Store:                     st,
		Queue:                     dispatch,
		Attributes:                cfg.DeviceAttributes,
		AutoTrackDeviceAttributes: cfg.AutoTrackDeviceAttributes,
		Logger:                    logger,
	})

	profiles := profile.NewRepository(profile.Config{
		Store:                   st,
		Queue:                   dispatch,
		Tokens:                  devices,
		Notifier:                notifier,
		AllowAnonymousMessaging: cfg.AllowAnonymousMessaging,
		Logger:                  logger,
	})

	recorder := track.NewRecorder(track.Config{
		Store:  st,
		Queue:  dispatch,
		Logger: logger,
	})

	logger.Info("sdk initialized",
		"site_id", cfg.SiteID,
		"region", string(cfg.Region),
		"in_memory", cfg.InMemoryStorage,
	)

	return &SDK{
		cfg:        cfg,
		logger:     logger,
		store:      st,
		dispatch:   dispatch,
		notifier:   notifier,
		devices:    devices,
		profiles:   profiles,
		recorder:   recorder,
		ownedQueue: ownedQueue,
		modules:    make(map[string]Module),
	}, nil
}

// Identify associates the device with the named profile.
func (s *SDK) Identify(identifier string) error {
	return s.profiles.Identify(identifier, nil)
}

// IdentifyWithAttributes associates the device with the named profile
// and sets attributes on it.
func (s *SDK) IdentifyWithAttributes(identifier string, attributes datatypes.Attributes) error {
	return s.profiles.Identify(identifier, attributes)
}

// SetAnonymousID tags the device with a pre-identify anonymous id.
func (s *SDK) SetAnonymousID(anonymousID string) error {
	return s.profiles.SetAnonymousID(anonymousID)
}

// AddCustomProfileAttributes merges attributes into the currently
// identified profile.
func (s *SDK) AddCustomProfileAttributes(attributes datatypes.Attributes) error {
	return s.profiles.AddCustomProfileAttributes(attributes)
}

// ClearIdentify stops identifying the current profile, typically on
// logout.
func (s *SDK) ClearIdentify() {
	s.profiles.ClearIdentify()
}

// RegisterDeviceToken stores the push token and registers it against
// the current profile, if any.
func (s *SDK) RegisterDeviceToken(token string) {
	s.devices.RegisterToken(token, nil)
}

// DeleteDeviceToken removes the stored push token and detaches it from
// the current profile.
func (s *SDK) DeleteDeviceToken() {
	s.devices.DeleteToken()
}

// DeviceToken returns the stored push token, if any.
func (s *SDK) DeviceToken() (string, bool) {
	return s.devices.Token()
}

// Track records a named event against the current profile.
func (s *SDK) Track(name string, attributes datatypes.Attributes) {
	s.recorder.Track(name, attributes)
}

// Screen records a screen view against the current profile.
func (s *SDK) Screen(name string, attributes datatypes.Attributes) {
	s.recorder.Screen(name, attributes)
}

// Hooks returns the notifier modules subscribe to for identity
// transitions.
func (s *SDK) Hooks() *hooks.Notifier {
	return s.notifier
}

// Queue returns the dispatch queue, for modules that admit their own
// task types.
func (s *SDK) Queue() queue.Queue {
	return s.dispatch
}

// Store returns the durable site-scoped state store.
func (s *SDK) Store() store.SiteStore {
	return s.store
}

// Logger returns the SDK logger, for modules to log through.
func (s *SDK) Logger() *logging.Logger {
	return s.logger
}

// Close releases the SDK: hook subscriptions are dropped, the owned
// dispatch queue is closed, and local storage is flushed and closed.
// The instance must not be used afterwards.
func (s *SDK) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	s.mu.Unlock()

	s.logger.Info("closing sdk", "site_id", s.cfg.SiteID)
	s.notifier.Reset()

	var errs []error
	if s.ownedQueue != nil {
		if err := s.ownedQueue.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close dispatch queue: %w", err))
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close local state store: %w", err))
	}
	return errors.Join(errs...)
}

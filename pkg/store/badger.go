// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianTrack/pkg/logging"
)

// Config holds configuration for a Badger-backed SiteStore.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Required for persistent stores. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	// Default: true for production, false for testing.
	SyncWrites bool

	// AppPackage is the embedding application's package/bundle id.
	// Required; part of the key namespace.
	AppPackage string

	// SiteID is the workspace/site this store belongs to.
	// Required; part of the key namespace.
	SiteID string

	// Logger receives storage faults. Nil disables logging.
	Logger *logging.Logger
}

// DefaultConfig returns production defaults for the given namespace.
func DefaultConfig(appPackage, siteID string) Config {
	return Config{
		SyncWrites: true,
		AppPackage: appPackage,
		SiteID:     siteID,
	}
}

// InMemoryConfig returns a test configuration for the given namespace.
func InMemoryConfig(appPackage, siteID string) Config {
	return Config{
		InMemory:   true,
		AppPackage: appPackage,
		SiteID:     siteID,
	}
}

// BadgerStore is a SiteStore backed by an embedded BadgerDB.
//
// Thread Safety: safe for concurrent use; BadgerDB transactions provide
// per-key atomicity.
type BadgerStore struct {
	db     *badger.DB
	ownsDB bool
	prefix []byte
	logger *logging.Logger
}

var _ SiteStore = (*BadgerStore)(nil)

// Open creates and opens a Badger-backed SiteStore.
//
// Description:
//
//	Opens (or creates) the database directory and scopes all keys under
//	the prefix "site/{AppPackage}/{SiteID}/". Opening is the only
//	operation that reports storage errors to the caller; after a
//	successful Open, all reads and writes are fail-soft.
//
// Inputs:
//
//	cfg - Store configuration. AppPackage and SiteID are required.
//
// Outputs:
//
//	*BadgerStore - The opened store. Caller must call Close() when done.
//	error - Non-nil if the namespace is incomplete or the database
//	        cannot be opened.
func Open(cfg Config) (*BadgerStore, error) {
	if cfg.AppPackage == "" || cfg.SiteID == "" {
		return nil, ErrMissingNamespace
	}
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)
	opts = opts.WithLogger(nil) // Badger's internal logging is disabled; faults surface via our logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open site store: %w", err)
	}

	s := WithDB(db, cfg.AppPackage, cfg.SiteID, cfg.Logger)
	s.ownsDB = true
	return s, nil
}

// WithDB wraps an already-open BadgerDB in a namespaced SiteStore.
//
// The database is shared; Close() on the returned store is a no-op for
// the underlying handle. Used when the dispatch queue and the state
// store share one database file.
func WithDB(db *badger.DB, appPackage, siteID string, logger *logging.Logger) *BadgerStore {
	return &BadgerStore{
		db:     db,
		prefix: []byte(fmt.Sprintf("site/%s/%s/", appPackage, siteID)),
		logger: logging.OrNop(logger),
	}
}

// DB exposes the underlying database so collaborators (the local
// dispatch queue) can share it.
func (s *BadgerStore) DB() *badger.DB {
	return s.db
}

// Close closes the store. When the database handle is shared it is left
// open for the other users.
func (s *BadgerStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

func (s *BadgerStore) key(name string) []byte {
	return append(append([]byte{}, s.prefix...), name...)
}

// get reads a single key. Read errors degrade to "absent" per the
// fail-soft contract; only unexpected errors are logged.
func (s *BadgerStore) get(name string) (string, bool) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(name))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			s.logger.Error("storage read failed, treating as absent", "key", name, "error", err)
		}
		return "", false
	}
	return string(value), true
}

// set writes a single key. Write errors are swallowed and logged; the
// caller observes storage as best-effort.
func (s *BadgerStore) set(name, value string) {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(name), []byte(value))
	})
	if err != nil {
		s.logger.Error("storage write dropped", "key", name, "error", err)
	}
}

// remove deletes a single key. Deleting an absent key is not an error.
func (s *BadgerStore) remove(name string) {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key(name))
	})
	if err != nil {
		s.logger.Error("storage delete dropped", "key", name, "error", err)
	}
}

// SaveIdentifier persists the currently identified profile id.
func (s *BadgerStore) SaveIdentifier(identifier string) { s.set(KeyIdentifier, identifier) }

// RemoveIdentifier deletes the identifier key.
func (s *BadgerStore) RemoveIdentifier() { s.remove(KeyIdentifier) }

// Identifier returns the identified profile id, if set.
func (s *BadgerStore) Identifier() (string, bool) { return s.get(KeyIdentifier) }

// SaveAnonymousID persists the local anonymous tag.
func (s *BadgerStore) SaveAnonymousID(anonymousID string) { s.set(KeyAnonymousID, anonymousID) }

// RemoveAnonymousID deletes the anonymous id key.
func (s *BadgerStore) RemoveAnonymousID() { s.remove(KeyAnonymousID) }

// AnonymousID returns the local anonymous tag, if set.
func (s *BadgerStore) AnonymousID() (string, bool) { return s.get(KeyAnonymousID) }

// SaveAnonymousProfileID persists the anonymous pseudo-profile id.
func (s *BadgerStore) SaveAnonymousProfileID(id string) { s.set(KeyAnonymousProfileID, id) }

// RemoveAnonymousProfileID deletes the anonymous profile id key.
func (s *BadgerStore) RemoveAnonymousProfileID() { s.remove(KeyAnonymousProfileID) }

// AnonymousProfileID returns the anonymous pseudo-profile id, if set.
func (s *BadgerStore) AnonymousProfileID() (string, bool) { return s.get(KeyAnonymousProfileID) }

// SaveDeviceToken persists the last known push token.
func (s *BadgerStore) SaveDeviceToken(token string) { s.set(KeyDeviceToken, token) }

// RemoveDeviceToken deletes the device token key.
func (s *BadgerStore) RemoveDeviceToken() { s.remove(KeyDeviceToken) }

// DeviceToken returns the last known push token, if set.
func (s *BadgerStore) DeviceToken() (string, bool) { return s.get(KeyDeviceToken) }

// SaveHTTPRequestsPauseEnds persists the transport pause timestamp.
func (s *BadgerStore) SaveHTTPRequestsPauseEnds(t time.Time) {
	s.set(KeyHTTPPauseEnds, t.UTC().Format(time.RFC3339Nano))
}

// HTTPRequestsPauseEnds returns the transport pause timestamp, if set.
// A corrupt value degrades to absent.
func (s *BadgerStore) HTTPRequestsPauseEnds() (time.Time, bool) {
	raw, ok := s.get(KeyHTTPPauseEnds)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		s.logger.Error("corrupt pause timestamp, treating as absent", "value", raw, "error", err)
		return time.Time{}, false
	}
	return t, true
}

// ClearAll removes every key in this store's namespace. Keys belonging
// to other (app package, site id) pairs in the same database are left
// untouched.
func (s *BadgerStore) ClearAll() {
	err := s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: s.prefix})
		defer it.Close()

		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("storage clear dropped", "error", err)
	}
}

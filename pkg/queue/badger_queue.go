// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianTrack/pkg/datatypes"
	"github.com/AleutianAI/AleutianTrack/pkg/logging"
)

// DefaultTaskExpiration is how long an undelivered task stays in the
// log before the startup sweep discards it. Matches the three-day
// retention the delivery API tolerates for stale tasks.
const DefaultTaskExpiration = 3 * 24 * time.Hour

// seqBandwidth is how many sequence numbers Badger leases at a time.
const seqBandwidth = 64

// Config holds configuration for a BadgerQueue.
type Config struct {
	// DB is the BadgerDB instance holding the task log. Required.
	// Usually shared with the site store.
	DB *badger.DB

	// SiteID scopes the task log; part of the key namespace. Required.
	SiteID string

	// TaskExpiration bounds how long undelivered tasks are retained.
	// Default: DefaultTaskExpiration.
	TaskExpiration time.Duration

	// SkipStartupCleanup disables the background sweep spawned by
	// NewBadgerQueue. Tests use this for determinism.
	SkipStartupCleanup bool

	// Logger receives admission and cleanup faults. Nil disables logging.
	Logger *logging.Logger
}

// BadgerQueue is a Queue whose admission appends to a persisted
// BadgerDB task log.
//
// Admission success means the task record was durably committed; it says
// nothing about eventual network delivery. A delivery runner drains the
// log via Inventory and DeleteTask.
//
// Thread Safety: safe for concurrent use.
type BadgerQueue struct {
	db         *badger.DB
	prefix     []byte
	seq        *badger.Sequence
	expiration time.Duration
	logger     *logging.Logger
	now        func() time.Time

	mu     sync.Mutex
	closed bool
}

var _ Queue = (*BadgerQueue)(nil)

// NewBadgerQueue creates a queue over the given database.
//
// Description:
//
//	Initializes the task-log namespace "queue/{SiteID}/task/" and, unless
//	disabled, spawns a fire-and-forget startup cleanup that sweeps
//	expired tasks and compacts the value log. Cleanup failures are
//	logged, never propagated, and never delay construction.
//
// Outputs:
//
//	*BadgerQueue - The queue. Caller must call Close() when done.
//	error - Non-nil if the config is incomplete or the sequence
//	        cannot be reserved.
func NewBadgerQueue(cfg Config) (*BadgerQueue, error) {
	if cfg.DB == nil {
		return nil, errors.New("db must not be nil")
	}
	if cfg.SiteID == "" {
		return nil, errors.New("site id is required")
	}
	if cfg.TaskExpiration <= 0 {
		cfg.TaskExpiration = DefaultTaskExpiration
	}

	seqKey := []byte(fmt.Sprintf("queue/%s/seq", cfg.SiteID))
	seq, err := cfg.DB.GetSequence(seqKey, seqBandwidth)
	if err != nil {
		return nil, fmt.Errorf("reserve task sequence: %w", err)
	}

	q := &BadgerQueue{
		db:         cfg.DB,
		prefix:     []byte(fmt.Sprintf("queue/%s/task/", cfg.SiteID)),
		seq:        seq,
		expiration: cfg.TaskExpiration,
		logger:     logging.OrNop(cfg.Logger),
		now:        time.Now,
	}

	if !cfg.SkipStartupCleanup {
		go q.runStartupCleanup()
	}

	return q, nil
}

// Close releases the task sequence. Admission after Close fails.
func (q *BadgerQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	return q.seq.Release()
}

// QueueIdentifyProfile admits an identify task.
func (q *BadgerQueue) QueueIdentifyProfile(identifier, previousIdentifier string, attributes datatypes.Attributes) Status {
	return q.admit(TaskTypeIdentifyProfile, IdentifyProfileTaskData{
		Identifier:         identifier,
		PreviousIdentifier: previousIdentifier,
		Attributes:         attributes,
	})
}

// QueueMergeProfiles admits a merge-profiles task.
func (q *BadgerQueue) QueueMergeProfiles(primaryIdentifier, secondaryIdentifier string) Status {
	return q.admit(TaskTypeMergeProfiles, MergeProfilesTaskData{
		PrimaryIdentifier:   primaryIdentifier,
		SecondaryIdentifier: secondaryIdentifier,
	})
}

// QueueRegisterDeviceToken admits a register-device-token task.
func (q *BadgerQueue) QueueRegisterDeviceToken(identifier, token string, attributes datatypes.Attributes) Status {
	return q.admit(TaskTypeRegisterDeviceToken, RegisterDeviceTokenTaskData{
		ProfileIdentified: identifier,
		DeviceToken:       token,
		Attributes:        attributes,
		LastUsed:          q.now().UTC(),
	})
}

// QueueDeleteDeviceToken admits a delete-device-token task.
func (q *BadgerQueue) QueueDeleteDeviceToken(identifier, token string) Status {
	return q.admit(TaskTypeDeleteDeviceToken, DeleteDeviceTokenTaskData{
		ProfileIdentified: identifier,
		DeviceToken:       token,
	})
}

// QueueTrackEvent admits a track-event task.
func (q *BadgerQueue) QueueTrackEvent(identifier, name string, eventType EventType, attributes datatypes.Attributes) Status {
	return q.admit(TaskTypeTrackEvent, TrackEventTaskData{
		Identifier: identifier,
		Name:       name,
		EventType:  eventType,
		Timestamp:  q.now().UTC(),
		Attributes: attributes,
	})
}

// admit appends one task record in a single transaction. This is the
// admission boundary: commit success is reported as Status.Success,
// and any failure degrades to a logged rejection.
func (q *BadgerQueue) admit(taskType TaskType, data any) Status {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		q.logger.Error("task rejected, queue closed", "task_type", taskType)
		return Status{}
	}

	payload, err := json.Marshal(data)
	if err != nil {
		q.logger.Error("task rejected, payload not serializable", "task_type", taskType, "error", err)
		return Status{}
	}

	task := Task{
		ID:        uuid.NewString(),
		Type:      taskType,
		CreatedAt: q.now().UTC(),
		Data:      payload,
	}
	record, err := json.Marshal(task)
	if err != nil {
		q.logger.Error("task rejected, record not serializable", "task_type", taskType, "error", err)
		return Status{}
	}

	n, err := q.seq.Next()
	if err != nil {
		q.logger.Error("task rejected, sequence exhausted", "task_type", taskType, "error", err)
		return Status{}
	}

	err = q.db.Update(func(txn *badger.Txn) error {
		return txn.Set(q.taskKey(n), record)
	})
	if err != nil {
		q.logger.Error("task rejected, commit failed", "task_type", taskType, "error", err)
		return Status{}
	}

	q.logger.Debug("task admitted", "task_type", taskType, "task_id", task.ID)
	return Status{Success: true, TaskID: task.ID}
}

func (q *BadgerQueue) taskKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", q.prefix, seq))
}

// Inventory returns all pending tasks in admission order.
//
// Corrupt records are skipped and logged rather than failing the whole
// read; the delivery runner must make progress past a bad record.
func (q *BadgerQueue) Inventory() ([]Task, error) {
	var tasks []Task
	err := q.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:         q.prefix,
			PrefetchValues: true,
			PrefetchSize:   128,
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var task Task
				if err := json.Unmarshal(val, &task); err != nil {
					q.logger.Error("skipping corrupt task record", "key", string(item.Key()), "error", err)
					return nil
				}
				tasks = append(tasks, task)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read task inventory: %w", err)
	}
	return tasks, nil
}

// DeleteTask removes a delivered task from the log.
func (q *BadgerQueue) DeleteTask(taskID string) error {
	return q.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: q.prefix, PrefetchValues: true})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var key []byte
			err := item.Value(func(val []byte) error {
				var task Task
				if err := json.Unmarshal(val, &task); err != nil {
					return nil
				}
				if task.ID == taskID {
					key = item.KeyCopy(nil)
				}
				return nil
			})
			if err != nil {
				return err
			}
			if key != nil {
				return txn.Delete(key)
			}
		}
		return ErrTaskNotFound
	})
}

// runStartupCleanup is the fire-and-forget maintenance pass spawned at
// construction. Expired-task sweep and value-log compaction run
// concurrently; neither failure propagates.
func (q *BadgerQueue) runStartupCleanup() {
	g, _ := errgroup.WithContext(context.Background())

	g.Go(func() error {
		swept, err := q.sweepExpiredTasks(q.now().Add(-q.expiration))
		if err != nil {
			return fmt.Errorf("sweep expired tasks: %w", err)
		}
		if swept > 0 {
			q.logger.Info("swept expired queue tasks", "count", swept)
		}
		return nil
	})

	g.Go(func() error {
		// ErrNoRewrite means nothing needed compacting; in-memory
		// databases reject GC outright. Both are non-events.
		err := q.db.RunValueLogGC(0.5)
		if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
			q.logger.Debug("value log GC skipped", "reason", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		q.logger.Error("startup queue cleanup failed", "error", err)
	}
}

// sweepExpiredTasks deletes tasks created before cutoff and returns how
// many were removed.
func (q *BadgerQueue) sweepExpiredTasks(cutoff time.Time) (int, error) {
	var expired [][]byte
	err := q.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: q.prefix, PrefetchValues: true})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var task Task
				if err := json.Unmarshal(val, &task); err != nil {
					// Corrupt records are swept too; they can never deliver.
					expired = append(expired, item.KeyCopy(nil))
					return nil
				}
				if task.CreatedAt.Before(cutoff) {
					expired = append(expired, item.KeyCopy(nil))
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, key := range expired {
		err := q.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		})
		if err != nil {
			return 0, err
		}
	}
	return len(expired), nil
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package queue

import (
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianTrack/pkg/datatypes"
)

func openTestQueue(t *testing.T) *BadgerQueue {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	q, err := NewBadgerQueue(Config{
		DB:                 db,
		SiteID:             "site-1",
		SkipStartupCleanup: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestNewBadgerQueue_Validation(t *testing.T) {
	_, err := NewBadgerQueue(Config{SiteID: "site-1"})
	assert.Error(t, err)

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	defer db.Close()

	_, err = NewBadgerQueue(Config{DB: db})
	assert.Error(t, err)
}

func TestQueueIdentifyProfile_AdmitsAndPersists(t *testing.T) {
	q := openTestQueue(t)

	status := q.QueueIdentifyProfile("alice", "", datatypes.Attributes{"plan": "pro"})
	require.True(t, status.Success)
	assert.NotEmpty(t, status.TaskID)

	tasks, err := q.Inventory()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskTypeIdentifyProfile, tasks[0].Type)
	assert.Equal(t, status.TaskID, tasks[0].ID)

	var data IdentifyProfileTaskData
	require.NoError(t, tasks[0].DecodeData(&data))
	assert.Equal(t, "alice", data.Identifier)
	assert.Empty(t, data.PreviousIdentifier)
	assert.Equal(t, "pro", data.Attributes["plan"])
}

func TestAdmission_PreservesOrder(t *testing.T) {
	q := openTestQueue(t)

	q.QueueIdentifyProfile("alice", "", nil)
	q.QueueMergeProfiles("alice", "anon-1")
	q.QueueTrackEvent("alice", "purchase", EventTypeEvent, nil)

	tasks, err := q.Inventory()
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, TaskTypeIdentifyProfile, tasks[0].Type)
	assert.Equal(t, TaskTypeMergeProfiles, tasks[1].Type)
	assert.Equal(t, TaskTypeTrackEvent, tasks[2].Type)
}

func TestQueueMergeProfiles_Payload(t *testing.T) {
	q := openTestQueue(t)

	status := q.QueueMergeProfiles("bob", "anon-1")
	require.True(t, status.Success)

	tasks, err := q.Inventory()
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	var data MergeProfilesTaskData
	require.NoError(t, tasks[0].DecodeData(&data))
	assert.Equal(t, "bob", data.PrimaryIdentifier)
	assert.Equal(t, "anon-1", data.SecondaryIdentifier)
}

func TestQueueDeviceTokenTasks(t *testing.T) {
	q := openTestQueue(t)

	require.True(t, q.QueueRegisterDeviceToken("alice", "tok1", datatypes.Attributes{"device_os": 33}).Success)
	require.True(t, q.QueueDeleteDeviceToken("alice", "tok1").Success)

	tasks, err := q.Inventory()
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	var reg RegisterDeviceTokenTaskData
	require.NoError(t, tasks[0].DecodeData(&reg))
	assert.Equal(t, "tok1", reg.DeviceToken)
	assert.False(t, reg.LastUsed.IsZero())

	var del DeleteDeviceTokenTaskData
	require.NoError(t, tasks[1].DecodeData(&del))
	assert.Equal(t, "alice", del.ProfileIdentified)
}

func TestAdmissionAfterClose_Fails(t *testing.T) {
	q := openTestQueue(t)
	require.NoError(t, q.Close())

	status := q.QueueIdentifyProfile("alice", "", nil)
	assert.False(t, status.Success)
	assert.Empty(t, status.TaskID)
}

func TestDeleteTask(t *testing.T) {
	q := openTestQueue(t)

	s1 := q.QueueIdentifyProfile("alice", "", nil)
	s2 := q.QueueTrackEvent("alice", "login", EventTypeEvent, nil)

	require.NoError(t, q.DeleteTask(s1.TaskID))

	tasks, err := q.Inventory()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, s2.TaskID, tasks[0].ID)

	assert.ErrorIs(t, q.DeleteTask("no-such-task"), ErrTaskNotFound)
}

func TestSweepExpiredTasks(t *testing.T) {
	q := openTestQueue(t)

	// Two stale tasks admitted "three days ago", one fresh.
	q.now = func() time.Time { return time.Now().Add(-DefaultTaskExpiration - time.Hour) }
	q.QueueIdentifyProfile("alice", "", nil)
	q.QueueTrackEvent("alice", "login", EventTypeEvent, nil)
	q.now = time.Now
	fresh := q.QueueTrackEvent("alice", "purchase", EventTypeEvent, nil)

	swept, err := q.sweepExpiredTasks(time.Now().Add(-DefaultTaskExpiration))
	require.NoError(t, err)
	assert.Equal(t, 2, swept)

	tasks, err := q.Inventory()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, fresh.TaskID, tasks[0].ID)
}

func TestInventory_SkipsCorruptRecords(t *testing.T) {
	q := openTestQueue(t)
	q.QueueIdentifyProfile("alice", "", nil)

	// Plant a corrupt record inside the task namespace.
	err := q.db.Update(func(txn *badger.Txn) error {
		return txn.Set(append(append([]byte{}, q.prefix...), "zzz-corrupt"...), []byte("{not json"))
	})
	require.NoError(t, err)

	tasks, err := q.Inventory()
	require.NoError(t, err)
	assert.Len(t, tasks, 1, "corrupt record must be skipped, not fatal")
}

func TestMockQueue_FailureToggles(t *testing.T) {
	m := NewMockQueue()
	require.True(t, m.QueueIdentifyProfile("alice", "", nil).Success)

	m.FailIdentify = true
	assert.False(t, m.QueueIdentifyProfile("bob", "", nil).Success)
	assert.Len(t, m.Identifies, 1, "rejected admissions must not be recorded")
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package hooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe_ReceivesHooks(t *testing.T) {
	n := NewNotifier(nil)

	var got []Hook
	n.Subscribe(func(h Hook) { got = append(got, h) })

	n.Publish(TypeProfileIdentified, "alice")

	require.Len(t, got, 1)
	assert.Equal(t, TypeProfileIdentified, got[0].Type)
	assert.Equal(t, "alice", got[0].Identifier)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestPublish_SubscriptionOrder(t *testing.T) {
	n := NewNotifier(nil)

	var order []int
	n.Subscribe(func(Hook) { order = append(order, 1) })
	n.Subscribe(func(Hook) { order = append(order, 2) })
	n.Subscribe(func(Hook) { order = append(order, 3) })

	n.Publish(TypeBeforeProfileStoppedBeingIdentified, "alice")

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestPublish_TypeFilter(t *testing.T) {
	n := NewNotifier(nil)

	var identified, cleared, all int
	n.Subscribe(func(Hook) { identified++ }, TypeProfileIdentified)
	n.Subscribe(func(Hook) { cleared++ }, TypeBeforeProfileStoppedBeingIdentified)
	n.Subscribe(func(Hook) { all++ })

	n.Publish(TypeProfileIdentified, "alice")
	n.Publish(TypeProfileIdentified, "bob")
	n.Publish(TypeBeforeProfileStoppedBeingIdentified, "bob")

	assert.Equal(t, 2, identified)
	assert.Equal(t, 1, cleared)
	assert.Equal(t, 3, all)
}

func TestPublish_PanicDoesNotStopDelivery(t *testing.T) {
	n := NewNotifier(nil)

	var after int
	n.Subscribe(func(Hook) { panic("handler bug") })
	n.Subscribe(func(Hook) { after++ })

	assert.NotPanics(t, func() {
		n.Publish(TypeProfileIdentified, "alice")
	})
	assert.Equal(t, 1, after, "handlers after the panicking one must still run")
}

func TestUnsubscribe(t *testing.T) {
	n := NewNotifier(nil)

	var calls int
	id := n.Subscribe(func(Hook) { calls++ })

	assert.True(t, n.Unsubscribe(id))
	assert.False(t, n.Unsubscribe(id), "second unsubscribe must report not found")

	n.Publish(TypeProfileIdentified, "alice")
	assert.Zero(t, calls)
}

func TestReset_DropsAllSubscriptions(t *testing.T) {
	n := NewNotifier(nil)
	n.Subscribe(func(Hook) {})
	n.Subscribe(func(Hook) {})
	require.Equal(t, 2, n.SubscriptionCount())

	n.Reset()
	assert.Zero(t, n.SubscriptionCount())
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEventPublishes(t *testing.T) {
	db := newTestDB(t)
	pub := &recordingPublisher{}
	events := NewEventService(db, pub)
	users := NewUserService(db, events)
	user := createUser(t, users, "ada@example.com")

	require.NoError(t, events.CreateEvent(context.Background(), "place.create", "info", "Place 'Tor' created.", &user.ID))

	require.Len(t, pub.events, 2) // registration plus the explicit event
	assert.Equal(t, "user.register", pub.events[0].Type)
	assert.Equal(t, "place.create", pub.events[1].Type)
	assert.NotEmpty(t, pub.events[1].ID)
}

func TestCreateEventIgnoresPublishFailure(t *testing.T) {
	db := newTestDB(t)
	events := NewEventService(db, &recordingPublisher{err: errBoom})

	assert.NoError(t, events.CreateEvent(context.Background(), "system.start", "info", "Started.", nil))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM events"))
}

func TestGetRecentEventsScopedAndLimited(t *testing.T) {
	db := newTestDB(t)
	events := NewEventService(db, nil)
	users := NewUserService(db, events)
	ada := createUser(t, users, "ada@example.com")
	bob := createUser(t, users, "bob@example.com")
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		require.NoError(t, events.CreateEvent(ctx, "place.create", "info", "created", &ada.ID))
	}

	got, err := events.GetRecentEvents(ctx, ada.ID, 5)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	for _, e := range got {
		require.NotNil(t, e.UserID)
		assert.Equal(t, ada.ID, *e.UserID)
	}

	got, err = events.GetRecentEvents(ctx, bob.ID, 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestGetRecentEventsNewestFirst(t *testing.T) {
	db := newTestDB(t)
	events := NewEventService(db, nil)
	user := createUser(t, NewUserService(db, events), "ada@example.com")
	ctx := context.Background()

	// All of these land within the same second, so ordering cannot rely on created_at.
	for _, msg := range []string{"first", "second", "third", "fourth"} {
		require.NoError(t, events.CreateEvent(ctx, "place.create", "info", msg, &user.ID))
	}

	got, err := events.GetRecentEvents(ctx, user.ID, 4)
	require.NoError(t, err)
	require.Len(t, got, 4)
	var msgs []string
	for _, e := range got {
		msgs = append(msgs, e.Message)
	}
	assert.Equal(t, []string{"fourth", "third", "second", "first"}, msgs)
}

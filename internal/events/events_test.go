package events

import (
	"context"
	"testing"
	"time"

	"github.com/jjudge-oj/accounts/internal/mq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAndSubscribe(t *testing.T) {
	queue := mq.New(mq.NewMemory(4))
	publisher := NewPublisher(queue, "account-events")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	occurred := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, publisher.Publish(ctx, Event{
		Type:       TypeAccountAuthenticated,
		Username:   "alice",
		LoginCount: 2,
		OccurredAt: occurred,
	}))

	var got Event
	err := publisher.Subscribe(ctx, func(_ context.Context, event Event) error {
		got = event
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, TypeAccountAuthenticated, got.Type)
	assert.Equal(t, "alice", got.Username)
	assert.EqualValues(t, 2, got.LoginCount)
	assert.True(t, occurred.Equal(got.OccurredAt))
}

func TestPublishSetsAttributes(t *testing.T) {
	backend := mq.NewMemory(4)
	publisher := NewPublisher(mq.New(backend), "account-events")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, publisher.Publish(ctx, Event{Type: TypeAccountCreated, Username: "bob"}))

	_ = backend.Subscribe(ctx, "account-events", func(_ context.Context, msg mq.Message) error {
		assert.Equal(t, TypeAccountCreated, msg.Attributes["type"])
		assert.Equal(t, "application/json", msg.Attributes[mq.AttrContentType])
		assert.NotContains(t, string(msg.Data), "password")
		cancel()
		return nil
	})
}

func TestSubscribeRejectsGarbage(t *testing.T) {
	backend := mq.NewMemory(4)
	publisher := NewPublisher(mq.New(backend), "account-events")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := backend.Publish(ctx, "account-events", []byte("not json"), nil)
	require.NoError(t, err)
	require.NoError(t, publisher.Publish(ctx, Event{Type: TypeAccountCreated, Username: "carol"}))

	var seen []string
	_ = publisher.Subscribe(ctx, func(_ context.Context, event Event) error {
		seen = append(seen, event.Username)
		cancel()
		return nil
	})
	assert.Equal(t, []string{"carol"}, seen)
}

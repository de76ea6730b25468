package mq

import (
	"context"
	"testing"
	"time"

	"github.com/jjudge-oj/accounts/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDisabled(t *testing.T) {
	m, err := Open(context.Background(), config.MQConfig{Backend: config.BackendNone})
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = Open(context.Background(), config.MQConfig{Backend: "kafka"})
	assert.Error(t, err)
}

func TestOpenRequiresBackendSettings(t *testing.T) {
	_, err := Open(context.Background(), config.MQConfig{Backend: config.BackendRabbitMQ})
	assert.ErrorContains(t, err, "rabbitmq url is required")

	_, err = Open(context.Background(), config.MQConfig{Backend: config.BackendPubSub})
	assert.ErrorContains(t, err, "pubsub project id is required")
}

func TestMemoryPublishSubscribe(t *testing.T) {
	m := New(NewMemory(8))
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	id, err := m.Publish(ctx, "events", []byte("hello"), map[string]string{"type": "greeting"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	received := make(chan Message, 1)
	go func() {
		_ = m.Subscribe(ctx, "events", func(_ context.Context, msg Message) error {
			received <- msg
			cancel()
			return nil
		})
	}()

	select {
	case msg := <-received:
		assert.Equal(t, id, msg.ID)
		assert.Equal(t, "hello", string(msg.Data))
		assert.Equal(t, "greeting", msg.Attributes["type"])
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestMemoryRejectsAfterClose(t *testing.T) {
	backend := NewMemory(1)
	require.NoError(t, backend.Close())

	_, err := backend.Publish(context.Background(), "events", nil, nil)
	assert.Error(t, err)
}

func TestMemoryRequiresChannel(t *testing.T) {
	backend := NewMemory(1)
	_, err := backend.Publish(context.Background(), "", nil, nil)
	assert.Error(t, err)
	assert.Error(t, backend.Subscribe(context.Background(), "", nil))
}

func TestHeadersToAttributes(t *testing.T) {
	assert.Nil(t, headersToAttributes(nil))

	attrs := headersToAttributes(amqp.Table{
		"type":  "account.created",
		"raw":   []byte("bytes"),
		"count": int32(3),
	})
	assert.Equal(t, map[string]string{
		"type":  "account.created",
		"raw":   "bytes",
		"count": "3",
	}, attrs)
}

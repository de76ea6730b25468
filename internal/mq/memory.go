package mq

import (
	"context"
	"errors"
	"strconv"
	"sync"
)

// Memory is an in-process Backend. Messages published before a subscriber
// attaches are buffered per channel.
type Memory struct {
	mu       sync.Mutex
	queues   map[string]chan Message
	nextID   int
	closed   bool
	capacity int
}

// NewMemory creates a Memory backend buffering up to capacity messages per channel.
func NewMemory(capacity int) *Memory {
	if capacity < 1 {
		capacity = 64
	}
	return &Memory{queues: make(map[string]chan Message), capacity: capacity}
}

func (m *Memory) queue(channel string) (chan Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errors.New("memory mq closed")
	}
	q, ok := m.queues[channel]
	if !ok {
		q = make(chan Message, m.capacity)
		m.queues[channel] = q
	}
	return q, nil
}

// Publish enqueues data on channel.
func (m *Memory) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if channel == "" {
		return "", errors.New("memory mq channel is required")
	}
	q, err := m.queue(channel)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.nextID++
	id := strconv.Itoa(m.nextID)
	m.mu.Unlock()

	select {
	case q <- Message{ID: id, Data: data, Attributes: attrs}:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Subscribe delivers messages to handler until ctx is done. Messages the
// handler rejects are dropped.
func (m *Memory) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if channel == "" {
		return errors.New("memory mq channel is required")
	}
	q, err := m.queue(channel)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-q:
			_ = handler(ctx, msg)
		}
	}
}

// Close rejects further publishes.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

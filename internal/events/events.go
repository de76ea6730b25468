package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jjudge-oj/accounts/internal/mq"
)

const (
	TypeAccountCreated       = "account.created"
	TypeAccountAuthenticated = "account.authenticated"

	attrType = "type"
)

// Event describes a change to an account. It never carries credentials.
type Event struct {
	Type       string    `json:"type"`
	Username   string    `json:"username"`
	LoginCount int64     `json:"login_count"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher sends account events to a single mq channel.
type Publisher struct {
	queue   *mq.MQ
	channel string
}

func NewPublisher(queue *mq.MQ, channel string) *Publisher {
	return &Publisher{queue: queue, channel: channel}
}

// Publish encodes event as JSON and sends it.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	attrs := map[string]string{
		attrType:           event.Type,
		mq.AttrContentType: "application/json",
	}
	if _, err := p.queue.Publish(ctx, p.channel, data, attrs); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Subscribe decodes events from the channel and passes them to handle until
// ctx is done. Undecodable messages are rejected.
func (p *Publisher) Subscribe(ctx context.Context, handle func(context.Context, Event) error) error {
	return p.queue.Subscribe(ctx, p.channel, func(ctx context.Context, msg mq.Message) error {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return fmt.Errorf("decode event %s: %w", msg.ID, err)
		}
		return handle(ctx, event)
	})
}

package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/problem-hunt/huntkit/core"
	"github.com/problem-hunt/huntkit/ports"
)

// TokensTopic carries cross-process token-update notifications.
const TokensTopic = "huntkit.tokens"

// WatermillBroadcaster implements the Broadcaster interface on top of a
// Watermill pub/sub pair (Redis streams in production, gochannel in tests).
type WatermillBroadcaster struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	topic      string
}

// NewWatermillBroadcaster creates a broadcaster from a Watermill publisher
// and subscriber.
func NewWatermillBroadcaster(publisher message.Publisher, subscriber message.Subscriber) ports.Broadcaster {
	return &WatermillBroadcaster{
		publisher:  publisher,
		subscriber: subscriber,
		topic:      TokensTopic,
	}
}

// PublishTokensUpdated publishes a token-update event.
func (b *WatermillBroadcaster) PublishTokensUpdated(ctx context.Context, event core.TokensUpdated) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)

	if err := b.publisher.Publish(b.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Subscribe delivers token-update events from other processes until ctx is
// cancelled. Messages that do not decode are acked and dropped.
func (b *WatermillBroadcaster) Subscribe(ctx context.Context) (<-chan core.TokensUpdated, error) {
	msgs, err := b.subscriber.Subscribe(ctx, b.topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan core.TokensUpdated)
	go func() {
		defer close(out)
		for msg := range msgs {
			var event core.TokensUpdated
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

package redis

import (
	"context"
	"fmt"

	"github.com/rafaelleal24/inventory/internal/core/domain"
	"github.com/rafaelleal24/inventory/internal/core/logger"
	"github.com/rafaelleal24/inventory/internal/core/port"
)

// EventPublisher fans notifications out over a Redis pub/sub channel so every
// API replica can push them to its own stream clients.
type EventPublisher struct {
	client  *Client
	channel string
}

func NewEventPublisher(client *Client, channel string) port.BrokerPort {
	return &EventPublisher{client: client, channel: channel}
}

func (p *EventPublisher) Publish(ctx context.Context, msg port.Message) error {
	if err := p.client.Publish(ctx, p.channel, msg.Body); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.channel, err)
	}
	return nil
}

func (p *EventPublisher) Close() error {
	return nil
}

type OrderFeed struct {
	client  *Client
	channel string
}

func NewOrderFeed(client *Client, channel string) port.OrderFeedPort {
	return &OrderFeed{client: client, channel: channel}
}

// Subscribe decodes OrderCreated envelopes from the channel. Messages that do
// not decode are skipped.
func (f *OrderFeed) Subscribe(ctx context.Context) (<-chan *domain.OrderCreatedEvent, error) {
	pubsub := f.client.Subscribe(ctx, f.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", f.channel, err)
	}

	out := make(chan *domain.OrderCreatedEvent, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				event, err := domain.DecodeOrderCreated([]byte(msg.Payload))
				if err != nil {
					logger.Warn(ctx, "skipping undecodable notification", map[string]any{
						"channel": f.channel,
						"error":   err.Error(),
					})
					continue
				}
				if event == nil {
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

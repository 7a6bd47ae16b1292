package notifier

import (
	"context"
	"errors"
	"sync"

	"github.com/rafaelleal24/inventory/internal/core/domain"
	"github.com/rafaelleal24/inventory/internal/core/logger"
	"github.com/rafaelleal24/inventory/internal/core/port"
)

var ErrHubClosed = errors.New("notification hub is closed")

// Hub is an in-process sink that fans order creations out to live
// subscribers. A subscriber that falls behind misses events rather than
// slowing down the dispatcher.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan *domain.OrderCreatedEvent]struct{}
	buffer      int
	closed      bool
}

var (
	_ port.BrokerPort    = (*Hub)(nil)
	_ port.OrderFeedPort = (*Hub)(nil)
)

func NewHub(buffer int) *Hub {
	return &Hub{
		subscribers: make(map[chan *domain.OrderCreatedEvent]struct{}),
		buffer:      buffer,
	}
}

func (h *Hub) Publish(ctx context.Context, msg port.Message) error {
	if msg.Name != domain.OrderCreatedEventName {
		return nil
	}

	event, err := domain.DecodeOrderCreated(msg.Body)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			logger.Warn(ctx, "hub: slow subscriber, event skipped", map[string]any{
				"entity_id": msg.Key,
			})
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context) (<-chan *domain.OrderCreatedEvent, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}

	ch := make(chan *domain.OrderCreatedEvent, h.buffer)
	h.subscribers[ch] = struct{}{}

	go func() {
		<-ctx.Done()
		h.unsubscribe(ch)
	}()

	return ch, nil
}

func (h *Hub) unsubscribe(ch chan *domain.OrderCreatedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
}

// Close ends every subscription.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for ch := range h.subscribers {
		delete(h.subscribers, ch)
		close(ch)
	}
	return nil
}

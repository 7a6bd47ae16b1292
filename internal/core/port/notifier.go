package port

import (
	"context"

	"github.com/rafaelleal24/inventory/internal/core/domain"
)

//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock

// NotifierPort accepts events after the data they describe is durable.
// Delivery is best effort and never reported back to the caller.
type NotifierPort interface {
	Notify(ctx context.Context, event domain.Event)
}

// OrderFeedPort streams order creations as they are published.
// The channel is closed when ctx is done.
type OrderFeedPort interface {
	Subscribe(ctx context.Context) (<-chan *domain.OrderCreatedEvent, error)
}

package app

import (
	"context"
	"sync/atomic"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaelleal24/inventory/internal/adapters/config"
	"github.com/rafaelleal24/inventory/internal/adapters/notifier"
	"github.com/rafaelleal24/inventory/internal/adapters/redis"
	"github.com/rafaelleal24/inventory/internal/core/domain"
	"github.com/rafaelleal24/inventory/internal/core/dto"
	"github.com/rafaelleal24/inventory/internal/core/port"
	"github.com/rafaelleal24/inventory/internal/core/service"
)

func TestOrderFeed_FollowsRedisSink(t *testing.T) {
	// never dialed: building the feed does not touch the server
	client := redis.NewClient(goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"}))
	t.Cleanup(func() { _ = client.Close() })
	hub := notifier.NewHub(hubBuffer)

	cfg := testConfig(t)
	cfg.Redis = config.RedisConfig{URL: "redis://127.0.0.1:1", EventsChannel: "orders"}

	t.Run("redis without the redis sink streams from the hub", func(t *testing.T) {
		cfg.Notifier.Sinks = []string{config.SinkRabbitMQ}
		feed := orderFeed(cfg, client, hub)
		assert.Same(t, hub, feed)
	})

	t.Run("redis sink streams from pub/sub", func(t *testing.T) {
		cfg.Notifier.Sinks = []string{config.SinkRabbitMQ, config.SinkRedis}
		feed := orderFeed(cfg, client, hub)
		assert.IsType(t, &redis.OrderFeed{}, feed)
	})

	t.Run("no redis streams from the hub", func(t *testing.T) {
		cfg.Notifier.Sinks = []string{config.SinkRedis}
		feed := orderFeed(cfg, nil, hub)
		assert.Same(t, hub, feed)
	})
}

func TestNew_LocalSetupStreamsFromHub(t *testing.T) {
	a := startApp(t)
	assert.Same(t, a.hub, a.feed)
}

func TestNewLocalCaches_IdempotencyHasItsOwnBound(t *testing.T) {
	cfg := testConfig(t).Cache
	cfg.LocalSize = 1
	cfg.IdempotencySize = 16

	c, err := newLocalCaches(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	keys := []string{"k1", "k2", "k3", "k4"}
	for _, key := range keys {
		ok, err := c.idempotency.SetNX(ctx, key, &service.IdempotencyEntry[domain.Order]{}, cfg.IdempotencyTTL)
		require.NoError(t, err)
		require.True(t, ok, key)
	}
	for _, key := range keys {
		require.NoError(t, c.orders.Set(ctx, key, &domain.Order{ID: domain.ID(key)}, cfg.IdempotencyTTL))
	}

	for _, key := range keys {
		ok, err := c.idempotency.SetNX(ctx, key, &service.IdempotencyEntry[domain.Order]{}, cfg.IdempotencyTTL)
		require.NoError(t, err)
		assert.False(t, ok, "claim on %s was evicted", key)
	}
}

// cancelAfterStockWrite cancels the request right after stock is written and
// before the order row and commit.
type cancelAfterStockWrite struct {
	port.ProductPort
	cancel context.CancelFunc
}

func (p *cancelAfterStockWrite) SaveStock(ctx context.Context, products []*domain.Product) error {
	err := p.ProductPort.SaveStock(ctx, products)
	p.cancel()
	return err
}

type countingNotifier struct {
	calls atomic.Int32
}

func (n *countingNotifier) Notify(context.Context, domain.Event) {
	n.calls.Add(1)
}

func TestPlaceOrder_CancelledBeforeCommitRollsBack(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.close() })

	c, err := newLocalCaches(cfg.Cache)
	require.NoError(t, err)

	buyer := domain.NewUser("buyer@example.com", "hash")
	require.NoError(t, st.users.Create(ctx, buyer))
	product := domain.NewProduct(buyer.ID, "Lamp", domain.NewAmountFromCents(1999), 5)
	require.NoError(t, st.products.Create(ctx, product))

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	notifications := &countingNotifier{}
	svc := service.NewOrderService(
		st.orders,
		service.NewProductService(&cancelAfterStockWrite{ProductPort: st.products, cancel: cancel}),
		c.orders,
		service.NewIdempotencyService(c.idempotency, cfg.Cache.IdempotencyTTL, cfg.Cache.IdempotencyPoll, cfg.Cache.IdempotencyTimeout),
		st.txManager,
		notifications,
	)

	_, err = svc.PlaceOrder(reqCtx, buyer.ID, "", &dto.CreateOrderRequest{
		Items: []dto.OrderItem{{ProductID: product.ID, Quantity: 2}},
	})
	require.ErrorIs(t, err, context.Canceled)

	stored, err := st.products.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Stock)
	assert.Equal(t, product.Version, stored.Version)

	orders, err := st.orders.GetByUserID(ctx, buyer.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Zero(t, notifications.calls.Load())
}

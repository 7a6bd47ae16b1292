package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/rafaelleal24/inventory/internal/adapters/config"
	httpadapter "github.com/rafaelleal24/inventory/internal/adapters/http"
	"github.com/rafaelleal24/inventory/internal/adapters/http/controllers"
	"github.com/rafaelleal24/inventory/internal/adapters/kafka"
	"github.com/rafaelleal24/inventory/internal/adapters/notifier"
	"github.com/rafaelleal24/inventory/internal/adapters/rabbitmq"
	"github.com/rafaelleal24/inventory/internal/adapters/redis"
	"github.com/rafaelleal24/inventory/internal/core/logger"
	"github.com/rafaelleal24/inventory/internal/core/port"
	"github.com/rafaelleal24/inventory/internal/core/service"
)

const hubBuffer = 64

// App owns every long-lived dependency of the API process.
type App struct {
	cfg *config.Config

	store      *store
	redis      *redis.Client
	hub        *notifier.Hub
	dispatcher *notifier.Dispatcher
	feed       port.OrderFeedPort

	authService    *service.AuthService
	productService *service.ProductService
	orderService   *service.OrderService

	router  *httpadapter.Router
	handler http.Handler
}

// New connects to the configured backends. On error everything opened so far
// is released.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{cfg: cfg, hub: notifier.NewHub(hubBuffer)}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	checkers := []controllers.HealthChecker{}

	a.store, err = openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	checkers = append(checkers, controllers.HealthChecker{Name: a.store.name, Check: a.store.ping})
	logger.Info(ctx, "Store ready", map[string]any{"driver": cfg.Store.Driver})

	var c *caches
	if cfg.Redis.Enabled() {
		a.redis, err = redis.NewConnection(cfg.Redis)
		if err != nil {
			return nil, err
		}
		c = newRedisCaches(a.redis)
		checkers = append(checkers, controllers.HealthChecker{Name: "redis", Check: a.redis.Ping})
		logger.Info(ctx, "Connected to Redis", nil)
	} else {
		c, err = newLocalCaches(cfg.Cache)
		if err != nil {
			return nil, err
		}
		logger.Info(ctx, "Redis disabled, using in-process caches", map[string]any{"size": cfg.Cache.LocalSize})
	}
	a.feed = orderFeed(cfg, a.redis, a.hub)

	sinks, sinkCheckers, err := a.openSinks(ctx)
	if err != nil {
		return nil, err
	}
	checkers = append(checkers, sinkCheckers...)
	a.dispatcher = notifier.NewDispatcher(cfg.Notifier, sinks...)

	a.authService = service.NewAuthService(a.store.users, service.AuthOptions{
		Secret:   cfg.Auth.Secret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		TokenTTL: cfg.Auth.TokenTTL,
	})
	a.productService = service.NewProductService(a.store.products)
	idempotencyService := service.NewIdempotencyService(
		c.idempotency,
		cfg.Cache.IdempotencyTTL,
		cfg.Cache.IdempotencyPoll,
		cfg.Cache.IdempotencyTimeout,
	)
	a.orderService = service.NewOrderService(
		a.store.orders,
		a.productService,
		c.orders,
		idempotencyService,
		a.store.txManager,
		a.dispatcher,
	)

	a.router = httpadapter.NewRouter(
		controllers.NewHealthController(checkers),
		controllers.NewAuthController(a.authService),
		controllers.NewProductController(a.productService),
		controllers.NewOrderController(a.orderService),
		controllers.NewStreamController(a.feed, 0),
		a.authService,
		c.rateLimiter,
		httpadapter.RateLimitSettings{Limit: cfg.Cache.RateLimit, Window: cfg.Cache.RateLimitWindow},
	)
	a.handler = a.router.Handler()

	return a, nil
}

// orderFeed reads from Redis only when orders are published there. Otherwise
// the stream follows the in-process hub, which always receives every order.
func orderFeed(cfg *config.Config, client *redis.Client, hub *notifier.Hub) port.OrderFeedPort {
	if client != nil && cfg.Notifier.HasSink(config.SinkRedis) {
		return redis.NewOrderFeed(client, cfg.Redis.EventsChannel)
	}
	return hub
}

// openSinks builds the notification transports. The in-process hub is always
// registered.
func (a *App) openSinks(ctx context.Context) ([]notifier.Sink, []controllers.HealthChecker, error) {
	sinks := []notifier.Sink{{Name: "local", Broker: a.hub}}
	var checkers []controllers.HealthChecker

	for _, name := range a.cfg.Notifier.Sinks {
		switch name {
		case config.SinkRabbitMQ:
			broker, err := rabbitmq.NewRabbitMQAdapter(a.cfg.RabbitMQ)
			if err != nil {
				closeSinks(sinks[1:])
				return nil, nil, err
			}
			sinks = append(sinks, notifier.Sink{Name: name, Broker: broker})
			checkers = append(checkers, controllers.HealthChecker{
				Name:  name,
				Check: func(context.Context) error { return broker.HealthCheck() },
			})
		case config.SinkRedis:
			if a.redis == nil {
				closeSinks(sinks[1:])
				return nil, nil, errors.New("redis sink requires REDIS_URL")
			}
			sinks = append(sinks, notifier.Sink{Name: name, Broker: redis.NewEventPublisher(a.redis, a.cfg.Redis.EventsChannel)})
		case config.SinkKafka:
			sinks = append(sinks, notifier.Sink{Name: name, Broker: kafka.NewProducer(a.cfg.Kafka)})
		default:
			closeSinks(sinks[1:])
			return nil, nil, fmt.Errorf("unknown notification sink %q", name)
		}
		logger.Info(ctx, "Notification sink registered", map[string]any{"sink": name})
	}

	return sinks, checkers, nil
}

func closeSinks(sinks []notifier.Sink) {
	for _, sink := range sinks {
		_ = sink.Broker.Close()
	}
}

func (a *App) Handler() http.Handler {
	return a.handler
}

// Run serves HTTP until ctx is done. The dispatcher keeps delivering until the
// server has drained, then flushes its queue.
func (a *App) Run(ctx context.Context) error {
	dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))

	var g errgroup.Group
	g.Go(func() error {
		a.dispatcher.Start(dispatchCtx)
		return nil
	})
	g.Go(func() error {
		defer stopDispatch()
		logger.Info(ctx, "Starting HTTP server", map[string]any{
			"addr": a.cfg.HTTP.BindInterface + ":" + a.cfg.HTTP.Port,
		})
		return a.router.ListenAndServe(ctx, a.cfg.HTTP)
	})

	err := g.Wait()
	if dropped := a.dispatcher.Dropped(); dropped > 0 {
		logger.Warn(ctx, "Notifications dropped during run", map[string]any{"dropped": dropped})
	}
	return err
}

// Close releases sinks, caches and the store. It is safe on a partially built
// App.
func (a *App) Close() error {
	var errs []error
	if a.dispatcher != nil {
		errs = append(errs, a.dispatcher.Close())
	} else if a.hub != nil {
		errs = append(errs, a.hub.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.close())
	}
	return errors.Join(errs...)
}

package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rafaelleal24/inventory/internal/adapters/config"
	"github.com/rafaelleal24/inventory/internal/adapters/http/controllers"
	"github.com/rafaelleal24/inventory/internal/adapters/http/middleware"
)

const shutdownTimeout = 10 * time.Second

type RateLimitSettings struct {
	Limit  int
	Window time.Duration
}

type Router struct {
	healthController  *controllers.HealthController
	authController    *controllers.AuthController
	productController *controllers.ProductController
	orderController   *controllers.OrderController
	streamController  *controllers.StreamController
	tokenParser       middleware.TokenParser
	rateLimiter       middleware.RateLimiter
	orderRateLimit    RateLimitSettings
}

func NewRouter(
	healthController *controllers.HealthController,
	authController *controllers.AuthController,
	productController *controllers.ProductController,
	orderController *controllers.OrderController,
	streamController *controllers.StreamController,
	tokenParser middleware.TokenParser,
	rateLimiter middleware.RateLimiter,
	orderRateLimit RateLimitSettings,
) *Router {
	return &Router{
		healthController:  healthController,
		authController:    authController,
		productController: productController,
		orderController:   orderController,
		streamController:  streamController,
		tokenParser:       tokenParser,
		rateLimiter:       rateLimiter,
		orderRateLimit:    orderRateLimit,
	}
}

func (r *Router) SetupRoutes(router *gin.Engine) {
	v1Group := router.Group("/api/v1")
	v1Group.Use(middleware.LogRequest())
	{
		v1Group.GET("/health", r.healthController.Health)

		v1Group.POST("/auth/register", r.authController.Register)
		v1Group.POST("/auth/login", r.authController.Login)

		v1Group.GET("/orders/stream", middleware.AuthenticateStream(r.tokenParser), r.streamController.StreamOrders)

		authed := v1Group.Group("", middleware.Authenticate(r.tokenParser))

		authed.GET("/products", r.productController.ListProducts)
		authed.POST("/products", r.productController.CreateProduct)
		authed.GET("/products/:id", r.productController.GetProduct)
		authed.PUT("/products/:id", r.productController.UpdateProduct)
		authed.DELETE("/products/:id", r.productController.DeleteProduct)

		authed.GET("/orders", r.orderController.ListOrders)
		authed.POST("/orders",
			middleware.RateLimit(r.rateLimiter, r.orderRateLimit.Limit, r.orderRateLimit.Window),
			r.orderController.CreateOrder,
		)
		authed.GET("/orders/:id", r.orderController.GetOrderByID)
	}
}

func (r *Router) Handler() http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery())
	r.SetupRoutes(engine)
	return engine
}

// ListenAndServe serves until ctx is done and returns once in-flight requests
// have finished or the shutdown timeout expires.
func (r *Router) ListenAndServe(ctx context.Context, config config.HTTPConfig) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", config.BindInterface, config.Port),
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(r.streamController.Shutdown)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

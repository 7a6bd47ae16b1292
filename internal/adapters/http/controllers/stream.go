package controllers

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rafaelleal24/inventory/internal/adapters/http/handlers"
	"github.com/rafaelleal24/inventory/internal/adapters/http/middleware"
	"github.com/rafaelleal24/inventory/internal/core/domain"
	"github.com/rafaelleal24/inventory/internal/core/port"
)

const defaultKeepAlive = 15 * time.Second

type StreamController struct {
	feed      port.OrderFeedPort
	keepAlive time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

func NewStreamController(feed port.OrderFeedPort, keepAlive time.Duration) *StreamController {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return &StreamController{
		feed:      feed,
		keepAlive: keepAlive,
		done:      make(chan struct{}),
	}
}

// Shutdown ends every open stream.
func (sc *StreamController) Shutdown() {
	sc.closeOnce.Do(func() { close(sc.done) })
}

// StreamOrders godoc
// @Summary     Live order feed
// @Description Server-Sent Events carrying OrderCreated for orders placed by the caller
// @Tags        orders
// @Produce     text/event-stream
// @Security    BearerAuth
// @Success     200 {object} OrderResponse
// @Failure     401 {object} handlers.ErrorResponse
// @Router      /api/v1/orders/stream [get]
func (sc *StreamController) StreamOrders(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	events, err := sc.feed.Subscribe(ctx)
	if err != nil {
		handlers.HandleError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(sc.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sc.done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.BuyerID != userID {
				continue
			}
			c.SSEvent(domain.OrderCreatedEventName, newOrderEventResponse(event))
		case <-ticker.C:
			if _, err := io.WriteString(c.Writer, ": keep-alive\n\n"); err != nil {
				return
			}
		}
		c.Writer.Flush()
	}
}

func newOrderEventResponse(event *domain.OrderCreatedEvent) OrderResponse {
	items := make([]OrderItemResponse, len(event.Items))
	for i, item := range event.Items {
		items[i] = OrderItemResponse{
			ProductID:   string(item.ProductID),
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}
	return OrderResponse{
		ID:          string(event.OrderID),
		BuyerID:     string(event.BuyerID),
		CreatedAt:   event.CreatedAt,
		Items:       items,
		TotalAmount: event.TotalAmount,
	}
}

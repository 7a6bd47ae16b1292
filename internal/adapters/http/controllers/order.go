package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rafaelleal24/inventory/internal/adapters/http/handlers"
	"github.com/rafaelleal24/inventory/internal/adapters/http/middleware"
	"github.com/rafaelleal24/inventory/internal/core/domain"
	"github.com/rafaelleal24/inventory/internal/core/dto"
	"github.com/rafaelleal24/inventory/internal/core/serviceerrors"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, buyerID domain.ID, idempotencyKey string, request *dto.CreateOrderRequest) (*domain.Order, error)
	GetOrderByID(ctx context.Context, userID, orderID domain.ID) (*domain.Order, error)
	ListOrders(ctx context.Context, userID domain.ID, limit, offset int64) ([]*domain.Order, error)
}

type OrderController struct {
	orderService OrderService
}

type OrderItemResponse struct {
	ProductID   string        `json:"product_id"`
	ProductName string        `json:"product_name"`
	Quantity    int           `json:"quantity"`
	UnitPrice   domain.Amount `json:"unit_price" swaggertype:"string" example:"10.00"`
}

type OrderResponse struct {
	ID          string              `json:"id"`
	BuyerID     string              `json:"buyer_id"`
	CreatedAt   time.Time           `json:"created_at"`
	Items       []OrderItemResponse `json:"items"`
	TotalAmount domain.Amount       `json:"total_amount" swaggertype:"string" example:"40.00"`
}

func NewOrderResponse(order *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemResponse{
			ProductID:   string(item.ProductID),
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}
	return OrderResponse{
		ID:          string(order.ID),
		BuyerID:     string(order.BuyerID),
		CreatedAt:   order.CreatedAt,
		Items:       items,
		TotalAmount: order.TotalAmount,
	}
}

func NewOrderController(orderService OrderService) *OrderController {
	return &OrderController{orderService: orderService}
}

// CreateOrder godoc
// @Summary     Place an order
// @Description Deducts stock for every line and records the order atomically
// @Tags        orders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key header   string                 false "Idempotency key"
// @Param       request         body     dto.CreateOrderRequest true  "Order lines"
// @Success     201             {object} OrderResponse
// @Failure     400             {object} handlers.ErrorResponse
// @Failure     404             {object} handlers.ErrorResponse
// @Failure     409             {object} handlers.ErrorResponse
// @Failure     422             {object} handlers.ErrorResponse
// @Failure     429             {object} handlers.ErrorResponse
// @Failure     500             {object} handlers.ErrorResponse
// @Router      /api/v1/orders [post]
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var request dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		handlers.HandleError(c, serviceerrors.NewInvalidRequestError(err.Error()))
		return
	}
	idempotencyKey := c.GetHeader("Idempotency-Key")
	order, err := oc.orderService.PlaceOrder(c.Request.Context(), middleware.UserID(c), idempotencyKey, &request)
	if err != nil {
		handlers.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewOrderResponse(order))
}

// ListOrders godoc
// @Summary     List my orders
// @Description Returns the caller's orders, newest first
// @Tags        orders
// @Produce     json
// @Security    BearerAuth
// @Param       limit  query    int false "Page size (default 20, max 100)"
// @Param       offset query    int false "Orders to skip"
// @Success     200    {array}  OrderResponse
// @Failure     400    {object} handlers.ErrorResponse
// @Failure     401    {object} handlers.ErrorResponse
// @Router      /api/v1/orders [get]
func (oc *OrderController) ListOrders(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		handlers.HandleError(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		handlers.HandleError(c, err)
		return
	}

	orders, err := oc.orderService.ListOrders(c.Request.Context(), middleware.UserID(c), limit, offset)
	if err != nil {
		handlers.HandleError(c, err)
		return
	}

	response := make([]OrderResponse, len(orders))
	for i, order := range orders {
		response[i] = NewOrderResponse(order)
	}
	c.JSON(http.StatusOK, response)
}

// GetOrderByID godoc
// @Summary     Get order by ID
// @Tags        orders
// @Produce     json
// @Security    BearerAuth
// @Param       id  path     string true "Order ID"
// @Success     200 {object} OrderResponse
// @Failure     400 {object} handlers.ErrorResponse
// @Failure     403 {object} handlers.ErrorResponse
// @Failure     404 {object} handlers.ErrorResponse
// @Failure     500 {object} handlers.ErrorResponse
// @Router      /api/v1/orders/{id} [get]
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	orderID := c.Param("id")
	if !domain.ValidateID(orderID) {
		handlers.HandleError(c, serviceerrors.NewInvalidRequestError("invalid order id"))
		return
	}
	order, err := oc.orderService.GetOrderByID(c.Request.Context(), middleware.UserID(c), domain.ID(orderID))
	if err != nil {
		handlers.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewOrderResponse(order))
}

func queryInt(c *gin.Context, name string) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return 0, serviceerrors.NewInvalidRequestError(name + " must be a non-negative integer")
	}
	return value, nil
}

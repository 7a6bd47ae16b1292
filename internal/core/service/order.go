package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/rafaelleal24/inventory/internal/core/domain"
	"github.com/rafaelleal24/inventory/internal/core/dto"
	"github.com/rafaelleal24/inventory/internal/core/logger"
	"github.com/rafaelleal24/inventory/internal/core/port"
	"github.com/rafaelleal24/inventory/internal/core/serviceerrors"
)

const (
	ORDER_MAX_ITEMS = 100
	orderCacheTTL   = 15 * time.Minute

	defaultOrderListLimit = 20
	maxOrderListLimit     = 100
)

var tracer = otel.Tracer("github.com/rafaelleal24/inventory/internal/core/service")

type OrderService struct {
	orderRepository port.OrderPort
	productService  *ProductService
	orderCache      port.CachePort[domain.Order]
	idempotency     *IdempotencyService[domain.Order]
	txManager       port.TransactionManager
	notifier        port.NotifierPort
	loads           singleflight.Group
}

func (s *OrderService) getCacheKey(orderID domain.ID) string {
	return fmt.Sprintf("order:%s", orderID)
}

// GetOrderByID returns the order only to its buyer.
func (s *OrderService) GetOrderByID(ctx context.Context, userID, orderID domain.ID) (*domain.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsOwnedBy(userID) {
		return nil, serviceerrors.NewForbiddenError("order belongs to another user")
	}
	return order, nil
}

func (s *OrderService) loadOrder(ctx context.Context, orderID domain.ID) (*domain.Order, error) {
	cached, err := s.orderCache.Get(ctx, s.getCacheKey(orderID))
	if err != nil {
		logger.Error(ctx, "cache: get order failed", err, map[string]any{
			"order_id": orderID,
		})
	}
	if cached != nil {
		logger.Debug(ctx, "order found in cache", map[string]any{
			"order_id": orderID,
		})
		return cached, nil
	}

	// concurrent misses for the same order share one store read, which must
	// not fail for every waiter when the first caller goes away
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := s.loads.Do(string(orderID), func() (any, error) {
		order, err := s.orderRepository.GetByID(loadCtx, orderID)
		if err != nil {
			return nil, err
		}

		if err := s.orderCache.Set(loadCtx, s.getCacheKey(orderID), order, orderCacheTTL); err != nil {
			logger.Error(loadCtx, "cache: set order failed", err, map[string]any{
				"order_id": orderID,
			})
		}
		return order, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Order), nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID domain.ID, limit, offset int64) ([]*domain.Order, error) {
	if offset < 0 {
		return nil, serviceerrors.NewInvalidRequestError("offset must not be negative")
	}
	if limit <= 0 {
		limit = defaultOrderListLimit
	}
	if limit > maxOrderListLimit {
		limit = maxOrderListLimit
	}
	return s.orderRepository.GetByUserID(ctx, userID, limit, offset)
}

func validateOrderRequest(request *dto.CreateOrderRequest) error {
	if request == nil || len(request.Items) == 0 {
		return serviceerrors.NewInvalidRequestError("order must contain at least one item")
	}
	if len(request.Items) > ORDER_MAX_ITEMS {
		return serviceerrors.NewUnprocessableEntityError("order items limit exceeded")
	}
	for i, item := range request.Items {
		if !domain.ValidateID(string(item.ProductID)) {
			return serviceerrors.NewInvalidRequestError(fmt.Sprintf("item %d: invalid product id", i))
		}
		if item.Quantity <= 0 {
			return serviceerrors.NewInvalidRequestError(fmt.Sprintf("item %d: quantity must be greater than zero", i))
		}
	}
	return nil
}

// processOrder checks stock, decrements it and persists the order in one
// transaction. The first failing line aborts the whole order.
func (s *OrderService) processOrder(ctx context.Context, buyerID domain.ID, request *dto.CreateOrderRequest) (*domain.Order, error) {
	if err := validateOrderRequest(request); err != nil {
		return nil, err
	}

	var order *domain.Order
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		order = domain.NewOrder(buyerID)

		// a product listed on several lines is loaded once and decremented cumulatively
		loaded := make(map[domain.ID]*domain.Product, len(request.Items))
		touched := make([]*domain.Product, 0, len(request.Items))

		for _, item := range request.Items {
			product, ok := loaded[item.ProductID]
			if !ok {
				p, err := s.productService.findForOrder(txCtx, buyerID, item.ProductID)
				if err != nil {
					return err
				}
				product = p
				loaded[item.ProductID] = p
				touched = append(touched, p)
			}

			if err := product.DeductStock(item.Quantity); err != nil {
				return serviceerrors.NewInsufficientStockError(string(product.ID), item.Quantity, product.Stock)
			}
			order.AddItem(*domain.NewOrderItem(product, item.Quantity))
		}

		if err := s.productService.saveStock(txCtx, touched); err != nil {
			return err
		}
		return s.orderRepository.Create(txCtx, order)
	})
	if err != nil {
		logger.Error(ctx, "transaction: create order failed", err, map[string]any{
			"buyer_id": buyerID,
		})
		return nil, err
	}

	logger.Info(ctx, "Order created successfully", map[string]any{
		"order_id":     order.ID,
		"buyer_id":     buyerID,
		"total_amount": order.TotalAmount.String(),
	})

	if err := s.orderCache.Set(ctx, s.getCacheKey(order.ID), order, orderCacheTTL); err != nil {
		logger.Error(ctx, "cache: set order failed", err, map[string]any{
			"order_id": order.ID,
		})
	}

	s.notifier.Notify(ctx, domain.NewOrderCreatedEvent(order))

	return order, nil
}

// PlaceOrder creates an order for buyerID. A non-empty idempotencyKey makes
// retries with the same payload return the first result.
func (s *OrderService) PlaceOrder(ctx context.Context, buyerID domain.ID, idempotencyKey string, request *dto.CreateOrderRequest) (order *domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.PlaceOrder", trace.WithAttributes(
		attribute.String("buyer_id", string(buyerID)),
		attribute.Bool("idempotent", idempotencyKey != ""),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.String("order_id", string(order.ID)))
		}
		span.End()
	}()

	if idempotencyKey == "" {
		return s.processOrder(ctx, buyerID, request)
	}

	existing, claim, err := s.idempotency.Claim(ctx, buyerID, idempotencyKey, request)
	if err != nil {
		logger.Error(ctx, "idempotency: claim failed", err, map[string]any{
			"idempotency_key": idempotencyKey,
			"buyer_id":        buyerID,
		})
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	order, err = s.processOrder(ctx, buyerID, request)
	if err != nil {
		claim.Release(ctx)
		return nil, err
	}

	claim.Complete(ctx, order)

	return order, nil
}

func NewOrderService(
	orderRepository port.OrderPort,
	productService *ProductService,
	orderCache port.CachePort[domain.Order],
	idempotency *IdempotencyService[domain.Order],
	txManager port.TransactionManager,
	notifier port.NotifierPort,
) *OrderService {
	return &OrderService{
		orderRepository: orderRepository,
		productService:  productService,
		orderCache:      orderCache,
		idempotency:     idempotency,
		txManager:       txManager,
		notifier:        notifier,
	}
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rafaelleal24/inventory/internal/core/domain"
	"github.com/rafaelleal24/inventory/internal/core/dto"
	"github.com/rafaelleal24/inventory/internal/core/port/mock"
	"github.com/rafaelleal24/inventory/internal/core/serviceerrors"
	"github.com/rafaelleal24/inventory/internal/core/utils"
	"go.uber.org/mock/gomock"
)

type orderMocks struct {
	orderRepo   *mock.MockOrderPort
	productRepo *mock.MockProductPort
	orderCache  *mock.MockCachePort[domain.Order]
	idemCache   *mock.MockCachePort[IdempotencyEntry[domain.Order]]
	txManager   *mock.MockTransactionManager
	notifier    *mock.MockNotifierPort
}

func setupOrderService(t *testing.T) (*OrderService, *orderMocks) {
	ctrl := gomock.NewController(t)

	orderRepo := mock.NewMockOrderPort(ctrl)
	productRepo := mock.NewMockProductPort(ctrl)
	orderCache := mock.NewMockCachePort[domain.Order](ctrl)
	idemCache := mock.NewMockCachePort[IdempotencyEntry[domain.Order]](ctrl)
	txManager := mock.NewMockTransactionManager(ctrl)
	notifier := mock.NewMockNotifierPort(ctrl)

	productSvc := NewProductService(productRepo)
	idemSvc := NewIdempotencyService[domain.Order](idemCache, 15*time.Minute, 50*time.Millisecond, 500*time.Millisecond)

	svc := NewOrderService(orderRepo, productSvc, orderCache, idemSvc, txManager, notifier)

	return svc, &orderMocks{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		orderCache:  orderCache,
		idemCache:   idemCache,
		txManager:   txManager,
		notifier:    notifier,
	}
}

func expectTransaction(m *orderMocks) {
	m.txManager.EXPECT().
		WithTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		})
}

func TestOrderService_GetOrderByID(t *testing.T) {
	userID := domain.ID("ccddaabbee112233aabbccdd")
	orderID := domain.ID("aabbccddee112233aabbccdd")

	t.Run("cache hit", func(t *testing.T) {
		svc, m := setupOrderService(t)
		cachedOrder := &domain.Order{ID: orderID, BuyerID: userID}

		m.orderCache.EXPECT().
			Get(gomock.Any(), "order:"+string(orderID)).
			Return(cachedOrder, nil)

		order, err := svc.GetOrderByID(context.Background(), userID, orderID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if order.ID != orderID {
			t.Fatalf("expected order id %s, got %s", orderID, order.ID)
		}
	})

	t.Run("cache miss - fetches from repo and caches", func(t *testing.T) {
		svc, m := setupOrderService(t)
		repoOrder := &domain.Order{ID: orderID, BuyerID: userID}

		m.orderCache.EXPECT().
			Get(gomock.Any(), "order:"+string(orderID)).
			Return(nil, nil)

		m.orderRepo.EXPECT().
			GetByID(gomock.Any(), orderID).
			Return(repoOrder, nil)

		m.orderCache.EXPECT().
			Set(gomock.Any(), "order:"+string(orderID), repoOrder, orderCacheTTL).
			Return(nil)

		order, err := svc.GetOrderByID(context.Background(), userID, orderID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if order.ID != orderID {
			t.Fatalf("expected order id %s, got %s", orderID, order.ID)
		}
	})

	t.Run("shared load outlives a cancelled caller", func(t *testing.T) {
		svc, m := setupOrderService(t)
		repoOrder := &domain.Order{ID: orderID, BuyerID: userID}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		m.orderCache.EXPECT().
			Get(gomock.Any(), "order:"+string(orderID)).
			Return(nil, nil)

		m.orderRepo.EXPECT().
			GetByID(gomock.Any(), orderID).
			DoAndReturn(func(ctx context.Context, _ domain.ID) (*domain.Order, error) {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				return repoOrder, nil
			})

		m.orderCache.EXPECT().
			Set(gomock.Any(), "order:"+string(orderID), repoOrder, orderCacheTTL).
			Return(nil)

		order, err := svc.GetOrderByID(ctx, userID, orderID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if order.ID != orderID {
			t.Fatalf("expected order id %s, got %s", orderID, order.ID)
		}
	})

	t.Run("order of another user is forbidden", func(t *testing.T) {
		svc, m := setupOrderService(t)

		m.orderCache.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(&domain.Order{ID: orderID, BuyerID: "ffffaabbee112233aabbccdd"}, nil)

		_, err := svc.GetOrderByID(context.Background(), userID, orderID)
		if !serviceerrors.IsOfKind(err, serviceerrors.KindForbidden) {
			t.Fatalf("expected KindForbidden, got %v", err)
		}
	})

	t.Run("cache error - still fetches from repo", func(t *testing.T) {
		svc, m := setupOrderService(t)
		repoOrder := &domain.Order{ID: orderID, BuyerID: userID}

		m.orderCache.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(nil, errors.New("redis error"))

		m.orderRepo.EXPECT().
			GetByID(gomock.Any(), orderID).
			Return(repoOrder, nil)

		m.orderCache.EXPECT().
			Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("cache set failed"))

		order, err := svc.GetOrderByID(context.Background(), userID, orderID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if order == nil {
			t.Fatal("expected order, got nil")
		}
	})

	t.Run("repo not found", func(t *testing.T) {
		svc, m := setupOrderService(t)

		m.orderCache.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(nil, nil)

		m.orderRepo.EXPECT().
			GetByID(gomock.Any(), orderID).
			Return(nil, serviceerrors.NewNotFoundError("order not found"))

		_, err := svc.GetOrderByID(context.Background(), userID, orderID)
		if !serviceerrors.IsOfKind(err, serviceerrors.KindNotFound) {
			t.Fatalf("expected KindNotFound, got %v", err)
		}
	})

	t.Run("concurrent misses share one repo read", func(t *testing.T) {
		svc, m := setupOrderService(t)
		const callers = 5

		var gets sync.WaitGroup
		gets.Add(callers)
		release := make(chan struct{})

		m.orderCache.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, string) (*domain.Order, error) {
				gets.Done()
				return nil, nil
			}).
			Times(callers)

		m.orderRepo.EXPECT().
			GetByID(gomock.Any(), orderID).
			DoAndReturn(func(context.Context, domain.ID) (*domain.Order, error) {
				<-release
				return &domain.Order{ID: orderID, BuyerID: userID}, nil
			}).
			Times(1)

		m.orderCache.EXPECT().
			Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil).
			Times(1)

		var done sync.WaitGroup
		errs := make(chan error, callers)
		for i := 0; i < callers; i++ {
			done.Add(1)
			go func() {
				defer done.Done()
				_, err := svc.GetOrderByID(context.Background(), userID, orderID)
				errs <- err
			}()
		}

		gets.Wait()
		time.Sleep(50 * time.Millisecond)
		close(release)
		done.Wait()
		close(errs)

		for err := range errs {
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		}
	})
}

func TestOrderService_ListOrders(t *testing.T) {
	userID := domain.ID("ccddaabbee112233aabbccdd")

	tests := []struct {
		name          string
		limit, offset int64
		wantLimit     int64
	}{
		{"default limit", 0, 0, 20},
		{"explicit limit", 5, 10, 5},
		{"limit clamped", 1000, 0, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := setupOrderService(t)

			m.orderRepo.EXPECT().
				GetByUserID(gomock.Any(), userID, tt.wantLimit, tt.offset).
				Return([]*domain.Order{}, nil)

			if _, err := svc.ListOrders(context.Background(), userID, tt.limit, tt.offset); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}

	t.Run("negative offset", func(t *testing.T) {
		svc, _ := setupOrderService(t)

		_, err := svc.ListOrders(context.Background(), userID, 10, -1)
		if !serviceerrors.IsOfKind(err, serviceerrors.KindInvalidRequest) {
			t.Fatalf("expected KindInvalidRequest, got %v", err)
		}
	})
}

func TestOrderService_PlaceOrder(t *testing.T) {
	buyerID := domain.ID("ccddaabbee112233aabbccdd")
	productA := domain.ID("aabbccddee112233aabbccd1")
	productB := domain.ID("aabbccddee112233aabbccd2")

	newProduct := func(id domain.ID, name string, cents int64, stock int) *domain.Product {
		return &domain.Product{
			ID:      id,
			OwnerID: buyerID,
			Name:    name,
			Price:   domain.NewAmountFromCents(cents),
			Stock:   stock,
			Version: 3,
		}
	}

	t.Run("success - decrements stock, snapshots price and notifies after commit", func(t *testing.T) {
		svc, m := setupOrderService(t)
		committed := false

		m.txManager.EXPECT().
			WithTransaction(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, fn func(context.Context) error) error {
				if err := fn(ctx); err != nil {
					return err
				}
				committed = true
				return nil
			})

		m.productRepo.EXPECT().
			FindOwned(gomock.Any(), buyerID, productA).
			Return(newProduct(productA, "A", 2000, 5), nil)

		m.productRepo.EXPECT().
			FindOwned(gomock.Any(), buyerID, productB).
			Return(newProduct(productB, "B", 550, 1), nil)

		m.productRepo.EXPECT().
			SaveStock(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, products []*domain.Product) error {
				if len(products) != 2 {
					t.Fatalf("expected 2 products to save, got %d", len(products))
				}
				if products[0].Stock != 3 || products[1].Stock != 0 {
					t.Fatalf("expected stocks 3 and 0, got %d and %d", products[0].Stock, products[1].Stock)
				}
				return nil
			})

		m.orderRepo.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, order *domain.Order) error {
				order.ID = domain.ID("aabbccddee112233aabbccdd")
				return nil
			})

		m.orderCache.EXPECT().
			Set(gomock.Any(), "order:aabbccddee112233aabbccdd", gomock.Any(), orderCacheTTL).
			Return(nil)

		m.notifier.EXPECT().
			Notify(gomock.Any(), gomock.Any()).
			Do(func(_ context.Context, event domain.Event) {
				if !committed {
					t.Fatal("notify called before commit")
				}
				created, ok := event.(*domain.OrderCreatedEvent)
				if !ok {
					t.Fatalf("expected *domain.OrderCreatedEvent, got %T", event)
				}
				if created.OrderID != "aabbccddee112233aabbccdd" || created.BuyerID != buyerID {
					t.Fatalf("unexpected event %+v", created)
				}
				if created.TotalAmount.String() != "45.50" {
					t.Fatalf("expected event total 45.50, got %s", created.TotalAmount)
				}
			})

		order, err := svc.PlaceOrder(context.Background(), buyerID, "", &dto.CreateOrderRequest{
			Items: []dto.OrderItem{
				{ProductID: productA, Quantity: 2},
				{ProductID: productB, Quantity: 1},
			},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if order.BuyerID != buyerID {
			t.Fatalf("expected buyer id %s, got %s", buyerID, order.BuyerID)
		}
		if len(order.Items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(order.Items))
		}
		if order.Items[0].UnitPrice.String() != "20.00" || order.Items[0].ProductName != "A" {
			t.Fatalf("expected price snapshot 20.00 for A, got %s %q", order.Items[0].UnitPrice, order.Items[0].ProductName)
		}
		if order.TotalAmount.String() != "45.50" {
			t.Fatalf("expected total 45.50, got %s", order.TotalAmount)
		}
	})

	t.Run("repeated product is loaded once and decremented cumulatively", func(t *testing.T) {
		svc, m := setupOrderService(t)
		expectTransaction(m)

		m.productRepo.EXPECT().
			FindOwned(gomock.Any(), buyerID, productA).
			Return(newProduct(productA, "A", 1000, 5), nil).
			Times(1)

		m.productRepo.EXPECT().
			SaveStock(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, products []*domain.Product) error {
				if len(products) != 1 || products[0].Stock != 0 {
					t.Fatalf("expected a single product with stock 0, got %+v", products)
				}
				return nil
			})

		m.orderRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		m.orderCache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		m.notifier.EXPECT().Notify(gomock.Any(), gomock.Any())

		order, err := svc.PlaceOrder(context.Background(), buyerID, "", &dto.CreateOrderRequest{
			Items: []dto.OrderItem{
				{ProductID: productA, Quantity: 2},
				{ProductID: productA, Quantity: 3},
			},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if order.TotalAmount.String() != "50.00" {
			t.Fatalf("expected total 50.00, got %s", order.TotalAmount)
		}
	})

	t.Run("repeated product exceeding stock in total", func(t *testing.T) {
		svc, m := setupOrderService(t)
		expectTransaction(m)

		m.productRepo.EXPECT().
			FindOwned(gomock.Any(), buyerID, productA).
			Return(newProduct(productA, "A", 1000, 4), nil)

		_, err := svc.PlaceOrder(context.Background(), buyerID, "", &dto.CreateOrderRequest{
			Items: []dto.OrderItem{
				{ProductID: productA, Quantity: 3},
				{ProductID: productA, Quantity: 3},
			},
		})
		var svcErr *serviceerrors.ServiceError
		if !errors.As(err, &svcErr) || svcErr.Kind != serviceerrors.KindInsufficientStock {
			t.Fatalf("expected KindInsufficientStock, got %v", err)
		}
		if svcErr.Details["requested"] != 3 || svcErr.Details["available"] != 1 {
			t.Fatalf("unexpected details %v", svcErr.Details)
		}
	})

	t.Run("insufficient stock on a later line aborts everything", func(t *testing.T) {
		svc, m := setupOrderService(t)
		expectTransaction(m)

		m.productRepo.EXPECT().
			FindOwned(gomock.Any(), buyerID, productA).
			Return(newProduct(productA, "A", 2000, 5), nil)

		m.productRepo.EXPECT().
			FindOwned(gomock.Any(), buyerID, productB).
			Return(newProduct(productB, "B", 550, 1), nil)

		_, err := svc.PlaceOrder(context.Background(), buyerID, "", &dto.CreateOrderRequest{
			Items: []dto.OrderItem{
				{ProductID: productA, Quantity: 2},
				{ProductID: productB, Quantity: 2},
			},
		})
		var svcErr *serviceerrors.ServiceError
		if !errors.As(err, &svcErr) || svcErr.Kind != serviceerrors.KindInsufficientStock {
			t.Fatalf("expected KindInsufficientStock, got %v", err)
		}
		if svcErr.Details["product_id"] != string(productB) || svcErr.Details["requested"] != 2 || svcErr.Details["available"] != 1 {
			t.Fatalf("unexpected details %v", svcErr.Details)
		}
	})

	t.Run("product not owned by buyer", func(t *testing.T) {
		svc, m := setupOrderService(t)
		expectTransaction(m)

		m.productRepo.EXPECT().
			FindOwned(gomock.Any(), buyerID, productA).
			Return(nil, serviceerrors.NewNotFoundError("entity not found"))

		_, err := svc.PlaceOrder(context.Background(), buyerID, "", &dto.CreateOrderRequest{
			Items: []dto.OrderItem{{ProductID: productA, Quantity: 1}},
		})
		if !serviceerrors.IsOfKind(err, serviceerrors.KindNotFound) {
			t.Fatalf("expected KindNotFound, got %v", err)
		}
		if err.Error() != "product "+string(productA)+" not found" {
			t.Fatalf("expected message to name the product, got %q", err.Error())
		}
	})

	t.Run("stale stock write is a conflict", func(t *testing.T) {
		svc, m := setupOrderService(t)
		expectTransaction(m)

		m.productRepo.EXPECT().
			FindOwned(gomock.Any(), buyerID, productA).
			Return(newProduct(productA, "A", 2000, 5), nil)

		m.productRepo.EXPECT().
			SaveStock(gomock.Any(), gomock.Any()).
			Return(serviceerrors.NewConflictError("product was modified concurrently"))

		_, err := svc.PlaceOrder(context.Background(), buyerID, "", &dto.CreateOrderRequest{
			Items: []dto.OrderItem{{ProductID: productA, Quantity: 1}},
		})
		if !serviceerrors.IsOfKind(err, serviceerrors.KindConflict) {
			t.Fatalf("expected KindConflict, got %v", err)
		}
	})

	t.Run("order persistence failure", func(t *testing.T) {
		svc, m := setupOrderService(t)
		expectTransaction(m)

		m.productRepo.EXPECT().
			FindOwned(gomock.Any(), buyerID, productA).
			Return(newProduct(productA, "A", 2000, 5), nil)
		m.productRepo.EXPECT().SaveStock(gomock.Any(), gomock.Any()).Return(nil)
		m.orderRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

		_, err := svc.PlaceOrder(context.Background(), buyerID, "", &dto.CreateOrderRequest{
			Items: []dto.OrderItem{{ProductID: productA, Quantity: 1}},
		})
		if err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	validation := []struct {
		name  string
		items []dto.OrderItem
		kind  serviceerrors.ErrorKind
	}{
		{"no items", nil, serviceerrors.KindInvalidRequest},
		{"zero quantity", []dto.OrderItem{{ProductID: productA, Quantity: 0}}, serviceerrors.KindInvalidRequest},
		{"negative quantity", []dto.OrderItem{{ProductID: productA, Quantity: -2}}, serviceerrors.KindInvalidRequest},
		{"malformed product id", []dto.OrderItem{{ProductID: "nope", Quantity: 1}}, serviceerrors.KindInvalidRequest},
	}
	for _, tt := range validation {
		t.Run("validation - "+tt.name, func(t *testing.T) {
			svc, _ := setupOrderService(t)

			_, err := svc.PlaceOrder(context.Background(), buyerID, "", &dto.CreateOrderRequest{Items: tt.items})
			if !serviceerrors.IsOfKind(err, tt.kind) {
				t.Fatalf("expected kind %v, got %v", tt.kind, err)
			}
		})
	}

	t.Run("validation - too many items", func(t *testing.T) {
		svc, _ := setupOrderService(t)

		items := make([]dto.OrderItem, ORDER_MAX_ITEMS+1)
		for i := range items {
			items[i] = dto.OrderItem{ProductID: productA, Quantity: 1}
		}

		_, err := svc.PlaceOrder(context.Background(), buyerID, "", &dto.CreateOrderRequest{Items: items})
		if !serviceerrors.IsOfKind(err, serviceerrors.KindUnprocessableEntity) {
			t.Fatalf("expected KindUnprocessableEntity, got %v", err)
		}
	})
}

func TestOrderService_PlaceOrder_Idempotency(t *testing.T) {
	buyerID := domain.ID("ccddaabbee112233aabbccdd")
	productID := domain.ID("aabbccddee112233aabbccd1")
	request := &dto.CreateOrderRequest{Items: []dto.OrderItem{{ProductID: productID, Quantity: 1}}}
	key := string(buyerID) + ":idem-1"

	t.Run("first request processes and completes the key", func(t *testing.T) {
		svc, m := setupOrderService(t)

		m.idemCache.EXPECT().SetNX(gomock.Any(), key, gomock.Any(), 15*time.Minute).Return(true, nil)
		expectTransaction(m)
		m.productRepo.EXPECT().
			FindOwned(gomock.Any(), buyerID, productID).
			Return(&domain.Product{ID: productID, OwnerID: buyerID, Price: domain.NewAmountFromCents(100), Stock: 1}, nil)
		m.productRepo.EXPECT().SaveStock(gomock.Any(), gomock.Any()).Return(nil)
		m.orderRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		m.orderCache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		m.notifier.EXPECT().Notify(gomock.Any(), gomock.Any())
		m.idemCache.EXPECT().
			Set(gomock.Any(), key, gomock.Any(), 15*time.Minute).
			DoAndReturn(func(_ context.Context, _ string, entry *IdempotencyEntry[domain.Order], _ time.Duration) error {
				if entry.Status != IdempotencyCompleted || entry.Result == nil {
					t.Fatalf("expected completed entry with result, got %+v", entry)
				}
				return nil
			})

		if _, err := svc.PlaceOrder(context.Background(), buyerID, "idem-1", request); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("replay returns stored order without touching stock", func(t *testing.T) {
		svc, m := setupOrderService(t)
		stored := &domain.Order{ID: "aabbccddee112233aabbccdd", BuyerID: buyerID}

		m.idemCache.EXPECT().SetNX(gomock.Any(), key, gomock.Any(), 15*time.Minute).Return(false, nil)
		m.idemCache.EXPECT().
			Get(gomock.Any(), key).
			DoAndReturn(func(context.Context, string) (*IdempotencyEntry[domain.Order], error) {
				return &IdempotencyEntry[domain.Order]{
					Status:      IdempotencyCompleted,
					PayloadHash: utils.HashJSON(request),
					Result:      stored,
				}, nil
			})

		order, err := svc.PlaceOrder(context.Background(), buyerID, "idem-1", request)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if order.ID != stored.ID {
			t.Fatalf("expected stored order %s, got %s", stored.ID, order.ID)
		}
	})

	t.Run("failure releases the key", func(t *testing.T) {
		svc, m := setupOrderService(t)

		m.idemCache.EXPECT().SetNX(gomock.Any(), key, gomock.Any(), 15*time.Minute).Return(true, nil)
		expectTransaction(m)
		m.productRepo.EXPECT().
			FindOwned(gomock.Any(), buyerID, productID).
			Return(&domain.Product{ID: productID, OwnerID: buyerID, Price: domain.NewAmountFromCents(100), Stock: 0}, nil)
		m.idemCache.EXPECT().Del(gomock.Any(), key).Return(nil)

		_, err := svc.PlaceOrder(context.Background(), buyerID, "idem-1", request)
		if !serviceerrors.IsOfKind(err, serviceerrors.KindInsufficientStock) {
			t.Fatalf("expected KindInsufficientStock, got %v", err)
		}
	})
}

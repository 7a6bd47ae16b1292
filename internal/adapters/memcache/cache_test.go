package memcache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rafaelleal24/inventory/internal/core/domain"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(t *testing.T, size int) (*Cache[domain.Order], *clock) {
	t.Helper()
	c, err := NewCache[domain.Order](size)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := c.(*Cache[domain.Order])
	cache.now = clk.Now
	return cache, clk
}

func TestCache_SetAndGet(t *testing.T) {
	cache, clk := newTestCache(t, 8)
	ctx := context.Background()

	order := domain.NewOrder("buyer-1")
	order.ID = "order-1"
	order.AddItem(*domain.NewOrderItem(&domain.Product{ID: "p-1", Name: "Lamp", Price: domain.NewAmountFromCents(250)}, 4))

	if err := cache.Set(ctx, "order-1", order, time.Minute); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	order.Items[0].Quantity = 99

	got, err := cache.Get(ctx, "order-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got == nil || got.Items[0].Quantity != 4 {
		t.Fatalf("expected stored copy with quantity 4, got %+v", got)
	}
	if got.TotalAmount.String() != "10.00" {
		t.Fatalf("expected total 10.00, got %s", got.TotalAmount)
	}

	clk.Advance(time.Minute)

	got, err = cache.Get(ctx, "order-1")
	if err != nil || got != nil {
		t.Fatalf("expected expired miss, got %+v, %v", got, err)
	}
}

func TestCache_SetNX(t *testing.T) {
	cache, clk := newTestCache(t, 8)
	ctx := context.Background()

	ok, _ := cache.SetNX(ctx, "key", &domain.Order{ID: "first"}, time.Second)
	if !ok {
		t.Fatal("expected first SetNX to succeed")
	}

	ok, _ = cache.SetNX(ctx, "key", &domain.Order{ID: "second"}, time.Second)
	if ok {
		t.Fatal("expected second SetNX to fail")
	}

	clk.Advance(2 * time.Second)

	ok, _ = cache.SetNX(ctx, "key", &domain.Order{ID: "third"}, time.Second)
	if !ok {
		t.Fatal("expected SetNX to succeed once the entry expired")
	}

	got, _ := cache.Get(ctx, "key")
	if got.ID != "third" {
		t.Fatalf("expected third, got %s", got.ID)
	}
}

func TestCache_SetNXIsExclusive(t *testing.T) {
	cache, _ := newTestCache(t, 8)
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := cache.SetNX(ctx, "contended", &domain.Order{}, time.Minute)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestCache_DelAndEviction(t *testing.T) {
	cache, _ := newTestCache(t, 2)
	ctx := context.Background()

	_ = cache.Set(ctx, "a", &domain.Order{ID: "a"}, 0)
	_ = cache.Set(ctx, "b", &domain.Order{ID: "b"}, 0)
	_ = cache.Set(ctx, "c", &domain.Order{ID: "c"}, 0)

	if got, _ := cache.Get(ctx, "a"); got != nil {
		t.Fatal("expected least recently used entry to be evicted")
	}

	_ = cache.Del(ctx, "c")
	if got, _ := cache.Get(ctx, "c"); got != nil {
		t.Fatal("expected deleted entry to be gone")
	}
	if got, _ := cache.Get(ctx, "b"); got == nil {
		t.Fatal("expected b to remain")
	}
}

func TestCache_EvictsExpiredBeforeLive(t *testing.T) {
	cache, clk := newTestCache(t, 2)
	ctx := context.Background()

	// "pending" is the least recently used but still live; "stale" expires
	if ok, _ := cache.SetNX(ctx, "pending", &domain.Order{ID: "pending"}, time.Hour); !ok {
		t.Fatal("expected first SetNX to win")
	}
	_ = cache.Set(ctx, "stale", &domain.Order{ID: "stale"}, time.Second)
	clk.Advance(2 * time.Second)

	_ = cache.Set(ctx, "fresh", &domain.Order{ID: "fresh"}, time.Hour)

	if ok, _ := cache.SetNX(ctx, "pending", &domain.Order{ID: "pending"}, time.Hour); ok {
		t.Fatal("expected live key to keep its claim while expired entries exist")
	}
	if got, _ := cache.Get(ctx, "fresh"); got == nil {
		t.Fatal("expected fresh entry to be stored")
	}
}

func TestNewCache_RejectsInvalidSize(t *testing.T) {
	if _, err := NewCache[domain.Order](0); err == nil {
		t.Fatal("expected error for zero size")
	}
}

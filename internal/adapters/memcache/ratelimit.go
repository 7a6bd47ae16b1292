package memcache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rafaelleal24/inventory/internal/adapters/http/middleware"
)

type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter counts hits per key in fixed windows. Least recently seen keys
// are evicted once size keys are tracked.
type RateLimiter struct {
	mu      sync.Mutex
	windows *lru.Cache[string, *window]
	now     func() time.Time
}

func NewRateLimiter(size int) (middleware.RateLimiter, error) {
	windows, err := lru.New[string, *window](size)
	if err != nil {
		return nil, err
	}
	return &RateLimiter{windows: windows, now: time.Now}, nil
}

func (r *RateLimiter) Allow(_ context.Context, key string, limit int, period time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	w, ok := r.windows.Get(key)
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(period)}
		r.windows.Add(key, w)
	}

	w.count++
	return w.count <= limit, nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rafaelleal24/inventory/internal/core/domain"
	"github.com/rafaelleal24/inventory/internal/core/logger"
	"github.com/rafaelleal24/inventory/internal/core/port"
	"github.com/rafaelleal24/inventory/internal/core/serviceerrors"
	"github.com/rafaelleal24/inventory/internal/core/utils"
)

type IdempotencyStatus string

const (
	IdempotencyProcessing IdempotencyStatus = "processing"
	IdempotencyCompleted  IdempotencyStatus = "completed"
)

type IdempotencyEntry[T any] struct {
	Status      IdempotencyStatus `json:"status"`
	PayloadHash string            `json:"payload_hash"`
	Result      *T                `json:"result,omitempty"`
}

// IdempotencyService deduplicates requests carrying the same client key.
// Keys are scoped to the caller so two users never share an entry.
type IdempotencyService[T any] struct {
	cache        port.CachePort[IdempotencyEntry[T]]
	ttl          time.Duration
	pollInterval time.Duration
	pollTimeout  time.Duration
}

func NewIdempotencyService[T any](
	cache port.CachePort[IdempotencyEntry[T]],
	ttl time.Duration,
	pollInterval time.Duration,
	pollTimeout time.Duration,
) *IdempotencyService[T] {
	return &IdempotencyService[T]{
		cache:        cache,
		ttl:          ttl,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
	}
}

// IdempotencyClaim is held by the request that won the key. Exactly one of
// Complete or Release must be called.
type IdempotencyClaim[T any] struct {
	service     *IdempotencyService[T]
	key         string
	payloadHash string
}

func scopedIdempotencyKey(scope domain.ID, key string) string {
	return fmt.Sprintf("%s:%s", scope, key)
}

// Claim returns the stored result when the key was already completed with the
// same payload, or a claim when this call is the first to use the key.
func (s *IdempotencyService[T]) Claim(ctx context.Context, scope domain.ID, key string, payload any) (*T, *IdempotencyClaim[T], error) {
	scoped := scopedIdempotencyKey(scope, key)
	payloadHash := utils.HashJSON(payload)

	claimed, err := s.cache.SetNX(ctx, scoped, &IdempotencyEntry[T]{
		Status:      IdempotencyProcessing,
		PayloadHash: payloadHash,
	}, s.ttl)
	if err != nil {
		return nil, nil, fmt.Errorf("idempotency claim failed: %w", err)
	}

	if claimed {
		return nil, &IdempotencyClaim[T]{service: s, key: scoped, payloadHash: payloadHash}, nil
	}

	result, err := s.waitForCompletion(ctx, scoped, payloadHash)
	return result, nil, err
}

func (c *IdempotencyClaim[T]) Complete(ctx context.Context, result *T) {
	err := c.service.cache.Set(ctx, c.key, &IdempotencyEntry[T]{
		Status:      IdempotencyCompleted,
		PayloadHash: c.payloadHash,
		Result:      result,
	}, c.service.ttl)
	if err != nil {
		logger.Error(ctx, "idempotency: complete failed", err, map[string]any{
			"idempotency_key": c.key,
			"payload_hash":    c.payloadHash,
		})
	}
}

// Release frees the key so the client can retry after a failure.
func (c *IdempotencyClaim[T]) Release(ctx context.Context) {
	if err := c.service.cache.Del(ctx, c.key); err != nil {
		logger.Error(ctx, "idempotency: release failed", err, map[string]any{
			"idempotency_key": c.key,
		})
	}
}

func (s *IdempotencyService[T]) checkEntry(ctx context.Context, key, payloadHash string) (*T, error) {
	entry, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("idempotency check failed: %w", err)
	}
	if entry == nil {
		return nil, serviceerrors.NewConflictError("previous request failed, retry with the same key")
	}
	if entry.PayloadHash != payloadHash {
		return nil, serviceerrors.NewUnprocessableEntityError("idempotency key already used with a different payload")
	}
	if entry.Status == IdempotencyCompleted {
		return entry.Result, nil
	}
	return nil, nil
}

func (s *IdempotencyService[T]) waitForCompletion(ctx context.Context, key, payloadHash string) (*T, error) {
	result, err := s.checkEntry(ctx, key, payloadHash)
	if result != nil || err != nil {
		return result, err
	}

	timeout := time.After(s.pollTimeout)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout:
			return nil, serviceerrors.NewConflictError("idempotency key still being processed, timed out")
		case <-ticker.C:
			result, err := s.checkEntry(ctx, key, payloadHash)
			if result != nil || err != nil {
				return result, err
			}
		}
	}
}

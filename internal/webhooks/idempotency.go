package webhooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/redis"
)

// IdempotencyGuard remembers provider event ids so exact redeliveries are
// short-circuited before touching the database.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &IdempotencyGuard{store: store, ttl: ttl}, nil
}

// CheckAndMark reports whether eventID was already seen for provider and
// marks it seen otherwise.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, provider, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	set, err := g.store.SetNX(ctx, g.store.IdempotencyKey("webhook:"+provider, eventID), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Forget clears the mark so the provider's next retry is processed.
func (g *IdempotencyGuard) Forget(ctx context.Context, provider, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey("webhook:"+provider, eventID))
}

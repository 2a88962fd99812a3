package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// claimStore is the slice of pkg/redis the guard needs.
type claimStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// IdempotencyGuard records Stripe event ids so redeliveries are acknowledged without
// being applied twice. A zero ttl keeps the marker forever.
type IdempotencyGuard struct {
	store claimStore
	ttl   time.Duration
	scope string
	now   func() time.Time
}

func NewIdempotencyGuard(store claimStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	switch {
	case store == nil:
		return nil, errors.New("stripe webhook guard: store is required")
	case ttl < 0:
		return nil, errors.New("stripe webhook guard: ttl must not be negative")
	case strings.TrimSpace(scope) == "":
		return nil, errors.New("stripe webhook guard: scope is required")
	}
	return &IdempotencyGuard{store: store, ttl: ttl, scope: scope, now: time.Now}, nil
}

// Claim returns true when this delivery is the first one seen for eventID.
func (g *IdempotencyGuard) Claim(ctx context.Context, eventID string) (bool, error) {
	key, err := g.key(eventID)
	if err != nil {
		return false, err
	}
	claimed, err := g.store.SetNX(ctx, key, g.now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		return false, fmt.Errorf("claim stripe event %s: %w", eventID, err)
	}
	return claimed, nil
}

// Release forgets eventID so Stripe's next retry is processed again.
func (g *IdempotencyGuard) Release(ctx context.Context, eventID string) error {
	key, err := g.key(eventID)
	if err != nil {
		return err
	}
	if err := g.store.Del(ctx, key); err != nil {
		return fmt.Errorf("release stripe event %s: %w", eventID, err)
	}
	return nil
}

func (g *IdempotencyGuard) key(eventID string) (string, error) {
	if strings.TrimSpace(eventID) == "" {
		return "", errors.New("stripe webhook guard: event id is required")
	}
	return g.store.IdempotencyKey(g.scope, eventID), nil
}

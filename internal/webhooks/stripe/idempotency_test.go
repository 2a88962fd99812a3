package stripewebhook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapClaimStore struct {
	values map[string]any
	ttls   map[string]time.Duration
	err    error
}

func newMapClaimStore() *mapClaimStore {
	return &mapClaimStore{values: map[string]any{}, ttls: map[string]time.Duration{}}
}

func (s *mapClaimStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value
	s.ttls[key] = ttl
	return true, nil
}

func (s *mapClaimStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.values, k)
	}
	return s.err
}

func (s *mapClaimStore) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func TestGuardClaimsEachEventOnce(t *testing.T) {
	store := newMapClaimStore()
	guard, err := NewIdempotencyGuard(store, time.Hour, "stripe-webhook")
	require.NoError(t, err)
	guard.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	first, err := guard.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, "2026-03-01T12:00:00Z", store.values["stripe-webhook:evt_1"])
	assert.Equal(t, time.Hour, store.ttls["stripe-webhook:evt_1"])

	again, err := guard.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, guard.Release(ctx, "evt_1"))
	retried, err := guard.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, retried)
}

func TestGuardWrapsStoreErrors(t *testing.T) {
	store := newMapClaimStore()
	store.err = errors.New("connection refused")
	guard, err := NewIdempotencyGuard(store, 0, "stripe-webhook")
	require.NoError(t, err)

	_, err = guard.Claim(context.Background(), "evt_2")
	assert.ErrorIs(t, err, store.err)
	assert.ErrorIs(t, guard.Release(context.Background(), "evt_2"), store.err)
}

func TestGuardValidation(t *testing.T) {
	_, err := NewIdempotencyGuard(nil, time.Hour, "s")
	assert.Error(t, err)
	_, err = NewIdempotencyGuard(newMapClaimStore(), -time.Second, "s")
	assert.Error(t, err)
	_, err = NewIdempotencyGuard(newMapClaimStore(), time.Hour, " ")
	assert.Error(t, err)

	guard, err := NewIdempotencyGuard(newMapClaimStore(), time.Hour, "s")
	require.NoError(t, err)
	_, err = guard.Claim(context.Background(), "")
	assert.Error(t, err)
}

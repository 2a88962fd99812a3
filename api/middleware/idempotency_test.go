package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/bazar-market/bazar-backend/pkg/errors"
)

type memoryIdempotencyStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryIdempotencyStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	return true, m.Set(ctx, key, value, ttl)
}

func (m *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

func idemRequest(method, path, key, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	return req
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestIdempotencyTTL(t *testing.T) {
	cases := []struct {
		method, path string
		want         time.Duration
		ok           bool
	}{
		{http.MethodPost, "/api/v1/orders", 7 * 24 * time.Hour, true},
		{http.MethodPost, "/api/v1/orders/", 7 * 24 * time.Hour, true},
		{http.MethodPut, "/api/v1/orders/abc/cancel", 7 * 24 * time.Hour, true},
		{http.MethodPost, "/api/v1/seller/subscription/subscribe", 24 * time.Hour, true},
		{http.MethodPost, "/api/v1/seller/orders/abc/send-to-delivery", 24 * time.Hour, true},
		{http.MethodPost, "/api/v1/orders/abc/cancel", 0, false},
		{http.MethodPut, "/api/v1/orders/a/b/cancel", 0, false},
		{http.MethodPost, "/api/v1/coupons/apply", 0, false},
	}
	for _, tc := range cases {
		ttl, ok := idempotencyTTL(tc.method, tc.path)
		assert.Equal(t, tc.ok, ok, "%s %s", tc.method, tc.path)
		assert.Equal(t, tc.want, ttl, "%s %s", tc.method, tc.path)
	}
}

func TestIdempotencyRequiresKey(t *testing.T) {
	called := false
	h := Idempotency(newMemoryIdempotencyStore(), nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	for _, path := range []string{"/api/v1/orders", "/api/v1/orders/"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, idemRequest(http.MethodPost, path, "", `{}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
	assert.False(t, called)
}

func TestIdempotencyIgnoresUnlistedRoutes(t *testing.T) {
	called := false
	h := Idempotency(newMemoryIdempotencyStore(), nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), idemRequest(http.MethodPost, "/api/v1/coupons/apply", "", `{}`))
	assert.True(t, called)
}

func TestIdempotencyReplaysCompletedResponse(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"order_id":"o-1"}}`))
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, idemRequest(http.MethodPost, "/api/v1/orders", "k1", `{"cart":1}`))
	require.Equal(t, http.StatusCreated, first.Code)

	replay := httptest.NewRecorder()
	h.ServeHTTP(replay, idemRequest(http.MethodPost, "/api/v1/orders", "k1", `{"cart":1}`))

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	assert.Equal(t, "true", replay.Header().Get(IdempotentReplayHeader))
	assert.JSONEq(t, `{"data":{"order_id":"o-1"}}`, replay.Body.String())

	for _, ttl := range store.ttls {
		assert.Equal(t, 7*24*time.Hour, ttl)
	}
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	h := Idempotency(newMemoryIdempotencyStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	h.ServeHTTP(httptest.NewRecorder(), idemRequest(http.MethodPost, "/api/v1/orders", "k2", `{"cart":1}`))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, idemRequest(http.MethodPost, "/api/v1/orders", "k2", `{"cart":2}`))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, rec))
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	store := newMemoryIdempotencyStore()
	var inner *httptest.ResponseRecorder
	var h http.Handler
	h = Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inner == nil {
			// A retry arrives while the first request is still running.
			inner = httptest.NewRecorder()
			h.ServeHTTP(inner, idemRequest(http.MethodPost, "/api/v1/orders", "k3", `{}`))
		}
		w.WriteHeader(http.StatusCreated)
	}))

	outer := httptest.NewRecorder()
	h.ServeHTTP(outer, idemRequest(http.MethodPost, "/api/v1/orders", "k3", `{}`))

	assert.Equal(t, http.StatusCreated, outer.Code)
	require.NotNil(t, inner)
	assert.Equal(t, http.StatusConflict, inner.Code)
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := newMemoryIdempotencyStore()
	fail := true
	calls := 0
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	h.ServeHTTP(httptest.NewRecorder(), idemRequest(http.MethodPost, "/api/v1/orders", "k4", `{}`))
	assert.Empty(t, store.data)

	fail = false
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, idemRequest(http.MethodPost, "/api/v1/orders", "k4", `{}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyScopesKeysPerUser(t *testing.T) {
	calls := 0
	h := Idempotency(newMemoryIdempotencyStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))
	for _, user := range []string{"user-a", "user-b"} {
		req := idemRequest(http.MethodPost, "/api/v1/orders", "same", `{}`)
		req = req.WithContext(WithUserID(req.Context(), user))
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 2, calls)
}

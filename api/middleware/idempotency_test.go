package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type memoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]string
	ttls    map[string]time.Duration
	getErr  error
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{
		entries: map[string]string{},
		ttls:    map[string]time.Duration{},
	}
}

func (s *memoryIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", s.getErr
	}
	if v, ok := s.entries[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (s *memoryIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; ok {
		return false, nil
	}
	s.entries[key] = value.(string)
	s.ttls[key] = ttl
	return true, nil
}

func (s *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idemp:" + scope + ":" + id
}

func (s *memoryIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

func countingHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"ok":true}}`))
	})
}

func TestIdempotencySkipsUnmatchedRoutes(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := Idempotency(store, testLogger())(countingHandler(&calls))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if calls != 1 {
		t.Fatalf("expected handler to run, calls=%d", calls)
	}
	if len(store.entries) != 0 {
		t.Fatalf("expected no stored records, got %d", len(store.entries))
	}
}

func TestIdempotencyRequiresHeaderOnMatchedRoute(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := Idempotency(store, testLogger())(countingHandler(&calls))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if calls != 0 {
		t.Fatalf("handler should not run without key, calls=%d", calls)
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := Idempotency(store, testLogger())(countingHandler(&calls))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"shipping_method":"standard"}`))
		req.Header.Set("Idempotency-Key", "abc-123")
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp
	}

	first := send()
	second := send()

	if calls != 1 {
		t.Fatalf("expected handler to run exactly once, calls=%d", calls)
	}
	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("expected both 201, got %d and %d", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replayed body differs: %q vs %q", first.Body.String(), second.Body.String())
	}
	if second.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("replay lost content type")
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := Idempotency(store, testLogger())(countingHandler(&calls))

	first := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"shipping_method":"standard"}`))
	first.Header.Set("Idempotency-Key", "abc-123")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, first)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"shipping_method":"express"}`))
	second.Header.Set("Idempotency-Key", "abc-123")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, second)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d body %s", resp.Code, resp.Body.String())
	}
	if calls != 1 {
		t.Fatalf("expected handler to run exactly once, calls=%d", calls)
	}
}

func TestIdempotencyTTLsByRoute(t *testing.T) {
	cases := []struct {
		method  string
		pattern string
		want    time.Duration
		matched bool
	}{
		{http.MethodPost, "/api/v1/cart/items", defaultIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/cart/merge", defaultIdempotencyTTL, true},
		{http.MethodPost, "/api/admin/v1/orders/{orderId}/status", defaultIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/orders", criticalIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/orders/{orderId}/cancel", criticalIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/payments/process", criticalIdempotencyTTL, true},
		{http.MethodGet, "/api/v1/orders", 0, false},
		{http.MethodPost, "/api/v1/cart", 0, false},
	}

	for _, tc := range cases {
		ttl, ok := routeTTL(tc.method, tc.pattern)
		if ok != tc.matched {
			t.Fatalf("%s %s: matched=%v want %v", tc.method, tc.pattern, ok, tc.matched)
		}
		if ttl != tc.want {
			t.Fatalf("%s %s: ttl=%v want %v", tc.method, tc.pattern, ttl, tc.want)
		}
	}
}

func TestIdempotencyPassesThroughWithoutStore(t *testing.T) {
	calls := 0
	handler := Idempotency(nil, testLogger())(countingHandler(&calls))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if calls != 1 {
		t.Fatalf("expected passthrough without store, calls=%d", calls)
	}
}

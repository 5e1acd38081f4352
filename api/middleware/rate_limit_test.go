package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: make(map[string]int64)}
}

func (f *fakeRateStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func lookupRequest(ip, email string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/payment-intents/lookup-email", strings.NewReader(`{"email":"`+email+`"}`))
	req.RemoteAddr = ip + ":5678"
	return req
}

func TestRateLimitPreservesBody(t *testing.T) {
	policy := NewRateLimitPolicy("lookup", time.Minute, 5, 5)
	handler := RateLimit(policy, newFakeRateStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if !strings.Contains(string(body), "member@cmda.test") {
			t.Fatalf("unexpected body: %s", body)
		}
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, lookupRequest("1.2.3.4", "member@cmda.test"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestRateLimitBlocksPerEmailAcrossIPs(t *testing.T) {
	policy := NewRateLimitPolicy("lookup", time.Minute, 100, 2)
	handler := RateLimit(policy, newFakeRateStore(), nil)(okHandler())

	codes := make([]int, 0, 3)
	for i, ip := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		email := "Member@CMDA.test"
		if i == 1 {
			email = " member@cmda.test "
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, lookupRequest(ip, email))
		codes = append(codes, resp.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}
}

func TestRateLimitBlocksPerIP(t *testing.T) {
	policy := NewRateLimitPolicy("lookup", time.Minute, 1, 0)
	handler := RateLimit(policy, newFakeRateStore(), nil)(okHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, lookupRequest("9.9.9.9", "a@cmda.test"))
	second := httptest.NewRecorder()
	req := lookupRequest("10.0.0.1", "b@cmda.test")
	req.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")
	handler.ServeHTTP(second, req)

	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 200 then 429, got %d then %d", first.Code, second.Code)
	}
}

func TestRateLimitFailsOpenWhenStoreErrors(t *testing.T) {
	store := newFakeRateStore()
	store.err = errors.New("redis down")
	handler := RateLimit(NewRateLimitPolicy("lookup", time.Minute, 1, 1), store, nil)(okHandler())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, lookupRequest("1.2.3.4", "member@cmda.test"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected request to pass, got %d", resp.Code)
	}
}

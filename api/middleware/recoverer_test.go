package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/logger"
)

func TestRecovererWritesInternalEnvelope(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	boom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil intent")
	})

	resp := httptest.NewRecorder()
	Recoverer(logg)(boom).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/payment-intents", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "nil intent") {
		t.Fatalf("panic value leaked to client: %s", resp.Body.String())
	}
	if !strings.Contains(buf.String(), `"path":"/payment-intents"`) {
		t.Fatalf("expected path in log entry: %s", buf.String())
	}
}

func TestRecovererReraisesAbort(t *testing.T) {
	abort := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	})
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	Recoverer(nil)(abort).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestRequestIDEchoesCleanHeader(t *testing.T) {
	var seen string
	h := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(requestIDHeader)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-abc-123")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if got := resp.Header().Get(requestIDHeader); got != "req-abc-123" {
		t.Fatalf("expected echoed id, got %q", got)
	}
	if seen != "req-abc-123" {
		t.Fatalf("downstream saw %q", seen)
	}
}

func TestRequestIDReplacesUnsafeHeader(t *testing.T) {
	for _, raw := range []string{"", "has space", strings.Repeat("x", maxRequestIDLen+1)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIDHeader, raw)
		resp := httptest.NewRecorder()
		RequestID(nil)(okHandler()).ServeHTTP(resp, req)

		got := resp.Header().Get(requestIDHeader)
		if got == "" || got == raw {
			t.Fatalf("expected minted id for %q, got %q", raw, got)
		}
	}
}

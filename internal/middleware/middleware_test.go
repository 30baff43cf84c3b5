package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"catalog-be/internal/logger"
	"catalog-be/internal/metrics"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORS(t *testing.T) {
	handler := CORS("http://localhost:3000")(okHandler)

	t.Run("OPTIONS request", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/products", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PUT")
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
	})

	t.Run("Normal request", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Empty origin allows all", func(t *testing.T) {
		w := httptest.NewRecorder()
		CORS("")(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestResolveRateTier(t *testing.T) {
	tests := []struct {
		method string
		path   string
		tier   string
	}{
		{http.MethodPost, "/upload", "strict"},
		{http.MethodPost, "/api/upload", "strict"},
		{http.MethodGet, "/products", "read"},
		{http.MethodOptions, "/upload", "read"},
		{http.MethodPost, "/products", "write"},
		{http.MethodDelete, "/products/abc", "write"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			_, _, tier := resolveRateTier(httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.tier, tier)
		})
	}
}

func TestClientIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	assert.Equal(t, "ip:10.0.0.7", clientIdentity(req))

	req.Header.Set("X-Device-ID", "dev-1")
	assert.Equal(t, "device:dev-1", clientIdentity(req))

	bare := httptest.NewRequest(http.MethodGet, "/", nil)
	bare.RemoteAddr = "unix-socket"
	assert.Equal(t, "ip:unix-socket", clientIdentity(bare))
}

func TestRateLimiter_StrictTierBlocks(t *testing.T) {
	reg := metrics.NewRegistry()
	rl := NewRateLimiter(reg)
	handler := rl.Middleware(okHandler)

	send := func(method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		req.RemoteAddr = "192.0.2.1:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < burstStrict; i++ {
		assert.Equal(t, http.StatusOK, send(http.MethodPost, "/upload"), "request %d", i)
	}
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodPost, "/upload"))
	assert.Equal(t, uint64(1), reg.Counter(metrics.RateLimited).Load())

	// Reads draw from their own bucket.
	assert.Equal(t, http.StatusOK, send(http.MethodGet, "/products"))
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := NewRateLimiter(nil)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	rl.getVisitor("ip:a:read", limitRead, burstRead)
	rl.getVisitor("ip:b:read", limitRead, burstRead)

	clock = clock.Add(2 * time.Minute)
	rl.getVisitor("ip:b:read", limitRead, burstRead)

	clock = clock.Add(2 * time.Minute)
	assert.Equal(t, 1, rl.Sweep())
	assert.Len(t, rl.visitors, 1)
	assert.Contains(t, rl.visitors, "ip:b:read")
}

func TestRateLimiter_CleanupStops(t *testing.T) {
	rl := NewRateLimiter(nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		rl.Cleanup(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup did not stop after cancel")
	}
}

func TestRecoverer(t *testing.T) {
	core, observed := observer.New(zapcore.ErrorLevel)
	defer logger.Replace(zap.New(core))()

	handler := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Internal server error"}`, w.Body.String())
	assert.Equal(t, 1, observed.FilterMessage("panic in handler").Len())
}

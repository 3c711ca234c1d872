package middleware

import (
	"net/http"
	"net/http/httptest"
	"staymate/pkg/clock"
	"staymate/pkg/logger"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserRateLimiter_SlidingWindow(t *testing.T) {
	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	rl := NewUserRateLimiter(2, time.Minute, clk, logger.Discard())
	defer rl.Stop()

	assert.True(t, rl.Allow("user:a"))
	assert.True(t, rl.Allow("user:a"))
	assert.False(t, rl.Allow("user:a"))
	assert.True(t, rl.Allow("user:b"))

	clk.Advance(time.Minute)
	assert.True(t, rl.Allow("user:a"))
}

func TestRateLimit_OnlyMutations(t *testing.T) {
	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	rl := NewUserRateLimiter(1, time.Minute, clk, logger.Discard())
	defer rl.Stop()
	h := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(method string) int {
		req := httptest.NewRequest(method, "/api/v1/messages", nil)
		req = req.WithContext(WithUser(req.Context(), "u1", "Ana"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send(http.MethodPost))
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodPost))
	assert.Equal(t, http.StatusOK, send(http.MethodGet))
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRequestTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
			w.WriteHeader(http.StatusOK)
		}
	})
	h := RequestTimeout(20*time.Millisecond, IsStreamRequest)(slow)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/channels/x/messages", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestTimeout_StreamExempt(t *testing.T) {
	var hasDeadline bool
	h := RequestTimeout(time.Millisecond, IsStreamRequest)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/channels/x/stream", nil))
	assert.False(t, hasDeadline)
}

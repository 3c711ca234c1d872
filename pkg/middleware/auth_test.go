package middleware

import (
	"net/http"
	"net/http/httptest"
	"staymate/pkg/logger"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, method jwt.SigningMethod, secret []byte, subject string, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(method, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
		Name: "Ana",
	})
	s, err := token.SignedString(secret)
	require.NoError(t, err)
	return s
}

func TestAuthenticate(t *testing.T) {
	var gotUser, gotName string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotName = UserNameFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := Authenticate(testSecret, logger.Discard(), func(r *http.Request) bool {
		return r.URL.Path == "/public"
	})(next)

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{"valid token", "/api/v1/x", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, "u1", time.Hour), http.StatusNoContent, "u1"},
		{"missing token", "/api/v1/x", "", http.StatusUnauthorized, ""},
		{"wrong secret", "/api/v1/x", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), "u1", time.Hour), http.StatusUnauthorized, ""},
		{"expired", "/api/v1/x", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, "u1", -time.Minute), http.StatusUnauthorized, ""},
		{"wrong algorithm", "/api/v1/x", "Bearer " + signToken(t, jwt.SigningMethodHS512, testSecret, "u1", time.Hour), http.StatusUnauthorized, ""},
		{"subject with separator", "/api/v1/x", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, "u:1", time.Hour), http.StatusUnauthorized, ""},
		{"public path", "/public", "", http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser, gotName = "", ""
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantUser, gotUser)
			if tt.wantUser != "" {
				assert.Equal(t, "Ana", gotName)
			}
		})
	}
}

func TestAuthenticate_StreamQueryToken(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, testSecret, "u2", time.Hour)
	var gotUser string
	h := Authenticate(testSecret, logger.Discard(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/channels/lobby:hotel:1/stream?access_token="+token, nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "u2", gotUser)

	gotUser = ""
	rec := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/channels/lobby:hotel:1/messages?access_token="+token, nil)
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, gotUser)
}

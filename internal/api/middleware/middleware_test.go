package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func sign(t *testing.T, claims jwt.MapClaims, key []byte) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func echoRole() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetUserID(r.Context()) + "|" + GetRole(r.Context())))
	})
}

func TestAuthRoleClaim(t *testing.T) {
	h := Auth(secret)(echoRole())

	cases := []struct {
		name   string
		header string
		query  string
		status int
		body   string
	}{
		{"string role", "Bearer " + sign(t, jwt.MapClaims{"sub": "u1", "role": "8"}, secret), "", http.StatusOK, "u1|8"},
		{"numeric role", "Bearer " + sign(t, jwt.MapClaims{"sub": "u2", "role": 5}, secret), "", http.StatusOK, "u2|5"},
		{"no role", "Bearer " + sign(t, jwt.MapClaims{"sub": "u3"}, secret), "", http.StatusOK, "u3|"},
		{"query token", "", sign(t, jwt.MapClaims{"sub": "u4", "role": "7"}, secret), http.StatusOK, "u4|7"},
		{"wrong key", "Bearer " + sign(t, jwt.MapClaims{"sub": "u1"}, []byte("other")), "", http.StatusUnauthorized, ""},
		{"expired", "Bearer " + sign(t, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Hour).Unix()}, secret), "", http.StatusUnauthorized, ""},
		{"missing", "", "", http.StatusUnauthorized, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			target := "/"
			if c.query != "" {
				target += "?access_token=" + c.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, c.status, rr.Code)
			if c.body != "" {
				assert.Equal(t, c.body, rr.Body.String())
			}
		})
	}
}

func TestAuthDisabledWithoutSecret(t *testing.T) {
	rr := httptest.NewRecorder()
	Auth(nil)(echoRole()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "|", rr.Body.String())
}

func TestRequestIDPropagates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rr.Header().Get("X-Request-ID"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestRecoveryReturns500(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rr := httptest.NewRecorder()
	require.NotPanics(t, func() { h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil)) })
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestVisitorsLimitPerIP(t *testing.T) {
	v := &visitors{entries: map[string]*limiterEntry{}, rps: 1, burst: 2}
	now := time.Now()
	assert.True(t, v.allow("a", now))
	assert.True(t, v.allow("a", now))
	assert.False(t, v.allow("a", now))
	assert.True(t, v.allow("b", now))
	assert.True(t, v.allow("a", now.Add(time.Second)))

	v.sweep(now.Add(time.Hour), 10*time.Minute)
	assert.Empty(t, v.entries)
}

func TestGetIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", getIP(req))
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", getIP(req))
}

func TestCORSPreflight(t *testing.T) {
	called := false
	h := CORS(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.False(t, called)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

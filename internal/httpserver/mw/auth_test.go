package mw

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type authFunc func(token string) (string, error)

func (f authFunc) Authenticate(token string) (string, error) { return f(token) }

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		token  string
		ok     bool
	}{
		{name: "标准格式", header: "Bearer abc.def", token: "abc.def", ok: true},
		{name: "大小写不敏感", header: "bearer abc", token: "abc", ok: true},
		{name: "多余空格", header: "  Bearer   abc  ", token: "abc", ok: true},
		{name: "空", header: "", ok: false},
		{name: "只有 scheme", header: "Bearer", ok: false},
		{name: "Basic 认证", header: "Basic dXNlcjpwYXNz", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, ok := bearerToken(tt.header)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.token, token)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	auth := authFunc(func(token string) (string, error) {
		if token == "good" {
			return "user-1", nil
		}
		return "", errors.New("invalid")
	})

	var seen string
	h := RequireAuth(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	req.Header.Set("Authorization", "Bearer bad")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, seen)

	req.Header.Set("Authorization", "Bearer good")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", seen)
}

func TestRateLimit_Disabled(t *testing.T) {
	calls := 0
	h := RateLimit(RateLimitConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))

	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 20, calls)
}

func TestRateLimit_PerIP(t *testing.T) {
	h := RateLimit(RateLimitConfig{PerSecond: 0.01, Burst: 2})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000"))
}

func TestLog_CapturesStatus(t *testing.T) {
	w := &statusWriter{ResponseWriter: httptest.NewRecorder()}
	_, _ = w.Write([]byte("hello"))
	assert.Equal(t, http.StatusOK, w.status)
	assert.Equal(t, 5, w.bytes)

	w = &statusWriter{ResponseWriter: httptest.NewRecorder()}
	w.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusTeapot, w.status)
}

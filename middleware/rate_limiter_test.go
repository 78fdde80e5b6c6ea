package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lvt17/planex-be/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIPGeneric_DirectRemote(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.local/", nil)
	req.RemoteAddr = "203.0.113.5:54321"
	ip := clientIPGeneric(req, nil)
	if ip != "203.0.113.5" {
		t.Fatalf("expected direct remote IP, got %s", ip)
	}
}

func TestClientIPGeneric_TrustedProxyXFF(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.local/", nil)
	req.RemoteAddr = "198.51.100.10:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 198.51.100.10")
	ip := clientIPGeneric(req, []string{"198.51.100.10"})
	if ip != "203.0.113.7" {
		t.Fatalf("expected X-Forwarded-For first value, got %s", ip)
	}
}

func TestClientIPGeneric_TrustedCIDR(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.local/", nil)
	req.RemoteAddr = "10.1.2.3:443"
	req.Header.Set("X-Real-IP", "203.0.113.9")
	ip := clientIPGeneric(req, []string{"10.0.0.0/8"})
	if ip != "203.0.113.9" {
		t.Fatalf("expected X-Real-IP value, got %s", ip)
	}
}

func TestClientIPGeneric_UntrustedProxyIgnoresXFF(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.local/", nil)
	req.RemoteAddr = "198.51.100.11:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.8, 198.51.100.11")
	ip := clientIPGeneric(req, []string{"198.51.100.10"})
	if ip != "198.51.100.11" {
		t.Fatalf("expected remote IP when proxy untrusted, got %s", ip)
	}
}

func TestIPRateLimiter_BlocksAfterMax(t *testing.T) {
	l := NewIPRateLimiter(2, time.Minute)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
		req.RemoteAddr = "203.0.113.20:1000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
		if i == 2 {
			assert.NotEmpty(t, rr.Header().Get("Retry-After"))
			assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	// a different client has its own budget
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
	req.RemoteAddr = "203.0.113.21:1000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestIPRateLimiter_WindowExpiry(t *testing.T) {
	base := time.Now().UnixNano()
	clock := base
	orig := nowUnix
	nowUnix = func() int64 { return clock }
	defer func() { nowUnix = orig }()

	l := &IPRateLimiter{maxReq: 1, window: time.Minute, state: make(map[string]timestamps)}
	ok, _, _ := l.Allow("1.2.3.4")
	require.True(t, ok)
	ok, _, retry := l.Allow("1.2.3.4")
	require.False(t, ok)
	assert.Equal(t, 60, retry)

	clock = base + int64(61*time.Second)
	ok, _, _ = l.Allow("1.2.3.4")
	assert.True(t, ok)

	clock = base + int64(10*time.Minute)
	l.sweep()
	assert.Empty(t, l.state)
}

func TestUserRateLimiter_PenaltyEscalates(t *testing.T) {
	clock := time.Now().UnixNano()
	orig := nowUnix
	nowUnix = func() int64 { return clock }
	defer func() { nowUnix = orig }()

	l := &UserRateLimiter{
		state:    make(map[string]timestamps),
		penalty:  make(map[string]penaltyInfo),
		window:   time.Minute,
		maxRead:  5,
		maxWrite: 1,
	}
	ok, _, _ := l.Allow(7, "write")
	require.True(t, ok)
	ok, _, retry := l.Allow(7, "write")
	require.False(t, ok)
	assert.Equal(t, 60, retry)

	// still inside the penalty
	ok, _, _ = l.Allow(7, "write")
	assert.False(t, ok)

	// reads use their own budget
	ok, _, _ = l.Allow(7, "read")
	assert.True(t, ok)

	clock += int64(2 * time.Minute)
	ok, _, _ = l.Allow(7, "write")
	require.True(t, ok)
	ok, _, retry = l.Allow(7, "write")
	require.False(t, ok)
	assert.Equal(t, 300, retry)
}

func TestUserRateLimiter_AdminBypass(t *testing.T) {
	l := NewUserRateLimiter(1, 1, 60)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/tasks", nil)
		ctx := context.WithValue(req.Context(), utils.UserIDKey, uint(1))
		ctx = context.WithValue(ctx, utils.UserRoleKey, "admin")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req.WithContext(ctx))
		assert.Equal(t, http.StatusNoContent, rr.Code)
	}
}

func TestRouteCategory(t *testing.T) {
	cases := map[string]string{
		"GET /v1/tasks":                "read",
		"POST /v1/tasks":               "write",
		"PUT /v1/users/me/avatar":      "upload",
		"POST /v1/teams/3/chat/image":  "upload",
		"GET /v1/admin/badges":         "admin",
		"DELETE /v1/notifications/all": "write",
	}
	for in, want := range cases {
		var method, path string
		for i := range in {
			if in[i] == ' ' {
				method, path = in[:i], in[i+1:]
				break
			}
		}
		req := httptest.NewRequest(method, path, nil)
		assert.Equal(t, want, routeCategory(req), in)
	}
}

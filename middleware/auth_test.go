package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/lvt17/planex-be/config"
	"github.com/lvt17/planex-be/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTestConfig(t *testing.T) {
	t.Helper()
	cfg := *config.Get()
	cfg.JWTSecret = "middleware-test-secret"
	cfg.JWTAud = ""
	cfg.JWTIss = ""
	config.Set(&cfg)
	t.Cleanup(func() { config.Set(nil) })
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := utils.GetUserID(r)
		w.Header().Set("X-User", strconv.FormatUint(uint64(uid), 10))
		w.Header().Set("X-Role", utils.GetUserRole(r))
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	useTestConfig(t)
	rr := httptest.NewRecorder()
	AuthMiddleware(echoUser()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/tasks", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	useTestConfig(t)
	tok, err := utils.GenerateAccessToken(42, "admin")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	AuthMiddleware(echoUser()).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "42", rr.Header().Get("X-User"))
	assert.Equal(t, "admin", rr.Header().Get("X-Role"))
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	useTestConfig(t)
	tok, err := utils.GenerateAccessTokenWithExpiry(1, "user", -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	AuthMiddleware(echoUser()).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "Session expired")
}

func TestAuthMiddleware_RejectsResetToken(t *testing.T) {
	useTestConfig(t)
	tok, err := utils.GeneratePasswordResetToken(5)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	AuthMiddleware(echoUser()).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestTimeoutMiddleware_SkipsStreams(t *testing.T) {
	useTestConfig(t)
	var hasDeadline bool
	h := TimeoutMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/teams/1/chat/stream", nil))
	assert.False(t, hasDeadline)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/teams/1/chat", nil))
	assert.True(t, hasDeadline)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RequestIDMiddleware(RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

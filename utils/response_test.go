package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lvt17/planex-be/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError_StatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{services.NotFound("task not found"), http.StatusNotFound, "task not found"},
		{services.Forbidden("leaders only"), http.StatusForbidden, "leaders only"},
		{services.Invalid("name is required"), http.StatusBadRequest, "name is required"},
		{services.Conflict("already a member"), http.StatusConflict, "already a member"},
		{services.Expired("invite expired"), http.StatusGone, "invite expired"},
		{services.Unauthorized("invalid credentials"), http.StatusUnauthorized, "invalid credentials"},
		{services.Integration("storage upload", errors.New("dial tcp")), http.StatusBadGateway, "Upstream service unavailable"},
		{fmt.Errorf("wrapped: %w", services.NotFound("x")), http.StatusNotFound, "wrapped: x"},
		{errors.New("db exploded"), http.StatusInternalServerError, "Server error"},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		WriteError(rr, httptest.NewRequest(http.MethodGet, "/v1/tasks", nil), tc.err)
		assert.Equal(t, tc.status, rr.Code, tc.err.Error())

		var body APIResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.Equal(t, tc.msg, body.Message)
	}
}

func TestWriteError_Locked(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil), &services.LockedError{RetryAfter: 59 * time.Second})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
}

func TestPathUint(t *testing.T) {
	rr := httptest.NewRecorder()
	_, ok := PathUint(rr, httptest.NewRequest(http.MethodGet, "/", nil), "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/lvt17/planex-be/services"

	"go.uber.org/zap"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteError maps service errors to status codes. Unknown errors are logged
// and answered with a generic 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var locked *services.LockedError
	if errors.As(err, &locked) {
		secs := int(locked.RetryAfter.Seconds()) + 1
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		WriteJSON(w, http.StatusTooManyRequests, APIResponse{Success: false, Message: locked.Error(), Data: map[string]interface{}{"retry_after_seconds": secs}})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, services.ErrExpired):
		status = http.StatusGone
	case errors.Is(err, services.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrIntegration):
		status = http.StatusBadGateway
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		rid, _ := r.Context().Value(RequestIDKey).(string)
		zap.L().Error("request failed", zap.String("request_id", rid), zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		msg = "Server error"
	} else if status == http.StatusBadGateway {
		zap.L().Warn("upstream failure", zap.String("path", r.URL.Path), zap.Error(err))
		msg = "Upstream service unavailable"
	}
	WriteJSON(w, status, APIResponse{Success: false, Message: msg})
}

// GetStringValue returns the value of a nullable string pointer or empty string if nil
func GetStringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

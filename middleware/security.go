package middleware

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lvt17/planex-be/config"
	"github.com/lvt17/planex-be/utils"

	"go.uber.org/zap"
)

// generateRequestID creates a short random request id
func generateRequestID() string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(b)
}

func requestID(r *http.Request) string {
	rid, _ := r.Context().Value(utils.RequestIDKey).(string)
	return rid
}

// isStream reports whether the request opens a long-lived event stream.
func isStream(r *http.Request) bool {
	return strings.HasSuffix(r.URL.Path, "/stream")
}

// SecurityHeadersMiddleware sets the static security headers. CORS is handled
// by gorilla/handlers on the router.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg := config.Get()
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		if !cfg.IsDevelopment() {
			w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'self';")
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// responseRecorder wraps ResponseWriter to capture status code. It forwards
// Flush and Hijack so event streams keep working behind it.
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	return h.Hijack()
}

// RequestLogMiddleware writes one structured log line per request.
func RequestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		fields := []zap.Field{
			zap.String("request_id", requestID(r)),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("ip", clientIP(r)),
		}
		switch {
		case rec.status >= 500:
			zap.L().Error("request", fields...)
		case rec.status >= 400:
			zap.L().Warn("request", fields...)
		default:
			zap.L().Info("request", fields...)
		}
	})
}

// RequestIDMiddleware injects a request id into context and response headers
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" || len(rid) > 64 {
			rid = generateRequestID()
		}
		w.Header().Set("X-Request-ID", rid)
		ctx := context.WithValue(r.Context(), utils.RequestIDKey, rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TimeoutMiddleware cancels the request context after REQ_TIMEOUT_SEC.
// Event streams are exempt.
func TimeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timeout := config.Get().RequestTimeout
		if timeout <= 0 || isStream(r) {
			next.ServeHTTP(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RecoveryMiddleware recovers from panics, logs securely and returns generic 500
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				rid := requestID(r)
				zap.L().Error("panic recovered",
					zap.String("request_id", rid),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{
					Success: false,
					Message: "Internal server error",
					Data:    map[string]string{"request_id": rid},
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// In-memory route timings and per-IP auth failure counters.
var (
	metricsMu  sync.Mutex
	routeTimes = make(map[string][]time.Duration)

	suspiciousMu sync.Mutex
	suspicious   = make(map[string]*strike)
)

type strike struct {
	count int
	since time.Time
}

const (
	slowRequest         = 800 * time.Millisecond
	suspiciousThreshold = 30
	suspiciousWindow    = 10 * time.Minute
)

// MetricsMiddleware keeps the last 100 timings per route, logs slow requests
// and counts 401/403 answers per client IP.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isStream(r) {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		key := r.Method + " " + r.URL.Path
		metricsMu.Lock()
		arr := routeTimes[key]
		if len(arr) >= 100 {
			arr = arr[1:]
		}
		routeTimes[key] = append(arr, elapsed)
		metricsMu.Unlock()

		if elapsed > slowRequest {
			zap.L().Warn("slow request", zap.String("route", key), zap.Duration("elapsed", elapsed), zap.String("request_id", requestID(r)))
		}
		if rec.status == http.StatusUnauthorized || rec.status == http.StatusForbidden {
			recordStrike(clientIP(r), time.Now())
		}
	})
}

// RouteTimings returns the average duration per route seen so far.
func RouteTimings() map[string]time.Duration {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	out := make(map[string]time.Duration, len(routeTimes))
	for k, arr := range routeTimes {
		var total time.Duration
		for _, d := range arr {
			total += d
		}
		if len(arr) > 0 {
			out[k] = total / time.Duration(len(arr))
		}
	}
	return out
}

func recordStrike(ip string, now time.Time) {
	suspiciousMu.Lock()
	defer suspiciousMu.Unlock()
	s := suspicious[ip]
	if s == nil || now.Sub(s.since) > suspiciousWindow {
		suspicious[ip] = &strike{count: 1, since: now}
		return
	}
	s.count++
}

// SuspiciousActivityMiddleware answers 429 to IPs that keep hitting auth
// failures inside the window.
func SuspiciousActivityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		now := time.Now()
		suspiciousMu.Lock()
		s := suspicious[ip]
		blocked := s != nil && now.Sub(s.since) <= suspiciousWindow && s.count >= suspiciousThreshold
		if s != nil && now.Sub(s.since) > suspiciousWindow {
			delete(suspicious, ip)
		}
		suspiciousMu.Unlock()
		if blocked {
			utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{Success: false, Message: "Too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

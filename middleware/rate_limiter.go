package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lvt17/planex-be/config"
	"github.com/lvt17/planex-be/utils"
)

// In-memory sliding-window rate limiters with trusted-proxy support,
// progressive penalties and periodic cleanup.

type timestamps []int64 // unix nanos

var nowUnix = func() int64 { return time.Now().UnixNano() }

const cleanupTick = time.Minute

// prune drops timestamps older than cutoff.
func prune(arr timestamps, cutoff int64) timestamps {
	var filtered timestamps
	for _, ts := range arr {
		if ts >= cutoff {
			filtered = append(filtered, ts)
		}
	}
	return filtered
}

// retryAfterSeconds is how long until the oldest entry leaves the window, at least 1.
func retryAfterSeconds(arr timestamps, window time.Duration, now int64) int {
	if len(arr) == 0 {
		return int(window.Seconds())
	}
	oldest := arr[0]
	for _, ts := range arr {
		if ts < oldest {
			oldest = ts
		}
	}
	secs := int((oldest + int64(window) - now) / int64(time.Second))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func tooManyRequests(w http.ResponseWriter, retryAfter int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{
		Success: false,
		Message: "Too many requests, please try again later",
		Data:    map[string]interface{}{"retry_after_seconds": retryAfter},
	})
}

func setLimitHeaders(w http.ResponseWriter, limit, count int) {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
}

// clientIP returns the caller address, honoring X-Forwarded-For / X-Real-IP
// only when the direct peer is one of TRUSTED_PROXIES.
func clientIP(r *http.Request) string {
	var trusted []string
	if cfg := config.Get(); cfg != nil {
		trusted = cfg.TrustedProxies
	}
	return clientIPGeneric(r, trusted)
}

// clientIPGeneric returns the client IP string. If trustedCIDR is provided,
// forwarding headers are honored when the remote addr is inside one of the
// trusted CIDRs or IPs.
func clientIPGeneric(r *http.Request, trustedCIDR []string) string {
	remoteHost, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remoteHost = r.RemoteAddr
	}
	remoteIP := net.ParseIP(remoteHost)
	trusted := false
	for _, cidr := range trustedCIDR {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" || remoteIP == nil {
			continue
		}
		if strings.Contains(cidr, "/") {
			if _, ipnet, err := net.ParseCIDR(cidr); err == nil && ipnet.Contains(remoteIP) {
				trusted = true
				break
			}
			continue
		}
		if ip := net.ParseIP(cidr); ip != nil && ip.Equal(remoteIP) {
			trusted = true
			break
		}
	}
	if trusted {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			return strings.TrimSpace(strings.Split(xff, ",")[0])
		}
		if xr := r.Header.Get("X-Real-IP"); xr != "" {
			return strings.TrimSpace(xr)
		}
	}
	return remoteHost
}

// IPRateLimiter allows maxReq requests per window per client IP. Used on the
// unauthenticated auth endpoints.
type IPRateLimiter struct {
	maxReq int
	window time.Duration
	mu     sync.Mutex
	state  map[string]timestamps
}

// NewIPRateLimiter creates an IPRateLimiter and starts its cleanup loop.
func NewIPRateLimiter(maxReq int, window time.Duration) *IPRateLimiter {
	l := &IPRateLimiter{
		maxReq: maxReq,
		window: window,
		state:  make(map[string]timestamps),
	}
	go l.cleanupLoop()
	return l
}

// Allow records a hit for ip and reports whether it is within the limit.
func (l *IPRateLimiter) Allow(ip string) (allowed bool, count int, retryAfter int) {
	now := nowUnix()
	l.mu.Lock()
	defer l.mu.Unlock()
	filtered := append(prune(l.state[ip], now-int64(l.window)), now)
	l.state[ip] = filtered
	count = len(filtered)
	if count > l.maxReq {
		return false, count, retryAfterSeconds(filtered, l.window, now)
	}
	return true, count, 0
}

// Middleware applies per-IP limits and sets rate-limit headers.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, count, retry := l.Allow(clientIP(r))
		setLimitHeaders(w, l.maxReq, count)
		if !ok {
			tooManyRequests(w, retry)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *IPRateLimiter) cleanupLoop() {
	tick := time.NewTicker(cleanupTick)
	defer tick.Stop()
	for range tick.C {
		l.sweep()
	}
}

func (l *IPRateLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := nowUnix() - int64(l.window)
	for k, arr := range l.state {
		if filtered := prune(arr, cutoff); len(filtered) == 0 {
			delete(l.state, k)
		} else {
			l.state[k] = filtered
		}
	}
}

// UserRateLimiter is a per-user sliding window with separate read and write
// budgets and progressive penalties for repeat offenders.
type UserRateLimiter struct {
	mu       sync.Mutex
	state    map[string]timestamps // key = u:<id>:<category>
	penalty  map[string]penaltyInfo
	window   time.Duration
	maxRead  int
	maxWrite int
}

type penaltyInfo struct {
	Level int
	Until int64 // unix nanos
}

// NewUserRateLimiter(maxReqRead, maxReqWrite, windowSec)
func NewUserRateLimiter(maxReqRead, maxReqWrite int, windowSec int) *UserRateLimiter {
	l := &UserRateLimiter{
		state:    make(map[string]timestamps),
		penalty:  make(map[string]penaltyInfo),
		window:   time.Duration(windowSec) * time.Second,
		maxRead:  maxReqRead,
		maxWrite: maxReqWrite,
	}
	go l.cleanupLoop()
	return l
}

func routeCategory(r *http.Request) string {
	switch {
	case strings.HasPrefix(r.URL.Path, "/v1/admin"):
		return "admin"
	case strings.Contains(r.URL.Path, "/avatar") || strings.HasSuffix(r.URL.Path, "/image"):
		return "upload"
	case r.Method == http.MethodGet || r.Method == http.MethodHead:
		return "read"
	default:
		return "write"
	}
}

func (l *UserRateLimiter) limitFor(cat string) int {
	switch cat {
	case "read", "admin":
		return l.maxRead
	case "upload":
		if l.maxWrite > 10 {
			return 10
		}
		return l.maxWrite
	default:
		return l.maxWrite
	}
}

// penaltyFor maps repeat violations to 1, 5, 15 and then 30 minutes.
func penaltyFor(level int) time.Duration {
	switch level {
	case 1:
		return time.Minute
	case 2:
		return 5 * time.Minute
	case 3:
		return 15 * time.Minute
	default:
		return 30 * time.Minute
	}
}

// Allow records a hit and returns whether it passes plus the retry delay in seconds.
func (l *UserRateLimiter) Allow(uid uint, cat string) (bool, int, int) {
	key := "u:" + strconv.FormatUint(uint64(uid), 10) + ":" + cat
	limit := l.limitFor(cat)
	now := nowUnix()

	l.mu.Lock()
	defer l.mu.Unlock()
	pi := l.penalty[key]
	if pi.Until > now {
		return false, limit, int((pi.Until-now)/int64(time.Second)) + 1
	}
	filtered := append(prune(l.state[key], now-int64(l.window)), now)
	l.state[key] = filtered
	if len(filtered) > limit {
		d := penaltyFor(pi.Level + 1)
		l.penalty[key] = penaltyInfo{Level: pi.Level + 1, Until: now + int64(d)}
		return false, len(filtered), int(d.Seconds())
	}
	return true, len(filtered), 0
}

// Middleware must run after AuthMiddleware. Platform admins bypass it.
func (l *UserRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := utils.GetUserID(r)
		if !ok || utils.GetUserRole(r) == "admin" {
			next.ServeHTTP(w, r)
			return
		}
		cat := routeCategory(r)
		allowed, count, retry := l.Allow(uid, cat)
		setLimitHeaders(w, l.limitFor(cat), count)
		if !allowed {
			tooManyRequests(w, retry)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *UserRateLimiter) cleanupLoop() {
	tick := time.NewTicker(cleanupTick)
	defer tick.Stop()
	for range tick.C {
		l.sweep()
	}
}

func (l *UserRateLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := nowUnix()
	cutoff := now - int64(l.window)
	for k, arr := range l.state {
		if filtered := prune(arr, cutoff); len(filtered) == 0 {
			delete(l.state, k)
		} else {
			l.state[k] = filtered
		}
	}
	for k, p := range l.penalty {
		if p.Until < now {
			delete(l.penalty, k)
		}
	}
}

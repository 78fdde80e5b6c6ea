package middleware

import (
	"net/http"

	"github.com/lvt17/planex-be/config"
)

const defaultMaxBody = int64(1 << 20)

// MaxBodyMiddleware caps the request body at MAX_BODY_BYTES.
func MaxBodyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		max := defaultMaxBody
		if cfg := config.Get(); cfg != nil && cfg.MaxBodyBytes > 0 {
			max = cfg.MaxBodyBytes
		}
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, max)
		}
		next.ServeHTTP(w, r)
	})
}

package api

import (
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// RouterOption configures NewRouter.
type RouterOption func(*routerConfig)

type routerConfig struct {
	syncLimiter *rate.Limiter
}

// WithSyncRateLimit bounds POST /sync to rps requests per second with the
// given burst. A non-positive rps disables the limit.
func WithSyncRateLimit(rps float64, burst int) RouterOption {
	return func(c *routerConfig) {
		if rps <= 0 {
			c.syncLimiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.syncLimiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// rateLimit rejects requests beyond l with 429 and a Retry-After hint.
func rateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := l.Reserve()
			if delay := res.Delay(); delay > 0 {
				res.Cancel()
				w.Header().Set("Retry-After", strconv.Itoa(int(delay.Round(time.Second)/time.Second)+1))
				writeJSON(w, http.StatusTooManyRequests, errorBody("sync rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

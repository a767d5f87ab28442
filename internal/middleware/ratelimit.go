// Package middleware holds HTTP middleware that is not tied to the
// handlers package.
package middleware

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/taskboard/apiserver/config"
)

// RateLimiter is a fixed-window request limiter backed by Redis. Every
// client IP gets cfg.Limit requests per cfg.Window; counters live in
// Redis so all instances share one budget. Redis failures fail open:
// dropping traffic because the limiter store is down would be worse
// than briefly not limiting.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRateLimiter constructs a rate limiter from config. A nil client
// disables it.
func NewRateLimiter(client *redis.Client, cfg config.RateLimitConfig) *RateLimiter {
	if cfg.Window < time.Second {
		cfg.Window = time.Minute
	}
	return &RateLimiter{
		client: client,
		limit:  cfg.Limit,
		window: cfg.Window,
	}
}

// Handler wraps next with the rate limit check.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	if l == nil || l.client == nil || l.limit < 1 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := l.windowKey(clientIP(r))

		count, err := l.client.Incr(r.Context(), key).Result()
		if err != nil {
			logrus.WithError(err).Warn("rate limiter unavailable, admitting request")
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			l.client.Expire(r.Context(), key, l.window)
		}
		if count > int64(l.limit) {
			retryAfter := int(l.window / time.Second)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success":    false,
				"statusCode": http.StatusTooManyRequests,
				"message":    "too many requests",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) windowKey(ip string) string {
	bucket := time.Now().Unix() / int64(l.window/time.Second)
	return fmt.Sprintf("ratelimit:%s:%d", ip, bucket)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/internal/ratelimiter"
)

type ownerKey struct{}

// ownerFrom returns the owner stored by requireOwner.
func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

// requireOwner rejects requests without an owner header.
func requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := r.Header.Get(OwnerHeader)
		if owner == "" {
			sendError(w, http.StatusUnauthorized, "missing "+OwnerHeader+" header", "")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, owner)))
	})
}

// rateLimit answers 429 once an owner exhausts their bucket.
func rateLimit(limiter *ratelimiter.KeyedLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner := ownerFrom(r.Context())
			if !limiter.Allow(owner) {
				logger.Debug("API: rate limited owner=%s %s %s", owner, r.Method, r.URL.Path)
				w.Header().Set("Retry-After", "1")
				sendError(w, http.StatusTooManyRequests, "rate limit exceeded", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// limitBody caps the request body size.
func limitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs one line per request through the process logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		reqID := middleware.GetReqID(r.Context())
		if status >= http.StatusInternalServerError {
			logger.Warn("API: %s %s -> %d (%d bytes, %s) req=%s", r.Method, r.URL.Path, status, ww.BytesWritten(), time.Since(start), reqID)
			return
		}
		logger.Debug("API: %s %s -> %d (%d bytes, %s) req=%s", r.Method, r.URL.Path, status, ww.BytesWritten(), time.Since(start), reqID)
	})
}

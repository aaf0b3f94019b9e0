// Package api exposes the drive over HTTP.
//
// Every /api/v1 route is scoped to the owner named by the X-Owner-ID header.
// Authentication is out of scope: the header is trusted as-is and is expected
// to be set by a fronting proxy.
package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/internal/ratelimiter"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/store/object"
)

// Config configures the API server.
type Config struct {
	// Address to listen on. Default: ":8080"
	Address string

	// RequestTimeout bounds each request, including every store call it
	// makes. Default: 30s
	RequestTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown. Default: 30s
	ShutdownTimeout time.Duration

	// MaxRequestBytes caps request bodies. Default: 64MiB
	MaxRequestBytes int64

	// RateLimit throttles requests per owner.
	RateLimit RateLimitConfig
}

// RateLimitConfig is a per-owner token bucket.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

func (c *Config) applyDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.MaxRequestBytes <= 0 {
		c.MaxRequestBytes = 64 << 20
	}
}

// Server serves the drive API.
type Server struct {
	config  Config
	service *drive.Service
	objects object.Store
	signer  *object.URLSigner
	limiter *ratelimiter.KeyedLimiter

	router       *chi.Mux
	server       *http.Server
	shutdownOnce sync.Once
}

// NewServer creates a server in a stopped state.
//
// signer may be nil when the object store presigns natively (S3); the blob
// endpoint is then not mounted.
func NewServer(config Config, service *drive.Service, objects object.Store, signer *object.URLSigner) *Server {
	config.applyDefaults()

	s := &Server{
		config:  config,
		service: service,
		objects: objects,
		signer:  signer,
	}
	if config.RateLimit.Enabled {
		rps := uint(math.Ceil(config.RateLimit.RequestsPerSecond))
		s.limiter = ratelimiter.NewKeyed(max(rps, 1), uint(max(config.RateLimit.Burst, 0)), 0)
	}

	s.router = s.routes()
	s.server = &http.Server{
		Addr:              config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	if s.limiter != nil {
		go s.sweepLimiter(ctx)
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("api server failed: %w", err)
	}
}

// Stop shuts the server down. Safe to call multiple times.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("api server shutdown error: %w", err)
			logger.Error("API server shutdown error: %v", err)
			return
		}
		logger.Info("API server stopped")
	})
	return shutdownErr
}

// sweepLimiter drops idle owner buckets until ctx is done.
func (s *Server) sweepLimiter(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.limiter.Sweep(now); n > 0 {
				logger.Debug("API: dropped %d idle rate limit buckets", n)
			}
		}
	}
}

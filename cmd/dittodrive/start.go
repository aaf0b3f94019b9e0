package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/api"
	"github.com/marmos91/dittodrive/pkg/config"
)

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Serve the drive API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runStart(cmd.Context(), cfg)
		},
	}
}

func runStart(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting DittoDrive %s", Version)

	st, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	collector, err := config.CreateCollector(&cfg.GC, st.objects, st.meta, st.service, st.metrics.GC)
	if err != nil {
		return err
	}
	collector.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := collector.Stop(shutdownCtx); err != nil {
			logger.Warn("GC shutdown: %v", err)
		}
	}()

	server := api.NewServer(api.Config{
		Address:         cfg.Server.Address,
		RequestTimeout:  cfg.Server.RequestTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxRequestBytes: cfg.Drive.MaxUploadBytes + 1<<20,
		RateLimit: api.RateLimitConfig{
			Enabled:           cfg.Server.RateLimit.Enabled,
			RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
			Burst:             cfg.Server.RateLimit.Burst,
		},
	}, st.service, st.objects, st.signer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Start(gctx) })
	if st.metrics.Server != nil {
		g.Go(func() error { return st.metrics.Server.Start(gctx) })
	}

	logger.Info("DittoDrive is running. Press Ctrl+C to stop.")
	err = g.Wait()
	logger.Info("DittoDrive stopped")
	return err
}

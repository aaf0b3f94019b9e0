package main

import (
	"context"
	"fmt"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/config"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/store/metadata"
	"github.com/marmos91/dittodrive/pkg/store/object"
)

// stack is the set of components shared by start and gc.
type stack struct {
	signer  *object.URLSigner
	objects object.Store
	meta    metadata.Store
	service *drive.Service
	metrics *config.MetricsResult
}

func buildStack(ctx context.Context, cfg *config.Config) (*stack, error) {
	st := &stack{metrics: config.InitializeMetrics(cfg)}

	var err error
	if cfg.Object.Type != "s3" {
		if st.signer, err = config.CreateSigner(&cfg.Drive); err != nil {
			return nil, err
		}
	}

	if st.objects, err = config.CreateObjectStore(ctx, &cfg.Object, st.signer, st.metrics.S3); err != nil {
		return nil, fmt.Errorf("failed to create object store: %w", err)
	}
	logger.Info("Object store: %s", cfg.Object.Type)

	if st.meta, err = config.CreateMetadataStore(ctx, &cfg.Metadata); err != nil {
		_ = st.objects.Close()
		return nil, fmt.Errorf("failed to create metadata store: %w", err)
	}
	logger.Info("Metadata store: %s", cfg.Metadata.Type)

	st.service = config.CreateService(&cfg.Drive, st.objects, st.meta, st.metrics.Drive)
	return st, nil
}

func (st *stack) Close() {
	if err := st.meta.Close(); err != nil {
		logger.Error("Failed to close metadata store: %v", err)
	}
	if err := st.objects.Close(); err != nil {
		logger.Error("Failed to close object store: %v", err)
	}
}

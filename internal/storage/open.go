package storage

import (
	"context"
	"fmt"

	"github.com/imagepress/imagepress/pkg/config"
)

// Open constructs the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig) (ArtifactStore, error) {
	switch cfg.Backend {
	case config.BackendLocal, "":
		return NewLocalStorage(cfg.LocalPath), nil
	case config.BackendS3:
		return NewS3Storage(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		})
	case config.BackendGCS:
		return NewGCSStorage(ctx, cfg.Bucket, cfg.Prefix)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

package storage

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/membersync/internal/config"
	"github.com/JonMunkholm/membersync/internal/core"
)

// New returns the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (core.FileStore, error) {
	switch cfg.Backend {
	case "local", "":
		return NewLocal(cfg.LocalDir)
	case "s3":
		return NewS3(ctx, S3Config{
			Bucket: cfg.S3Bucket,
			Region: cfg.S3Region,
			Prefix: cfg.S3Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

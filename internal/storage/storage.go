package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/taskboard/apiserver/config"
)

// ErrDisabled is returned by New when no storage provider is configured.
var ErrDisabled = errors.New("storage: no provider configured")

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// New builds the object storage backend selected by config. Attachment
// endpoints are mounted only when a backend is available.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	switch cfg.Provider {
	case "minio":
		return NewMinioClient(cfg.Minio)
	case "gcs":
		return NewGCSClient(ctx, cfg.GCS)
	case "":
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("storage: unknown provider %q", cfg.Provider)
	}
}

// Package content stores post bodies as markdown text keyed by a path string.
package content

import (
	"context"
	"fmt"
	"path"
	"strings"

	appconfig "maiblog/internal/config"
	apperrors "maiblog/internal/errors"
)

// Store is a keyed text blob store. Read fails with errors.ErrContentMissing when key is absent.
type Store interface {
	Read(ctx context.Context, key string) (string, error)
	Write(ctx context.Context, key, text string) error
}

// ErrInvalidKey is returned for keys that escape the store root.
var ErrInvalidKey = fmt.Errorf("%w: invalid content path", apperrors.ErrContentMissing)

// normalizeKey maps stored content_path values onto store keys.
// "/content/a.md", "content/a.md" and "a.md" all become "a.md".
func normalizeKey(key string) (string, error) {
	key = strings.ReplaceAll(strings.TrimSpace(key), "\\", "/")
	key = strings.TrimLeft(key, "/")
	key = strings.TrimPrefix(key, "content/")
	if key == "" {
		return "", ErrInvalidKey
	}

	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

// Open builds the Store selected by cfg.Backend.
func Open(ctx context.Context, cfg appconfig.ContentConfig) (Store, error) {
	switch cfg.Backend {
	case "", "fs":
		return NewFSStore(cfg.Dir), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("content: s3 backend requires a bucket")
		}
		client, err := NewS3Client(ctx, S3Config{
			Bucket:       cfg.S3Bucket,
			Prefix:       cfg.S3Prefix,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return NewS3Store(client, cfg.S3Bucket, cfg.S3Prefix), nil
	default:
		return nil, fmt.Errorf("content: unsupported backend %q", cfg.Backend)
	}
}

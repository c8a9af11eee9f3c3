//go:build gcp

package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
)

// GCSSink stores episodes in a Google Cloud Storage bucket under their
// content hash. Credentials come from Application Default Credentials.
type GCSSink struct {
	client *storage.Client
	bucket string
	prefix string
}

type GCSConfig struct {
	Bucket string
	Prefix string
}

func NewGCSSink(ctx context.Context, cfg GCSConfig) (*GCSSink, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive: create gcs client: %w", err)
	}
	return &GCSSink{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *GCSSink) Store(ctx context.Context, data []byte) (string, error) {
	sum := sha256.Sum256(data)
	hexSum := hex.EncodeToString(sum[:])
	ref := "sha256:" + hexSum

	obj := s.client.Bucket(s.bucket).Object(s.prefix + hexSum + ".json")
	if _, err := obj.Attrs(ctx); err == nil {
		return ref, nil
	} else if !errors.Is(err, storage.ErrObjectNotExist) {
		return "", fmt.Errorf("archive: gcs attrs: %w", err)
	}

	w := obj.NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("archive: gcs write: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("archive: gcs commit: %w", err)
	}
	return ref, nil
}

func (s *GCSSink) Close() error {
	return s.client.Close()
}

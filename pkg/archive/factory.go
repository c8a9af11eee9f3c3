package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// SinkType selects the archive backend.
type SinkType string

const (
	SinkTypeFS  SinkType = "fs"
	SinkTypeS3  SinkType = "s3"
	SinkTypeGCS SinkType = "gcs"
)

// NewSinkFromEnv builds the archive sink the environment asks for.
//
// Environment variables:
//   - GAUNTLET_ARCHIVE_TYPE: "fs" (default), "s3", or "gcs"
//   - GAUNTLET_DATA_DIR: base directory for the fs sink (default "data")
//
// For S3:
//   - GAUNTLET_ARCHIVE_S3_BUCKET (required)
//   - GAUNTLET_ARCHIVE_S3_REGION or AWS_REGION
//   - GAUNTLET_ARCHIVE_S3_ENDPOINT (optional, MinIO/LocalStack)
//   - GAUNTLET_ARCHIVE_S3_PREFIX (optional)
//
// For GCS (requires the gcp build tag):
//   - GAUNTLET_ARCHIVE_GCS_BUCKET (required)
//   - GAUNTLET_ARCHIVE_GCS_PREFIX (optional)
func NewSinkFromEnv(ctx context.Context) (Sink, error) {
	sinkType := SinkType(os.Getenv("GAUNTLET_ARCHIVE_TYPE"))
	if sinkType == "" {
		sinkType = SinkTypeFS
	}

	switch sinkType {
	case SinkTypeFS:
		return newFSSinkFromEnv()
	case SinkTypeS3:
		return newS3SinkFromEnv(ctx)
	case SinkTypeGCS:
		return newGCSSinkFromEnv(ctx)
	default:
		return nil, fmt.Errorf("archive: unsupported sink type: %s", sinkType)
	}
}

func newFSSinkFromEnv() (Sink, error) {
	dataDir := os.Getenv("GAUNTLET_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	return NewFSSink(filepath.Join(dataDir, "episodes"))
}

func newS3SinkFromEnv(ctx context.Context) (Sink, error) {
	bucket := os.Getenv("GAUNTLET_ARCHIVE_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("archive: GAUNTLET_ARCHIVE_S3_BUCKET is required for the s3 sink")
	}

	region := os.Getenv("GAUNTLET_ARCHIVE_S3_REGION")
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	return NewS3Sink(ctx, S3Config{
		Bucket:   bucket,
		Region:   region,
		Endpoint: os.Getenv("GAUNTLET_ARCHIVE_S3_ENDPOINT"),
		Prefix:   os.Getenv("GAUNTLET_ARCHIVE_S3_PREFIX"),
	})
}

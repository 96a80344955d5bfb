package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/gcsblob" // GCS driver
	_ "gocloud.dev/blob/s3blob"  // S3 driver
)

// Source opens named dataset files from a backing store.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Close() error
}

// SourceConfig configures the dataset backend.
type SourceConfig struct {
	Mode string // "local" | "gcs" | "s3"

	// Local filesystem
	LocalPath string

	// GCS / S3
	Bucket     string
	Prefix     string
	S3Endpoint string // custom endpoint for B2/MinIO/R2
	S3Region   string
}

// ErrInvalidSourceMode is returned for an unrecognized dataset mode.
var ErrInvalidSourceMode = errors.New("invalid dataset source mode")

// NewSource constructs a dataset source based on the configured mode.
func NewSource(cfg SourceConfig) (Source, error) {
	switch cfg.Mode {
	case "local":
		return newLocalSource(cfg.LocalPath)
	case "gcs":
		if cfg.Bucket == "" {
			return nil, errors.New("bucket required for gcs mode")
		}
		return newBlobSource(fmt.Sprintf("gs://%s", cfg.Bucket), cfg.Prefix)
	case "s3":
		if cfg.Bucket == "" {
			return nil, errors.New("bucket required for s3 mode")
		}
		return newBlobSource(s3URL(cfg), cfg.Prefix)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidSourceMode, cfg.Mode)
	}
}

// s3URL builds a gocloud.dev bucket URL for AWS S3 or an S3-compatible store.
func s3URL(cfg SourceConfig) string {
	bucketURL := fmt.Sprintf("s3://%s", cfg.Bucket)

	params := url.Values{}
	if cfg.S3Region != "" {
		params.Set("region", cfg.S3Region)
	}
	if cfg.S3Endpoint != "" {
		params.Set("endpoint", cfg.S3Endpoint)
		params.Set("s3ForcePathStyle", "true")
	}
	if len(params) > 0 {
		bucketURL = bucketURL + "?" + params.Encode()
	}
	return bucketURL
}

// localSource reads dataset files from the local filesystem.
type localSource struct {
	basePath string
}

func newLocalSource(basePath string) (*localSource, error) {
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid local path %s: %w", basePath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local path %s is not a directory", basePath)
	}
	return &localSource{basePath: basePath}, nil
}

// Open implements Source for local files.
func (s *localSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.basePath, filepath.FromSlash(name)))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// Close implements Source.
func (s *localSource) Close() error {
	return nil
}

// blobSource reads dataset files from a GCS or S3 bucket via gocloud.dev.
type blobSource struct {
	bucket *blob.Bucket
	prefix string
}

func newBlobSource(bucketURL, prefix string) (*blobSource, error) {
	bucket, err := blob.OpenBucket(context.Background(), bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucketURL, err)
	}
	return &blobSource{bucket: bucket, prefix: prefix}, nil
}

// Open implements Source for bucket objects.
func (s *blobSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := path.Join(s.prefix, name)
	reader, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", key, err)
	}
	return reader, nil
}

// Close implements Source.
func (s *blobSource) Close() error {
	if s.bucket != nil {
		return s.bucket.Close()
	}
	return nil
}

package objstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/openshelf/openshelf-backend/internal/platform/logger"
)

// Config is the all-or-nothing S3 sub-config. The store is only constructed
// when Complete() holds; otherwise the feature is disabled and callers see a
// nil Store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

func (c Config) Complete() bool {
	return c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != "" && c.Bucket != ""
}

// Store is an S3-compatible object store scoped to a single bucket.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	Remove(ctx context.Context, key string) error
	Bucket() string
}

type store struct {
	log    *logger.Logger
	client *minio.Client
	bucket string
}

func New(log *logger.Logger, cfg Config) (Store, error) {
	if !cfg.Complete() {
		return nil, fmt.Errorf("incomplete object store config")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}
	return &store{
		log:    log.With("platform", "ObjectStore"),
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

func (s *store) Bucket() string { return s.bucket }

// Put uploads the object and returns its s3:// path.
func (s *store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %q: %w", key, err)
	}
	return FormatS3Path(s.bucket, key), nil
}

func (s *store) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign object %q: %w", key, err)
	}
	return u.String(), nil
}

func (s *store) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %q: %w", key, err)
	}
	return nil
}

// FormatS3Path builds the stored path form interpreted at read time.
func FormatS3Path(bucket, key string) string {
	return "s3://" + bucket + "/" + strings.TrimPrefix(key, "/")
}

// ParseS3Path splits an "s3://bucket/key" path. ok is false for anything
// that does not carry both a bucket and a non-empty key.
func ParseS3Path(p string) (bucket, key string, ok bool) {
	const scheme = "s3://"
	if !strings.HasPrefix(p, scheme) {
		return "", "", false
	}
	rest := strings.TrimPrefix(p, scheme)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

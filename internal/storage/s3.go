package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	cfg "github.com/brickworks/listings/internal/config"
)

// ErrAssetUnavailable means the requested asset URL no longer resolves:
// deleted already, or never uploaded. Distinct from transport failures.
var ErrAssetUnavailable = errors.New("asset unavailable")

// AssetStore is the blob-space capability this subsystem consumes: upload
// bytes under a caller-chosen name, fetch bytes back by URL, delete by URL.
// Name uniqueness is the caller's responsibility.
type AssetStore interface {
	// Upload stores data under name and returns its globally addressable URL.
	// Re-uploading the same name overwrites.
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)

	// Fetch returns the bytes behind a URL previously returned by Upload.
	// Returns ErrAssetUnavailable if the URL no longer resolves.
	Fetch(ctx context.Context, url string) ([]byte, error)

	// Delete removes the asset behind the URL. Deleting an already-deleted
	// asset is not an error.
	Delete(ctx context.Context, url string) error
}

// S3Store implements AssetStore for S3-compatible storage
// Works with AWS S3, MinIO, DigitalOcean Spaces, Cloudflare R2, etc.
type S3Store struct {
	client    *s3.Client
	bucket    string
	publicURL string        // Base URL for generating URLs
	opTimeout time.Duration // Per-operation deadline
}

// S3Config holds configuration for S3 storage
type S3Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string // Optional: for S3-compatible services
	OpTimeout time.Duration
}

// New creates an S3-compatible asset store from app config
func New(c *cfg.Config) (AssetStore, error) {
	slog.Info("initializing S3 asset store",
		"bucket", c.S3Bucket,
		"region", c.S3Region,
		"endpoint", c.S3Endpoint,
	)
	return NewS3Store(S3Config{
		Region:    c.S3Region,
		Bucket:    c.S3Bucket,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
		Endpoint:  c.S3Endpoint,
		OpTimeout: c.S3OpTimeout,
	})
}

// NewS3Store creates a new S3 asset store instance
func NewS3Store(cfg S3Config) (*S3Store, error) {
	ctx := context.Background()

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))

	// Add static credentials if provided
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Create S3 client with optional custom endpoint
	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO and some S3-compatible services
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	publicURL := cfg.Endpoint
	if publicURL == "" {
		// Standard AWS S3 URL
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	} else {
		// Custom endpoint (MinIO, DO Spaces, etc.)
		publicURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	opTimeout := cfg.OpTimeout
	if opTimeout == 0 {
		opTimeout = 30 * time.Second
	}

	store := &S3Store{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL,
		opTimeout: opTimeout,
	}

	// Auto-create bucket if it doesn't exist
	if err := store.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return store, nil
}

// ensureBucket checks if bucket exists, creates it if not
func (s *S3Store) ensureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil // Bucket exists
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %q does not exist and could not be created: %w", s.bucket, err)
	}

	slog.Info("created S3 bucket", "bucket", s.bucket)
	return nil
}

// Upload stores data in S3 and returns its public URL
func (s *S3Store) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return s.URL(name), nil
}

// Fetch retrieves the bytes behind a URL previously returned by Upload
func (s *S3Store) Fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	key, err := s.keyFromURL(url)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrAssetUnavailable, url)
		}
		return nil, fmt.Errorf("failed to fetch from S3: %w", err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object body: %w", err)
	}

	return data, nil
}

// Delete removes the asset behind a URL. S3 DeleteObject is a no-op for
// missing keys, which matches the best-effort cleanup contract.
func (s *S3Store) Delete(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	key, err := s.keyFromURL(url)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	return nil
}

// URL returns the public URL for accessing the named asset
func (s *S3Store) URL(name string) string {
	return fmt.Sprintf("%s/%s", s.publicURL, name)
}

// keyFromURL maps a public URL back to its bucket key
func (s *S3Store) keyFromURL(url string) (string, error) {
	prefix := s.publicURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", fmt.Errorf("%w: url %q is outside bucket %q", ErrAssetUnavailable, url, s.bucket)
	}
	return strings.TrimPrefix(url, prefix), nil
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}

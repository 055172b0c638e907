package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the configuration for S3 access.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
}

// NewS3Client builds an S3 client from cfg. Static credentials are used when
// both keys are set, otherwise the default AWS credential chain applies. A
// custom endpoint switches to path-style addressing.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}

// S3Storage wraps LocalStorage and publishes exports to an S3 bucket.
type S3Storage struct {
	*LocalStorage
	client *s3.Client
	cfg    S3Config
}

// Ensure S3Storage implements Storage.
var _ Storage = (*S3Storage)(nil)

// NewS3Storage creates a new S3Storage writing locally under dir.
func NewS3Storage(dir string, cfg S3Config) (*S3Storage, error) {
	local, err := NewLocalStorage(dir)
	if err != nil {
		return nil, err
	}

	client, err := NewS3Client(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	return &S3Storage{
		LocalStorage: local,
		client:       client,
		cfg:          cfg,
	}, nil
}

// Client returns the underlying S3 client so other components can share it.
func (s *S3Storage) Client() *s3.Client {
	return s.client
}

// Publish uploads the file at path and returns its URL.
func (s *S3Storage) Publish(ctx context.Context, key, path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 - path is an export written by this service
	if err != nil {
		return "", fmt.Errorf("open export: %w", err)
	}
	defer func() { _ = f.Close() }()

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if ct := contentType(path); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("upload to S3: %w", err)
	}

	return ObjectURL(s.cfg, key), nil
}

// contentType covers the video containers missing from the stdlib table.
func contentType(path string) string {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".m4v":
		return "video/x-m4v"
	default:
		return mime.TypeByExtension(ext)
	}
}

// ObjectURL returns the URL of key in the configured bucket. Custom
// endpoints use path-style URLs.
func ObjectURL(cfg S3Config, key string) string {
	if cfg.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(cfg.Endpoint, "/"), cfg.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", cfg.Bucket, cfg.Region, key)
}

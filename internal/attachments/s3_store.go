package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrStoreNotConfigured is returned by UnconfiguredStore.
var ErrStoreNotConfigured = errors.New("object storage is not configured")

// S3Config selects an S3-compatible bucket.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	// PublicURL is the base URL objects are served from. When empty the
	// endpoint and bucket are used.
	PublicURL string
}

// S3Store writes attachments to an S3-compatible bucket.
type S3Store struct {
	uploader  *manager.Uploader
	bucket    string
	publicURL string
}

// NewS3Store builds a store from cfg. Static credentials are used when set,
// the default AWS chain otherwise.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		uploader:  manager.NewUploader(client),
		bucket:    cfg.Bucket,
		publicURL: publicBase(cfg),
	}, nil
}

// Put uploads body under key. Params with a chunk size switch the uploader
// to parts of that size.
func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, contentType string, params StorageParams) (string, error) {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		Metadata:    params.Metadata(),
	}, func(u *manager.Uploader) {
		if params.ChunkSize > 0 {
			u.PartSize = params.ChunkSize
		}
	})
	if err != nil {
		return "", err
	}
	return s.publicURL + "/" + key, nil
}

func publicBase(cfg S3Config) string {
	if cfg.PublicURL != "" {
		return strings.TrimRight(cfg.PublicURL, "/")
	}
	if cfg.Endpoint != "" {
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}

// UnconfiguredStore rejects every write. It stands in when no bucket is set
// so text messaging keeps working.
type UnconfiguredStore struct{}

func (UnconfiguredStore) Put(context.Context, string, io.Reader, string, StorageParams) (string, error) {
	return "", ErrStoreNotConfigured
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// R2Config contains configuration for Cloudflare R2 storage.
type R2Config struct {
	AccountID   string
	AccessKeyID string
	SecretKey   string
	BucketName  string
}

// R2Storage implements Storage using Cloudflare R2 through the S3 API.
type R2Storage struct {
	client *s3.Client
	bucket string
}

var _ Storage = (*R2Storage)(nil)

// NewR2Storage creates a new Cloudflare R2 storage implementation.
func NewR2Storage(ctx context.Context, cfg R2Config) (*R2Storage, error) {
	if cfg.AccountID == "" {
		return nil, ErrR2AccountIDRequired
	}
	if cfg.AccessKeyID == "" || cfg.SecretKey == "" {
		return nil, ErrR2CredentialsRequired
	}
	if cfg.BucketName == "" {
		return nil, ErrR2BucketRequired
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &R2Storage{client: client, bucket: cfg.BucketName}, nil
}

func (s *R2Storage) Put(ctx context.Context, key string, content io.Reader, contentType string) error {
	if err := validKey(key); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        content,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to R2: %w", key, err)
	}
	return nil
}

func (s *R2Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrFileNotFound(key)
		}
		return nil, fmt.Errorf("failed to get %s from R2: %w", key, err)
	}
	return result.Body, nil
}

func (s *R2Storage) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete %s from R2: %w", key, err)
	}
	return nil
}

func (s *R2Storage) Exists(ctx context.Context, key string) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check %s in R2: %w", key, err)
	}
	return true, nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

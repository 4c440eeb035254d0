package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type s3Storage struct {
	client   *s3.Client
	bucket   string
	region   string
	endpoint string
}

// NewS3Storage creates an S3-backed implementation of BlobStorage.
// It expects AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_REGION /
// AWS_S3_BUCKET in the environment. Setting S3_ENDPOINT points the client at
// an S3-compatible provider such as Supabase storage.
func NewS3Storage(ctx context.Context) (BlobStorage, error) {
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("AWS credentials are not configured")
	}

	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}
	bucket := os.Getenv("AWS_S3_BUCKET")
	if bucket == "" {
		bucket = "classroom-assistant-audio"
	}
	endpoint := os.Getenv("S3_ENDPOINT")

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &s3Storage{
		client:   client,
		bucket:   bucket,
		region:   region,
		endpoint: endpoint,
	}, nil
}

func (s *s3Storage) Upload(ctx context.Context, r io.Reader, key, contentType string) (string, error) {
	if s == nil || s.client == nil {
		return "", fmt.Errorf("s3 storage is not initialized")
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object to s3: %w", err)
	}

	return s.publicURL(key), nil
}

func (s *s3Storage) Delete(ctx context.Context, fileURL string) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("s3 storage is not initialized")
	}

	key := s.extractKey(fileURL)
	if key == "" {
		return fmt.Errorf("could not extract object key from URL: %s", fileURL)
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from s3: %w", err)
	}

	return nil
}

func (s *s3Storage) Available(ctx context.Context) bool {
	if s == nil || s.client == nil {
		return false
	}

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	return err == nil
}

func (s *s3Storage) publicURL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.endpoint, "/"), s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// extractKey recovers the object key from a public URL.
// Virtual-hosted URLs carry the key as the whole path; path-style URLs
// (custom endpoints) prefix it with the bucket name.
func (s *s3Storage) extractKey(fileURL string) string {
	u, err := url.Parse(fileURL)
	if err != nil {
		return ""
	}

	path := strings.TrimPrefix(u.Path, "/")
	if path == "" {
		return ""
	}

	marker := s.bucket + "/"
	if idx := strings.Index(path, marker); idx >= 0 {
		return path[idx+len(marker):]
	}

	return path
}

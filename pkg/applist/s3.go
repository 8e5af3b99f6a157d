package applist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Prefix marks list entries and list sources stored in S3.
const S3Prefix = "s3://"

// ObjectStreamer opens objects by bucket and key. *S3Client implements it.
type ObjectStreamer interface {
	StreamObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// S3Client reads APKs and app lists from S3.
type S3Client struct {
	s3Client *s3.Client
}

// NewS3Client creates a client from the default AWS configuration chain.
func NewS3Client(ctx context.Context) (*S3Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewS3ClientWithConfig(cfg), nil
}

// NewS3ClientWithConfig creates a client with a custom AWS config.
func NewS3ClientWithConfig(cfg aws.Config) *S3Client {
	return &S3Client{s3Client: s3.NewFromConfig(cfg)}
}

// StreamObject returns a reader for an S3 object. The caller closes it.
func (c *S3Client) StreamObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	resp, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object s3://%s/%s: %w", bucket, key, err)
	}
	return resp.Body, nil
}

// IsS3URI reports whether path names an S3 object.
func IsS3URI(path string) bool {
	return strings.HasPrefix(path, S3Prefix)
}

// ParseS3URI splits s3://bucket/key into bucket and key. The key may be empty.
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !IsS3URI(uri) {
		return "", "", errors.New("invalid S3 URI: must start with s3://")
	}

	bucket, key, _ = strings.Cut(strings.TrimPrefix(uri, S3Prefix), "/")
	if bucket == "" {
		return "", "", errors.New("invalid S3 URI: missing bucket name")
	}
	return bucket, key, nil
}

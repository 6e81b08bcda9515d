package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3 writes artifacts to an S3-compatible bucket (MinIO, AWS S3, ...).
type S3 struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewS3(opts S3Options, bucket, prefix string) (*S3, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, errors.New("s3: S3_ENDPOINT is required")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &S3{client: client, bucket: bucket, prefix: prefix}, nil
}

// Ensure creates the bucket if it doesn't exist.
func (s *S3) Ensure(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

func (s *S3) Write(ctx context.Context, name string, data []byte) error {
	obj := objectName(s.prefix, name)
	_, err := s.client.PutObject(ctx, s.bucket, obj, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType(name),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", obj, err)
	}
	return nil
}

func (s *S3) Location(name string) string {
	return "s3://" + s.bucket + "/" + objectName(s.prefix, name)
}

func contentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return "application/json; charset=utf-8"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

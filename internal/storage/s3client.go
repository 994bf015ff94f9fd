// Package storage adapts an S3-compatible object store (MinIO) to the
// repository.ObjectStore contract used by the mutation orchestrators.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultContentType = "application/octet-stream"

// clientAPI is the subset of *minio.Client the adapter uses; tests swap in
// a fake.
type clientAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

type S3Client struct {
	bucket        string
	publicBaseURL string
	client        clientAPI
}

// NewS3Client creates an object-store client for the given endpoint and
// bucket. publicBaseURL is the externally reachable base under which
// objects in the bucket are served, e.g. "https://cdn.example.com".
func NewS3Client(endpoint, accessKey, secretKey, bucket, publicBaseURL string, useSSL bool) (*S3Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}
	return &S3Client{
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		client:        client,
	}, nil
}

// Upload writes the object at path, overwriting any existing object so
// that re-uploads to a post's existing path keep its public URL stable.
func (s *S3Client) Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = defaultContentType
	}
	_, err := s.client.PutObject(ctx, s.bucket, path, r, size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", path, err)
	}
	return nil
}

func (s *S3Client) Remove(ctx context.Context, path string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// PublicURL resolves a path to its public URL. No I/O: the bucket is
// assumed publicly readable under publicBaseURL.
func (s *S3Client) PublicURL(path string) string {
	return s.publicBaseURL + "/" + s.bucket + "/" + path
}

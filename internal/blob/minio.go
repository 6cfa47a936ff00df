// Package blob implements the external content collaborator. Blob refs are
// opaque object keys; a document's blob shares its record's lifecycle, with
// orphans tolerated and swept out of band.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"doctree/internal/config"
	"doctree/internal/domain"
	"doctree/internal/domain/services"
)

// MinioStore wraps MinIO/S3 interactions for document content.
type MinioStore struct {
	client *minio.Client
	bucket string
	region string
}

// NewMinioStore creates a MinIO client from the Config.
func NewMinioStore(cfg *config.Config) (*MinioStore, error) {
	client, err := minio.New(cfg.BlobEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.BlobAccessKey, cfg.BlobSecretKey, ""),
		Secure: cfg.BlobUseSSL,
		Region: cfg.BlobRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &MinioStore{
		client: client,
		bucket: cfg.BlobBucket,
		region: cfg.BlobRegion,
	}, nil
}

// EnsureBucket makes sure the content bucket exists before use.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// Put stores content under a fresh object key and returns it as the ref.
func (s *MinioStore) Put(ctx context.Context, content io.Reader, size int64, contentType string) (string, error) {
	ref := uuid.NewString()
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, ref, content, size, opts); err != nil {
		return "", fmt.Errorf("%w: put object: %v", domain.ErrBlobUnavailable, err)
	}
	return ref, nil
}

// Get streams content back by ref.
func (s *MinioStore) Get(ctx context.Context, ref string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: get object: %v", domain.ErrBlobUnavailable, err)
	}
	// GetObject is lazy; stat to surface a missing key now.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil, fmt.Errorf("blob %s: %w", ref, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: stat object: %v", domain.ErrBlobUnavailable, err)
	}
	return obj, nil
}

// Delete removes content. A missing ref is not an error.
func (s *MinioStore) Delete(ctx context.Context, ref string) error {
	err := s.client.RemoveObject(ctx, s.bucket, ref, minio.RemoveObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("%w: remove object: %v", domain.ErrBlobUnavailable, err)
	}
	return nil
}

// ListRefs returns every object key in the bucket; the orphan sweep
// compares these against live document records.
func (s *MinioStore) ListRefs(ctx context.Context) ([]string, error) {
	var refs []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{}) {
		if obj.Err != nil {
			if errors.Is(obj.Err, context.Canceled) {
				return nil, obj.Err
			}
			return nil, fmt.Errorf("%w: list objects: %v", domain.ErrBlobUnavailable, obj.Err)
		}
		refs = append(refs, obj.Key)
	}
	return refs, nil
}

var _ services.BlobStore = (*MinioStore)(nil)

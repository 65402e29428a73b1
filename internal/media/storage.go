package media

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Jhoe24/maintenance-tracker/internal/config"
)

// Storage persists uploaded repair evidence files.
type Storage interface {
	SaveVideo(ctx context.Context, fileName string, r io.Reader, size int64, contentType string) (string, error)
}

// MinioStorage stores files in an S3-compatible bucket under generated keys.
type MinioStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinioStorage connects to the configured endpoint and ensures the
// bucket exists.
func NewMinioStorage(ctx context.Context, cfg config.MediaConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	return &MinioStorage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

// SaveVideo uploads the file under a unique key and returns its public URL.
func (s *MinioStorage) SaveVideo(ctx context.Context, fileName string, r io.Reader, size int64, contentType string) (string, error) {
	key := "videos/" + uuid.NewString() + filepath.Ext(fileName)
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, key), nil
}

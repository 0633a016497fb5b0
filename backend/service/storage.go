package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/AnTengye/contractvigency/backend/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStorage keeps the raw spreadsheets behind imported datasets.
type ObjectStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	DownloadFile(ctx context.Context, objectName string) ([]byte, error)
	DeleteFile(ctx context.Context, objectName string) error
	GetPresignedURL(ctx context.Context, objectName string) (string, error)
}

type StorageService struct {
	client *minio.Client
	bucket string
	config *config.MinioConfig
}

var _ ObjectStorage = (*StorageService)(nil)

func NewStorageService(cfg *config.MinioConfig) (*StorageService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &StorageService{
		client: client,
		bucket: cfg.Bucket,
		config: cfg,
	}, nil
}

// ObjectName places a dataset's file under its tenant.
func ObjectName(tenant, datasetID, filename string) string {
	return path.Join(tenant, datasetID, path.Base(filename))
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *StorageService) EnsureBucket(ctx context.Context) error {
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

func (s *StorageService) UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	return nil
}

// DownloadFile reads a stored spreadsheet back, e.g. to re-evaluate it after a restart.
func (s *StorageService) DownloadFile(ctx context.Context, objectName string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return buf.Bytes(), nil
}

// GetPresignedURL generates a presigned URL for the object with expiration.
// A negative expire_days means the bucket is public and the plain URL is returned.
func (s *StorageService) GetPresignedURL(ctx context.Context, objectName string) (string, error) {
	if s.config.ExpireDays < 0 {
		return s.GetPublicURL(objectName), nil
	}
	expiry := time.Duration(s.config.ExpireDays) * 24 * time.Hour
	url, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url.String(), nil
}

func (s *StorageService) DeleteFile(ctx context.Context, objectName string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// GetPublicURL returns a public URL for the object (if bucket policy allows)
func (s *StorageService) GetPublicURL(objectName string) string {
	protocol := "http"
	if s.config.UseSSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", protocol, s.config.Endpoint, s.bucket, objectName)
}

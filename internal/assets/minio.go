package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kimhaegyeong/ai-webtoon/internal/config"
)

type minioStore struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

// NewMinioStore connects to the S3-compatible object store from config.
func NewMinioStore(cfg config.Config) (Store, error) {
	if cfg.StorageEndpoint == "" {
		return nil, errors.New("STORAGE_ENDPOINT is not set")
	}
	client, err := minio.New(cfg.StorageEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.StorageAccessKey, cfg.StorageSecretKey, ""),
		Secure: cfg.StorageUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	publicBase := cfg.StoragePublicBaseURL
	if publicBase == "" {
		scheme := "http"
		if cfg.StorageUseSSL {
			scheme = "https"
		}
		publicBase = fmt.Sprintf("%s://%s/%s", scheme, cfg.StorageEndpoint, cfg.StorageBucket)
	}

	return &minioStore{
		client:        client,
		bucket:        cfg.StorageBucket,
		publicBaseURL: strings.TrimSuffix(publicBase, "/"),
	}, nil
}

func (s *minioStore) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectPath, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectPath, err)
	}
	return s.publicBaseURL + "/" + objectPath, nil
}

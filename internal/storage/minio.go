// Package storage provides the photo byte storage backends: MinIO object
// storage and a PostgreSQL fallback.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dmkolesov/snaprate/internal/config"
	"github.com/dmkolesov/snaprate/internal/models"
	"github.com/dmkolesov/snaprate/internal/photos"
)

// MinIOStorage stores photo renditions as objects in a MinIO bucket.
type MinIOStorage struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

// NewMinIOStorage connects to MinIO and makes sure the bucket exists.
func NewMinIOStorage(ctx context.Context, cfg config.ObjectStoreConfig) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to object store: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &MinIOStorage{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

func objectName(photoID string, variant models.ImageVariant) string {
	return fmt.Sprintf("photos/%s/%s", photoID, variant)
}

// Save uploads one photo rendition.
func (s *MinIOStorage) Save(ctx context.Context, req photos.SaveRequest) (*models.ImageAsset, error) {
	name := objectName(req.PhotoID, req.Variant)

	_, err := s.client.PutObject(ctx, s.bucket, name,
		bytes.NewReader(req.ImageBytes), int64(len(req.ImageBytes)),
		minio.PutObjectOptions{
			ContentType: req.ContentType,
			UserMetadata: map[string]string{
				"photo-id": req.PhotoID,
			},
		})
	if err != nil {
		return nil, fmt.Errorf("put object %q: %w", name, err)
	}

	return &models.ImageAsset{
		PhotoID:                 req.PhotoID,
		Variant:                 req.Variant,
		ContentType:             req.ContentType,
		ImageBytes:              req.ImageBytes,
		ModerationMaxConfidence: req.ModerationMaxConfidence,
	}, nil
}

// Load fetches one photo rendition. Returns nil when the object is missing.
func (s *MinIOStorage) Load(ctx context.Context, photoID string, variant models.ImageVariant) (*models.ImageAsset, error) {
	name := objectName(photoID, variant)

	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", name, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil, nil
		}
		return nil, fmt.Errorf("read object %q: %w", name, err)
	}

	stat, err := obj.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat object %q: %w", name, err)
	}

	return &models.ImageAsset{
		PhotoID:     photoID,
		Variant:     variant,
		ContentType: stat.ContentType,
		ImageBytes:  data,
	}, nil
}

// Delete removes every rendition stored for a photo.
func (s *MinIOStorage) Delete(ctx context.Context, photoID string) error {
	for _, variant := range []models.ImageVariant{models.ImageVariantOriginal, models.ImageVariantThumbnail} {
		name := objectName(photoID, variant)
		if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove object %q: %w", name, err)
		}
	}
	return nil
}

// URL returns the public URL clients use to fetch a rendition.
func (s *MinIOStorage) URL(photoID string, variant models.ImageVariant) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, objectName(photoID, variant))
}

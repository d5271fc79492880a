package repository

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// ArchiveRepository keeps an audit copy of extracted submission text per
// run in object storage.
type ArchiveRepository interface {
	StoreExtract(ctx context.Context, runID string, userID int64, studentName string, text []byte) error
}

type minioArchive struct {
	client *minio.Client
	bucket string
	region string
	logger zerolog.Logger

	ensureMu      sync.Mutex
	bucketEnsured bool
}

func NewMinIOArchive(endpoint, accessKey, secretKey, bucket, region string, useSSL bool, connectTimeout time.Duration, logger zerolog.Logger) (ArchiveRepository, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	repo := &minioArchive{
		client: client,
		bucket: bucket,
		region: region,
		logger: logger,
	}

	// Best-effort bootstrap: a not-yet-ready MinIO must not take the
	// grader down; the bucket is re-checked on demand.
	if connectTimeout <= 0 {
		connectTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := repo.ensureBucket(ctx); err != nil {
		logger.Error().Err(err).
			Str("endpoint", endpoint).
			Str("bucket", bucket).
			Msg("MinIO not ready during startup; archive will retry on demand")
	}

	return repo, nil
}

func (r *minioArchive) ensureBucket(ctx context.Context) error {
	r.ensureMu.Lock()
	defer r.ensureMu.Unlock()
	if r.bucketEnsured {
		return nil
	}

	exists, err := r.client.BucketExists(ctx, r.bucket)
	if err != nil {
		return fmt.Errorf("minio not ready: %w", err)
	}
	if !exists {
		if err := r.client.MakeBucket(ctx, r.bucket, minio.MakeBucketOptions{Region: r.region}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		r.logger.Info().Str("bucket", r.bucket).Msg("Created new bucket")
	}

	r.bucketEnsured = true
	return nil
}

func (r *minioArchive) StoreExtract(ctx context.Context, runID string, userID int64, studentName string, text []byte) error {
	if err := r.ensureBucket(ctx); err != nil {
		return err
	}

	objectName := fmt.Sprintf("runs/%s/%d.txt", runID, userID)
	_, err := r.client.PutObject(ctx, r.bucket, objectName, bytes.NewReader(text), int64(len(text)), minio.PutObjectOptions{
		ContentType: "text/plain",
		UserMetadata: map[string]string{
			"student": studentName,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to archive extract: %w", err)
	}

	r.logger.Debug().
		Str("object", objectName).
		Int("bytes", len(text)).
		Msg("Extract archived")
	return nil
}

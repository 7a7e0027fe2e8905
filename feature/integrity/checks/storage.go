package checks

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"entity-sync/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// MarkerName is the placeholder object written into empty type folders.
// Sources only read .json objects, so the marker is never decoded.
const MarkerName = ".keep"

// StorageReport lists the entity type folders missing from the bucket.
type StorageReport struct {
	Bucket  string   `json:"bucket"`
	Prefix  string   `json:"prefix"`
	Missing []string `json:"missing"`
}

// CheckStorage verifies the bucket exists and has a folder per entity type.
func CheckStorage(ctx context.Context, client storage.Client, bucket, prefix string, types []string) (*StorageReport, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", bucket)
	}

	report := &StorageReport{Bucket: bucket, Prefix: prefix, Missing: []string{}}
	for _, t := range types {
		opts := minio.ListObjectsOptions{
			Prefix:    path.Join(prefix, t) + "/",
			Recursive: false,
			MaxKeys:   1,
		}

		found := false
		for obj := range client.ListObjects(ctx, bucket, opts) {
			if obj.Err != nil {
				return nil, fmt.Errorf("failed to list %s: %w", opts.Prefix, obj.Err)
			}
			found = true
			break
		}
		if !found {
			report.Missing = append(report.Missing, t)
		}
	}
	return report, nil
}

// FixStorage writes a marker object into each missing type folder.
func FixStorage(ctx context.Context, client storage.Client, bucket, prefix string, logger *zap.Logger, missing []string) error {
	for _, t := range missing {
		name := path.Join(prefix, t, MarkerName)
		_, err := client.PutObject(ctx, bucket, name, bytes.NewReader([]byte{}), 0, minio.PutObjectOptions{})
		if err != nil {
			logger.Error("Failed to create type folder", zap.String("entity_type", t), zap.Error(err))
			return err
		}
		logger.Info("Created missing type folder", zap.String("entity_type", t))
	}
	return nil
}

// Package storage wraps the MinIO client used by the object-store entity
// source.
//
// The Client interface covers only the calls the source makes, so tests can
// substitute mocks.Client. Both AWS S3 and self-hosted MinIO endpoints work.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	if err := storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
//	    return err
//	}
package storage

package storage_test

import (
	"context"
	"errors"
	"testing"

	"entity-sync/core/storage"
	"entity-sync/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name string
		cfg  storage.Config
	}{
		{"Plain endpoint", storage.Config{Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s", Region: "us-east-1"}},
		{"Endpoint with http", storage.Config{Endpoint: "http://localhost:9000", AccessKey: "k", SecretKey: "s"}},
		{"Endpoint with https", storage.Config{Endpoint: "https://s3.amazonaws.com", AccessKey: "k", SecretKey: "s", UseSSL: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := storage.NewClient(tt.cfg)
			assert.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestEnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("Exists", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "entities").Return(true, nil)
		assert.NoError(t, storage.EnsureBucket(ctx, m, "entities", ""))
		m.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Creates", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "entities").Return(false, nil)
		m.On("MakeBucket", ctx, "entities", minio.MakeBucketOptions{Region: "eu"}).Return(nil)
		assert.NoError(t, storage.EnsureBucket(ctx, m, "entities", "eu"))
		m.AssertExpectations(t)
	})

	t.Run("Check fails", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "entities").Return(false, errors.New("denied"))
		assert.ErrorContains(t, storage.EnsureBucket(ctx, m, "entities", ""), "denied")
	})
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, storage.IsNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.False(t, storage.IsNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, storage.IsNotFound(nil))
}

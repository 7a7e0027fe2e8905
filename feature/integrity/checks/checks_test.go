package checks

import (
	"context"
	"errors"
	"testing"

	"entity-sync/core/database"
	"entity-sync/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCheckStorage(t *testing.T) {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "bucket").Return(true, nil)
	client.On("ListObjects", mock.Anything, "bucket", mock.MatchedBy(func(o minio.ListObjectsOptions) bool {
		return o.Prefix == "entities/posts/"
	})).Return(mocks.Objects("entities/posts/1.json"))
	client.On("ListObjects", mock.Anything, "bucket", mock.MatchedBy(func(o minio.ListObjectsOptions) bool {
		return o.Prefix == "entities/users/"
	})).Return(mocks.Objects())

	report, err := CheckStorage(context.Background(), client, "bucket", "entities", []string{"posts", "users"})
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, report.Missing)
}

func TestCheckStorage_BucketErrors(t *testing.T) {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "gone").Return(false, nil)
	client.On("BucketExists", mock.Anything, "broken").Return(false, errors.New("denied"))

	_, err := CheckStorage(context.Background(), client, "gone", "", []string{"posts"})
	assert.EqualError(t, err, "bucket gone does not exist")

	_, err = CheckStorage(context.Background(), client, "broken", "", []string{"posts"})
	assert.ErrorContains(t, err, "denied")
}

func TestFixStorage(t *testing.T) {
	client := new(mocks.Client)
	client.On("PutObject", mock.Anything, "bucket", "entities/users/.keep", mock.Anything, int64(0), mock.Anything).
		Return(minio.UploadInfo{}, nil)

	err := FixStorage(context.Background(), client, "bucket", "entities", zap.NewNop(), []string{"users"})
	assert.NoError(t, err)
	client.AssertExpectations(t)
}

func TestCheckDatabase(t *testing.T) {
	_, err := CheckDatabase(nil)
	assert.Error(t, err)

	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)

	report, err := CheckDatabase(db)
	require.NoError(t, err)
	assert.False(t, report.Exists)

	require.NoError(t, FixDatabase(context.Background(), db))
	report, err = CheckDatabase(db)
	require.NoError(t, err)
	assert.True(t, report.OK(), "%+v", report)
}

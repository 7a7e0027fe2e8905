package memsource

import (
	"context"
	"errors"
	"testing"
	"time"

	"entity-sync/core/entity"
	"entity-sync/core/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestSource_CreateUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := New("memory", WithClock(fixedClock()))

	created, err := s.Create(ctx, "posts", entity.Entity{"id": "1", "title": "a"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, created["version"])
	assert.Equal(t, "2024-05-01T12:00:00Z", created["updatedAt"])

	updated, err := s.Update(ctx, "posts", "1", entity.Entity{"title": "b"}, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated["version"])
	assert.Equal(t, "1", updated["id"])

	_, err = s.Update(ctx, "posts", "1", entity.Entity{"title": "c"}, 1)
	var conflict *source.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.ErrorIs(t, err, source.ErrConflict)
	assert.EqualValues(t, 2, conflict.RemoteVersion)
	assert.Equal(t, "b", conflict.Remote["title"])

	_, err = s.Update(ctx, "posts", "404", entity.Entity{}, 0)
	assert.ErrorIs(t, err, source.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "posts", "1", 2))
	_, ok := s.Get("posts", "1")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Calls("delete"))
}

func TestSource_CreateGeneratesID(t *testing.T) {
	s := New("memory")
	created, err := s.Create(context.Background(), "posts", entity.Entity{"title": "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, created["id"])
}

func TestSource_FetchFiltersAndIsolates(t *testing.T) {
	ctx := context.Background()
	s := New("memory")
	s.Put("posts", entity.Entity{"id": "1", "status": "draft"})
	s.Put("posts", entity.Entity{"id": "2", "status": "live"})
	s.Put("users", entity.Entity{"id": "1"})

	all, err := s.Fetch(ctx, "posts", nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "1", all[0]["id"])

	live, err := s.Fetch(ctx, "posts", map[string]string{"status": "live"})
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "2", live[0]["id"])

	all[0]["status"] = "mutated"
	stored, _ := s.Get("posts", "1")
	assert.Equal(t, "draft", stored["status"])
}

func TestSource_InjectedFaults(t *testing.T) {
	s := New("memory")

	boom := errors.New("offline")
	s.SetError(boom)
	_, err := s.Fetch(context.Background(), "posts", nil)
	assert.ErrorIs(t, err, boom)
	s.SetError(nil)

	s.SetDelay(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = s.Create(ctx, "posts", entity.Entity{"id": "1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

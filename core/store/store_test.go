package store

import (
	"errors"
	"sync"
	"testing"

	"entity-sync/core/entity"
	"entity-sync/core/normalize"
	"entity-sync/core/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AddDataAndSubscribe(t *testing.T) {
	users := schema.NewEntity("users")
	posts := schema.NewEntity("posts").Define(map[string]schema.Schema{"author": users})

	s := New(nil, nil)
	var seen []int
	unsubscribe := s.Subscribe(func(es entity.Entities) {
		seen = append(seen, es.Len())
	})

	res, err := s.AddData(map[string]any{
		"id":     "1",
		"author": map[string]any{"id": "7", "name": "Amy"},
	}, posts)
	require.NoError(t, err)
	assert.Equal(t, "1", res.Result)

	e, ok := s.Entity("users", "7")
	require.True(t, ok)
	assert.Equal(t, "Amy", e["name"])

	unsubscribe()
	unsubscribe()
	s.SetEntity("users", "8", entity.Entity{"id": "8"})

	assert.Equal(t, []int{2}, seen)
}

func TestStore_NotifiesInSubscriptionOrder(t *testing.T) {
	s := New(nil, nil)
	var order []int
	for i := 0; i < 20; i++ {
		s.Subscribe(func(entity.Entities) { order = append(order, i) })
	}

	s.SetEntity("users", "1", entity.Entity{"id": "1"})
	s.SetEntity("users", "2", entity.Entity{"id": "2"})

	require.Len(t, order, 40)
	for i, got := range order {
		assert.Equal(t, i%20, got)
	}
}

func TestStore_SnapshotsAreImmutable(t *testing.T) {
	s := New(entity.Entities{"users": {"1": {"id": "1", "name": "a"}}}, nil)
	before := s.Snapshot()

	require.True(t, s.UpdateEntity("users", "1", map[string]any{"name": "b"}))

	old, _ := before.Get("users", "1")
	assert.Equal(t, "a", old["name"])
	current, _ := s.Entity("users", "1")
	assert.Equal(t, "b", current["name"])
}

func TestStore_ApplyErrorDoesNotPublish(t *testing.T) {
	s := New(entity.Entities{"users": {"1": {"id": "1"}}}, nil)
	notified := 0
	s.Subscribe(func(entity.Entities) { notified++ })

	boom := errors.New("boom")
	err := s.Apply(func(draft entity.Entities) error {
		draft.Delete("users", "1")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, ok := s.Entity("users", "1")
	assert.True(t, ok)
	assert.Zero(t, notified)

	assert.False(t, s.RemoveEntity("users", "404"))
	assert.False(t, s.UpdateEntity("users", "404", map[string]any{"a": 1}))
	assert.Zero(t, notified)
}

func TestStore_MergeAndReplace(t *testing.T) {
	s := New(entity.Entities{"users": {"1": {"id": "1", "name": "a", "age": 3}}}, nil)

	require.NoError(t, s.Merge(entity.Entities{"users": {"1": {"id": "1", "name": "b"}}}, normalize.StrategyMerge))
	e, _ := s.Entity("users", "1")
	assert.Equal(t, "b", e["name"])
	assert.Equal(t, 3, e["age"])

	assert.Error(t, s.Merge(entity.Entities{}, normalize.Strategy("nope")))

	s.Replace(entity.Entities{"posts": {"9": {"id": "9"}}})
	assert.Equal(t, []string{"posts"}, s.Snapshot().Types())
}

func TestStore_ConcurrentWriters(t *testing.T) {
	s := New(nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i%26))
			s.SetEntity("letters", id+"-"+string(rune('0'+i/26)), entity.Entity{"n": i})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, s.Snapshot().Len())
}

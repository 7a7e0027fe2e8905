package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"entity-sync/core/conflict"
	"entity-sync/core/entity"
	"entity-sync/core/schema"
	"entity-sync/core/source"
	"entity-sync/core/source/memsource"
	"entity-sync/core/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func blogRegistry() *schema.Registry {
	users := schema.NewEntity("users")
	posts := schema.NewEntity("posts").Define(map[string]schema.Schema{"author": users})
	return schema.NewRegistry().MustRegister(users, posts)
}

// recordingSource logs write calls in order.
type recordingSource struct {
	*memsource.Source
	mu    gosync.Mutex
	calls []string
}

func (r *recordingSource) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recordingSource) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recordingSource) Create(ctx context.Context, t string, e entity.Entity) (entity.Entity, error) {
	r.record("create " + e["id"].(string))
	return r.Source.Create(ctx, t, e)
}

func (r *recordingSource) Update(ctx context.Context, t, id string, e entity.Entity, base int64) (entity.Entity, error) {
	r.record("update " + id)
	return r.Source.Update(ctx, t, id, e, base)
}

func (r *recordingSource) Delete(ctx context.Context, t, id string, base int64) error {
	r.record("delete " + id)
	return r.Source.Delete(ctx, t, id, base)
}

func newEngine(t *testing.T, cfg Config, sources ...source.Source) *Engine {
	t.Helper()
	e, err := New(store.New(nil, nil), blogRegistry(), cfg, WithSources(sources[0], sources[1:]...))
	require.NoError(t, err)
	return e
}

func TestNew_RequiresSource(t *testing.T) {
	_, err := New(store.New(nil, nil), blogRegistry(), Config{})
	assert.ErrorIs(t, err, ErrNoSources)
}

func TestSync_AppliesNormalizedData(t *testing.T) {
	remote := memsource.New("api")
	remote.Put("posts", entity.Entity{"id": "1", "title": "Hello", "author": map[string]any{"id": "7", "name": "Amy"}})

	e := newEngine(t, Config{}, remote)

	var states []State
	unsubscribe := e.SubscribeStatus(func(s Status) {
		if s.EntityType == "posts" {
			states = append(states, s.State)
		}
	})
	defer unsubscribe()

	res, err := e.Sync(context.Background(), "posts", SyncOptions{})
	require.NoError(t, err)
	assert.False(t, res.Superseded)
	assert.Equal(t, 2, res.Applied)

	post, ok := e.Store().Entity("posts", "1")
	require.True(t, ok)
	assert.Equal(t, "7", post["author"])
	amy, ok := e.Store().Entity("users", "7")
	require.True(t, ok)
	assert.Equal(t, "Amy", amy["name"])

	assert.Equal(t, []State{StateSyncing, StateSynced}, states)
	assert.Equal(t, StateSynced, e.Status("posts").State)
	assert.False(t, e.Status("posts").LastSyncedAt.IsZero())
}

func TestSync_UnknownType(t *testing.T) {
	e := newEngine(t, Config{}, memsource.New("api"))
	_, err := e.Sync(context.Background(), "comments", SyncOptions{})
	assert.ErrorIs(t, err, schema.ErrUnknownType)
}

func TestSync_SourceFailureIsReported(t *testing.T) {
	remote := memsource.New("api")
	remote.SetError(errors.New("connection refused"))
	e := newEngine(t, Config{}, remote)

	res, err := e.Sync(context.Background(), "posts", SyncOptions{})
	require.NoError(t, err)
	require.Error(t, res.Err)

	var syncErr *SyncError
	require.ErrorAs(t, res.Err, &syncErr)
	assert.True(t, syncErr.Retryable)
	assert.Equal(t, StateError, e.Status("posts").State)
	assert.Contains(t, e.Status("posts").LastError, "connection refused")
}

func TestSync_Prune(t *testing.T) {
	remote := memsource.New("api")
	remote.Put("posts", entity.Entity{"id": "1"})
	e := newEngine(t, Config{}, remote)
	e.Store().SetEntity("posts", "stale", entity.Entity{"id": "stale"})

	res, err := e.Sync(context.Background(), "posts", SyncOptions{Prune: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, res.Pruned)
	_, ok := e.Store().Entity("posts", "stale")
	assert.False(t, ok)
}

func TestSync_ReconcilesSecondarySources(t *testing.T) {
	primary := memsource.New("api")
	cache := memsource.New("cache")
	primary.Put("posts", entity.Entity{"id": "1", "title": "a"})
	primary.Put("posts", entity.Entity{"id": "2", "title": "b"})
	cache.Put("posts", entity.Entity{"id": "1", "title": "old"})
	cache.Put("posts", entity.Entity{"id": "3", "title": "orphan"})

	e := newEngine(t, Config{}, primary, cache)
	res, err := e.Sync(context.Background(), "posts", SyncOptions{})
	require.NoError(t, err)

	require.Len(t, res.Reconcile, 3)
	assert.Equal(t, map[string]bool{"api": true, "cache": true}, res.Reconcile[0].Present)
	assert.Equal(t, []string{"title: api=a cache=old"}, res.Reconcile[0].Mismatch)
	assert.Equal(t, map[string]bool{"api": true, "cache": false}, res.Reconcile[1].Present)
	assert.Equal(t, map[string]bool{"api": false, "cache": true}, res.Reconcile[2].Present)

	_, ok := e.Store().Entity("posts", "3")
	assert.False(t, ok, "the primary wins")
}

// gatedSource blocks its first Fetch until released.
type gatedSource struct {
	*memsource.Source
	once    gosync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSource) Fetch(ctx context.Context, t string, p map[string]string) ([]entity.Entity, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.Source.Fetch(ctx, t, p)
}

func TestSync_NewerGenerationSupersedes(t *testing.T) {
	mem := memsource.New("api")
	mem.Put("posts", entity.Entity{"id": "1", "title": "v1"})
	gated := &gatedSource{Source: mem, entered: make(chan struct{}), release: make(chan struct{})}
	e := newEngine(t, Config{}, gated)

	var first *SyncResult
	done := make(chan struct{})
	go func() {
		defer close(done)
		first, _ = e.Sync(context.Background(), "posts", SyncOptions{})
	}()
	<-gated.entered

	second, err := e.Sync(context.Background(), "posts", SyncOptions{})
	require.NoError(t, err)
	assert.False(t, second.Superseded)

	close(gated.release)
	<-done

	require.NotNil(t, first)
	assert.True(t, first.Superseded)
	assert.EqualValues(t, 1, first.Generation)
	assert.EqualValues(t, 2, second.Generation)
	assert.Equal(t, StateSynced, e.Status("posts").State)
}

func TestCreate_OptimisticThenAuthoritative(t *testing.T) {
	remote := memsource.New("api")
	cache := memsource.New("cache")
	e := newEngine(t, Config{}, remote, cache)

	var versions []any
	e.Store().Subscribe(func(es entity.Entities) {
		if p, ok := es.Get("posts", "1"); ok {
			versions = append(versions, p["version"])
		}
	})

	created, err := e.Create(context.Background(), "posts", "", map[string]any{
		"id":     "1",
		"title":  "hi",
		"author": map[string]any{"id": "7", "name": "Amy"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, created["version"])
	assert.Equal(t, "7", created["author"])

	// Optimistic publish without a version, then the stamped value.
	require.Len(t, versions, 2)
	assert.Nil(t, versions[0])
	assert.EqualValues(t, 1, versions[1])

	_, ok := e.Store().Entity("users", "7")
	assert.True(t, ok, "nested entities are normalized into the store")

	_, mirrored := cache.Get("posts", "1")
	assert.True(t, mirrored)
	assert.Equal(t, StateSynced, e.Status("posts").State)

	txs := e.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, TxApplied, txs[0].State)
	assert.Equal(t, TxCommitted, txs[1].State)
}

func TestUpdate_FailureRollsBackExactly(t *testing.T) {
	remote := memsource.New("api")
	remote.Put("posts", entity.Entity{"id": "1", "title": "original", "tags": []any{"a"}})
	e := newEngine(t, Config{Timeout: 20 * time.Millisecond}, remote)

	_, err := e.Sync(context.Background(), "posts", SyncOptions{})
	require.NoError(t, err)
	before, _ := e.Store().Entity("posts", "1")

	remote.SetDelay(time.Second)
	_, err = e.Update(context.Background(), "posts", "1", map[string]any{"title": "changed"})
	require.Error(t, err)

	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.True(t, syncErr.Retryable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	after, _ := e.Store().Entity("posts", "1")
	assert.Equal(t, before, after)
	assert.Equal(t, StateError, e.Status("posts").State)
	require.Len(t, e.FailedOperations(), 1)

	remote.SetDelay(0)
	res, err := e.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Succeeded, 1)
	assert.Empty(t, e.FailedOperations())

	retried, _ := e.Store().Entity("posts", "1")
	assert.Equal(t, "changed", retried["title"])
	assert.EqualValues(t, 2, retried["version"])
}

func TestCreate_FailureRemovesOptimisticEntity(t *testing.T) {
	remote := memsource.New("api")
	remote.SetError(errors.New("boom"))
	e := newEngine(t, Config{}, remote)

	_, err := e.Create(context.Background(), "posts", "9", map[string]any{"title": "x"})
	require.Error(t, err)
	_, ok := e.Store().Entity("posts", "9")
	assert.False(t, ok)
}

func TestUpdate_VersionConflictKeepsLocal(t *testing.T) {
	ctx := context.Background()
	remote := memsource.New("api")
	remote.Put("posts", entity.Entity{"id": "1", "title": "base"})
	e := newEngine(t, Config{}, remote)
	_, err := e.Sync(ctx, "posts", SyncOptions{})
	require.NoError(t, err)

	// Another client edits the post.
	remote.Put("posts", entity.Entity{"id": "1", "title": "theirs"})

	_, err = e.Update(ctx, "posts", "1", map[string]any{"title": "mine"})
	require.ErrorIs(t, err, ErrConflict)

	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "mine", ce.Conflict.LocalData["title"])
	assert.Equal(t, "theirs", ce.Conflict.RemoteData["title"])
	assert.EqualValues(t, 1, ce.Conflict.LocalVersion)
	assert.EqualValues(t, 2, ce.Conflict.RemoteVersion)

	local, _ := e.Store().Entity("posts", "1")
	assert.Equal(t, "mine", local["title"])
	assert.Equal(t, StateConflict, e.Status("posts").State)
	require.Len(t, e.Conflicts(), 1)

	resolved, err := e.ResolveConflictManual(ctx, ce.Conflict.ID, ChoiceRemote, nil)
	require.NoError(t, err)
	assert.Equal(t, "theirs", resolved["title"])

	again, err := e.ResolveConflictManual(ctx, ce.Conflict.ID, ChoiceLocal, nil)
	assert.NoError(t, err)
	assert.Nil(t, again)

	current, _ := e.Store().Entity("posts", "1")
	assert.Equal(t, "theirs", current["title"])
	assert.Empty(t, e.Conflicts())
	assert.Equal(t, StateSynced, e.Status("posts").State)

	_, err = e.ResolveConflictManual(ctx, "nope", ChoiceLocal, nil)
	assert.ErrorIs(t, err, ErrConflictNotFound)
}

func TestResolveConflict_MergePushesAgainstRemoteVersion(t *testing.T) {
	ctx := context.Background()
	remote := memsource.New("api")
	remote.Put("posts", entity.Entity{"id": "1", "title": "base", "views": 1})
	e := newEngine(t, Config{}, remote)
	_, err := e.Sync(ctx, "posts", SyncOptions{})
	require.NoError(t, err)
	remote.Put("posts", entity.Entity{"id": "1", "title": "base", "views": 5})

	_, err = e.Update(ctx, "posts", "1", map[string]any{"title": "mine"})
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)

	merged := entity.Entity{"id": "1", "title": "mine", "views": 5}
	out, err := e.ResolveConflictManual(ctx, ce.Conflict.ID, ChoiceMerge, merged)
	require.NoError(t, err)
	assert.Equal(t, "mine", out["title"])
	assert.EqualValues(t, 3, out["version"])

	stored, _ := remote.Get("posts", "1")
	assert.Equal(t, "mine", stored["title"])
	assert.EqualValues(t, 5, stored["views"])
}

func TestOffline_ReplaysInSequenceOrder(t *testing.T) {
	ctx := context.Background()
	rec := &recordingSource{Source: memsource.New("api")}
	rec.Put("posts", entity.Entity{"id": "1", "title": "v1"})
	e := newEngine(t, Config{}, rec)
	_, err := e.Sync(ctx, "posts", SyncOptions{})
	require.NoError(t, err)

	_, err = e.SetOnline(ctx, false)
	require.NoError(t, err)

	_, err = e.Update(ctx, "posts", "1", map[string]any{"title": "v2"})
	require.NoError(t, err)
	_, err = e.Create(ctx, "posts", "2", map[string]any{"title": "new"})
	require.NoError(t, err)
	_, err = e.Update(ctx, "posts", "1", map[string]any{"title": "v3"})
	require.NoError(t, err)
	require.NoError(t, e.Delete(ctx, "posts", "2"))

	assert.Equal(t, 4, e.PendingChanges())
	assert.Equal(t, 4, e.Status("posts").PendingChanges)
	assert.Empty(t, rec.Calls())

	local, _ := e.Store().Entity("posts", "1")
	assert.Equal(t, "v3", local["title"], "offline writes apply locally")

	queue := e.Queue()
	for i := 1; i < len(queue); i++ {
		assert.Greater(t, queue[i].Seq, queue[i-1].Seq)
	}

	res, err := e.SetOnline(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Replayed)
	assert.Zero(t, res.Remaining)
	assert.Equal(t, []string{"update 1", "create 2", "update 1", "delete 2"}, rec.Calls())

	stored, _ := rec.Get("posts", "1")
	assert.Equal(t, "v3", stored["title"])
	assert.EqualValues(t, 3, stored["version"])
	assert.Zero(t, e.PendingChanges())
}

func TestOffline_ReplayStopsAtRetryableFailure(t *testing.T) {
	ctx := context.Background()
	remote := memsource.New("api")
	e := newEngine(t, Config{}, remote)

	_, err := e.SetOnline(ctx, false)
	require.NoError(t, err)
	_, err = e.Create(ctx, "posts", "1", map[string]any{"title": "a"})
	require.NoError(t, err)
	_, err = e.Create(ctx, "posts", "2", map[string]any{"title": "b"})
	require.NoError(t, err)

	remote.SetError(errors.New("still down"))
	res, err := e.SetOnline(ctx, true)
	require.Error(t, err)
	assert.Equal(t, 2, res.Remaining)
	assert.Equal(t, 1, remote.Calls("create"), "replay stops at the first failure")

	remote.SetError(nil)
	res, err = e.SetOnline(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Replayed)
}

func TestSync_DetectsConflictWithQueuedChange(t *testing.T) {
	ctx := context.Background()
	remote := memsource.New("api")
	remote.Put("posts", entity.Entity{"id": "1", "title": "base"})
	e := newEngine(t, Config{}, remote)
	_, err := e.Sync(ctx, "posts", SyncOptions{})
	require.NoError(t, err)

	_, err = e.SetOnline(ctx, false)
	require.NoError(t, err)
	_, err = e.Update(ctx, "posts", "1", map[string]any{"title": "offline edit"})
	require.NoError(t, err)

	remote.Put("posts", entity.Entity{"id": "1", "title": "server edit"})

	res, err := e.Sync(ctx, "posts", SyncOptions{})
	require.NoError(t, err)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, StateConflict, e.Status("posts").State)

	local, _ := e.Store().Entity("posts", "1")
	assert.Equal(t, "offline edit", local["title"], "pending changes are never overwritten")

	_, err = e.ResolveConflict(ctx, res.Conflicts[0].ID, entity.Entity{"id": "1", "title": "agreed"})
	require.NoError(t, err)
	assert.Equal(t, 1, e.PendingChanges(), "the stale edit is replaced by the resolution")

	_, err = e.SetOnline(ctx, true)
	require.NoError(t, err)
	stored, _ := remote.Get("posts", "1")
	assert.Equal(t, "agreed", stored["title"])
}

func TestSync_AutoResolvesWithConfiguredStrategy(t *testing.T) {
	ctx := context.Background()
	remote := memsource.New("api")
	remote.Put("posts", entity.Entity{"id": "1", "title": "base"})
	e := newEngine(t, Config{ConflictStrategy: conflict.RemoteWins}, remote)
	_, err := e.Sync(ctx, "posts", SyncOptions{})
	require.NoError(t, err)

	_, err = e.SetOnline(ctx, false)
	require.NoError(t, err)
	_, err = e.Update(ctx, "posts", "1", map[string]any{"title": "offline edit"})
	require.NoError(t, err)
	remote.Put("posts", entity.Entity{"id": "1", "title": "server edit"})

	res, err := e.Sync(ctx, "posts", SyncOptions{})
	require.NoError(t, err)
	require.Len(t, res.Resolved, 1)
	assert.Empty(t, res.Resolved[0].Error)
	assert.Equal(t, conflict.RemoteWins, res.Resolved[0].Strategy)

	local, _ := e.Store().Entity("posts", "1")
	assert.Equal(t, "server edit", local["title"])
	assert.Zero(t, e.PendingChanges())
	assert.Empty(t, e.Conflicts())
	assert.Equal(t, StateSynced, e.Status("posts").State)
}

func TestRetryFailed_Offline(t *testing.T) {
	e := newEngine(t, Config{}, memsource.New("api"))
	_, err := e.SetOnline(context.Background(), false)
	require.NoError(t, err)
	_, err = e.RetryFailed(context.Background())
	assert.ErrorIs(t, err, ErrOffline)
}

func TestResolveConflictWithStrategy(t *testing.T) {
	ctx := context.Background()
	remote := memsource.New("api")
	remote.Put("posts", entity.Entity{"id": "1", "title": "base"})
	e := newEngine(t, Config{}, remote)
	_, err := e.Sync(ctx, "posts", SyncOptions{})
	require.NoError(t, err)
	remote.Put("posts", entity.Entity{"id": "1", "title": "theirs"})

	_, err = e.Update(ctx, "posts", "1", map[string]any{"title": "mine"})
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)

	_, err = e.ResolveConflictWithStrategy(ctx, ce.Conflict.ID, conflict.Manual)
	assert.ErrorIs(t, err, conflict.ErrManual)
	assert.Len(t, e.Conflicts(), 1)

	resolved, err := e.ResolveConflictWithStrategy(ctx, ce.Conflict.ID, conflict.LocalWins)
	require.NoError(t, err)
	assert.Equal(t, "mine", resolved["title"])
	stored, _ := remote.Get("posts", "1")
	assert.Equal(t, "mine", stored["title"])

	again, err := e.ResolveConflictWithStrategy(ctx, ce.Conflict.ID, conflict.RemoteWins)
	assert.NoError(t, err)
	assert.Nil(t, again)

	_, err = e.ResolveConflictWithStrategy(ctx, "nope", conflict.LocalWins)
	assert.ErrorIs(t, err, ErrConflictNotFound)
}

// stubbornSource ignores ctx and answers after lag.
type stubbornSource struct {
	*memsource.Source
	lag time.Duration
}

func (s *stubbornSource) Fetch(_ context.Context, t string, p map[string]string) ([]entity.Entity, error) {
	time.Sleep(s.lag)
	return s.Source.Fetch(context.Background(), t, p)
}

func (s *stubbornSource) Update(_ context.Context, t, id string, e entity.Entity, base int64) (entity.Entity, error) {
	time.Sleep(s.lag)
	return s.Source.Update(context.Background(), t, id, e, base)
}

func TestUpdate_LateAnswerCountsAsTimeout(t *testing.T) {
	mem := memsource.New("api")
	mem.Put("posts", entity.Entity{"id": "1", "title": "original"})
	slow := &stubbornSource{Source: mem}
	e := newEngine(t, Config{Timeout: 20 * time.Millisecond}, slow)

	_, err := e.Sync(context.Background(), "posts", SyncOptions{})
	require.NoError(t, err)
	before, _ := e.Store().Entity("posts", "1")

	slow.lag = 80 * time.Millisecond
	_, err = e.Update(context.Background(), "posts", "1", map[string]any{"title": "changed"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	after, _ := e.Store().Entity("posts", "1")
	assert.Equal(t, before, after)
	assert.Equal(t, StateError, e.Status("posts").State)
	assert.Len(t, e.FailedOperations(), 1)
}

func TestSync_LateAnswerCountsAsTimeout(t *testing.T) {
	mem := memsource.New("api")
	mem.Put("posts", entity.Entity{"id": "1", "title": "original"})
	slow := &stubbornSource{Source: mem, lag: 80 * time.Millisecond}
	e := newEngine(t, Config{Timeout: 20 * time.Millisecond}, slow)

	res, err := e.Sync(context.Background(), "posts", SyncOptions{})
	require.NoError(t, err)
	require.Error(t, res.Err)
	assert.Contains(t, res.Error, context.DeadlineExceeded.Error())
	assert.Zero(t, res.Applied)

	_, ok := e.Store().Entity("posts", "1")
	assert.False(t, ok)
	assert.Equal(t, StateError, e.Status("posts").State)
}

// secondFetchGate blocks the second Fetch until released.
type secondFetchGate struct {
	*memsource.Source
	mu      gosync.Mutex
	fetches int
	entered chan struct{}
	release chan struct{}
}

func (g *secondFetchGate) Fetch(ctx context.Context, t string, p map[string]string) ([]entity.Entity, error) {
	g.mu.Lock()
	g.fetches++
	n := g.fetches
	g.mu.Unlock()
	if n == 2 {
		close(g.entered)
		<-g.release
	}
	return g.Source.Fetch(ctx, t, p)
}

func TestSync_StaleGenerationLeavesStatusToNewer(t *testing.T) {
	mem := memsource.New("api")
	mem.Put("posts", entity.Entity{"id": "1", "title": "v1"})
	gate := &secondFetchGate{Source: mem, entered: make(chan struct{}), release: make(chan struct{})}
	e := newEngine(t, Config{}, gate)

	// The first publish starts a second sync that stays in flight.
	var second *SyncResult
	done := make(chan struct{})
	var once gosync.Once
	e.Store().Subscribe(func(entity.Entities) {
		once.Do(func() {
			go func() {
				defer close(done)
				second, _ = e.Sync(context.Background(), "posts", SyncOptions{})
			}()
			<-gate.entered
		})
	})

	first, err := e.Sync(context.Background(), "posts", SyncOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.Generation)

	st := e.Status("posts")
	assert.Equal(t, StateSyncing, st.State)
	assert.EqualValues(t, 2, st.Generation)

	close(gate.release)
	<-done
	require.NotNil(t, second)
	assert.False(t, second.Superseded)
	assert.Equal(t, StateSynced, e.Status("posts").State)
}

func TestDelete_FailureRestoresEntity(t *testing.T) {
	ctx := context.Background()
	remote := memsource.New("api")
	remote.Put("users", entity.Entity{"id": "7", "name": "Amy"})
	remote.Put("posts", entity.Entity{"id": "1", "title": "hello", "author": "7", "tags": []any{"a", "b"}})
	e := newEngine(t, Config{}, remote)

	for _, typ := range []string{"users", "posts"} {
		_, err := e.Sync(ctx, typ, SyncOptions{})
		require.NoError(t, err)
	}
	before := e.Store().Snapshot().Clone()

	remote.SetError(errors.New("boom"))
	err := e.Delete(ctx, "posts", "1")
	require.Error(t, err)

	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, "delete", syncErr.Op)

	assert.Equal(t, before, e.Store().Snapshot())
	post, ok := e.Store().Entity("posts", "1")
	require.True(t, ok)
	assert.Equal(t, before["posts"]["1"], post)
	user, _ := e.Store().Entity("users", "7")
	assert.Equal(t, before["users"]["7"], user)

	failed := e.FailedOperations()
	require.Len(t, failed, 1)
	assert.Equal(t, OpDelete, failed[0].Kind)
	assert.Equal(t, "1", failed[0].EntityID)

	remote.SetError(nil)
	_, stored := remote.Get("posts", "1")
	assert.True(t, stored)
}

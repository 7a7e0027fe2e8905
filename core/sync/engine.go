package sync

import (
	"context"
	"sort"
	gosync "sync"
	"time"

	"entity-sync/core/conflict"
	"entity-sync/core/entity"
	"entity-sync/core/metrics"
	"entity-sync/core/schema"
	"entity-sync/core/source"
	"entity-sync/core/store"
	"entity-sync/core/utils"

	"go.uber.org/zap"
)

// Engine synchronizes a store with its sources.
type Engine struct {
	cfg      Config
	store    *store.Store
	registry *schema.Registry
	sources  []source.Source
	resolver *conflict.Resolver
	metrics  *metrics.SyncMetrics
	logger   *zap.Logger
	now      func() time.Time

	// mu guards everything below. It is never held while calling into the
	// store, a source or a listener.
	mu          gosync.Mutex
	online      bool
	seq         uint64
	generations map[string]uint64
	statuses    map[string]*Status
	queue       []*Operation
	failed      []*Operation
	inflight    map[entityKey]int
	conflicts   map[string]*conflict.SyncConflict
	resolved    map[string]struct{}

	// replayMu serializes offline queue replays.
	replayMu gosync.Mutex

	log *txLog

	listenersMu gosync.RWMutex
	listeners   map[uint64]StatusListener
	nextID      uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithSources sets the primary source followed by secondary sources.
func WithSources(primary source.Source, secondary ...source.Source) Option {
	return func(e *Engine) {
		e.sources = append([]source.Source{primary}, secondary...)
	}
}

// WithResolver replaces the conflict resolver.
func WithResolver(r *conflict.Resolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithMetrics records engine activity.
func WithMetrics(m *metrics.SyncMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an online engine. WithSources is required.
func New(st *store.Store, registry *schema.Registry, cfg Config, opts ...Option) (*Engine, error) {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:         cfg,
		store:       st,
		registry:    registry,
		logger:      zap.NewNop(),
		now:         time.Now,
		online:      true,
		generations: make(map[string]uint64),
		statuses:    make(map[string]*Status),
		inflight:    make(map[entityKey]int),
		conflicts:   make(map[string]*conflict.SyncConflict),
		resolved:    make(map[string]struct{}),
		log:         newTxLog(cfg.TransactionLogSize),
		listeners:   make(map[uint64]StatusListener),
	}
	for _, opt := range opts {
		opt(e)
	}
	if len(e.sources) == 0 || e.sources[0] == nil {
		return nil, ErrNoSources
	}
	if e.resolver == nil {
		e.resolver = conflict.NewResolver(conflict.WithTimestampField(cfg.TimestampField))
	}
	return e, nil
}

// Store returns the store the engine writes to.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Online reports the connectivity flag.
func (e *Engine) Online() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.online
}

// PendingChanges returns the number of queued operations.
func (e *Engine) PendingChanges() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Queue returns copies of the queued operations in replay order.
func (e *Engine) Queue() []Operation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyOps(e.queue)
}

// FailedOperations returns copies of the operations awaiting RetryFailed.
func (e *Engine) FailedOperations() []Operation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyOps(e.failed)
}

// Transactions returns the retained transaction log, oldest first.
func (e *Engine) Transactions() []Transaction {
	return e.log.list()
}

// Status returns the status of entityType.
func (e *Engine) Status(entityType string) Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked(entityType)
}

// Statuses returns the status of every registered type, sorted by type.
func (e *Engine) Statuses() []Status {
	keys := e.registry.Keys()
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Status, 0, len(keys))
	for _, k := range keys {
		out = append(out, e.statusLocked(k))
	}
	return out
}

// SubscribeStatus registers fn for status changes and returns a function
// that removes it.
func (e *Engine) SubscribeStatus(fn StatusListener) func() {
	e.listenersMu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	e.listenersMu.Unlock()

	var once gosync.Once
	return func() {
		once.Do(func() {
			e.listenersMu.Lock()
			delete(e.listeners, id)
			e.listenersMu.Unlock()
		})
	}
}

// statusLocked builds the derived status of entityType. Callers hold mu.
func (e *Engine) statusLocked(entityType string) Status {
	st := Status{EntityType: entityType, State: StateIdle}
	if s, ok := e.statuses[entityType]; ok {
		st = *s
	}
	st.Generation = e.generations[entityType]
	st.Online = e.online
	st.PendingChanges = 0
	for _, op := range e.queue {
		if op.EntityType == entityType {
			st.PendingChanges++
		}
	}
	st.Conflicts = 0
	for _, c := range e.conflicts {
		if c.EntityType == entityType {
			st.Conflicts++
		}
	}
	return st
}

// setStateLocked updates the stored state and returns the derived status.
// Callers hold mu and must pass the result to notify after unlocking.
func (e *Engine) setStateLocked(entityType string, state State, errMsg string) Status {
	s, ok := e.statuses[entityType]
	if !ok {
		s = &Status{EntityType: entityType}
		e.statuses[entityType] = s
	}
	s.State = state
	s.LastError = errMsg
	if state == StateSynced {
		s.LastSyncedAt = e.now()
	}
	return e.statusLocked(entityType)
}

// setState is setStateLocked followed by notify.
func (e *Engine) setState(entityType string, state State, errMsg string) {
	e.mu.Lock()
	st := e.setStateLocked(entityType, state, errMsg)
	e.mu.Unlock()
	e.notify(st)
}

// settleState picks conflict or synced depending on open conflicts. A
// non-zero gen settles only while that sync generation is current; zero
// settles unless a sync is in flight, which will settle on its own.
func (e *Engine) settleState(entityType string, gen uint64) {
	e.mu.Lock()
	if !e.maySettleLocked(entityType, gen) {
		st := e.statusLocked(entityType)
		e.mu.Unlock()
		e.notify(st)
		return
	}
	state := StateSynced
	for _, c := range e.conflicts {
		if c.EntityType == entityType {
			state = StateConflict
			break
		}
	}
	st := e.setStateLocked(entityType, state, "")
	e.mu.Unlock()
	e.notify(st)
}

func (e *Engine) maySettleLocked(entityType string, gen uint64) bool {
	if gen != 0 {
		return e.generations[entityType] == gen
	}
	s, ok := e.statuses[entityType]
	return !ok || s.State != StateSyncing
}

// touch republishes the derived status, e.g. after the queue changed.
func (e *Engine) touch(entityType string) {
	e.mu.Lock()
	st := e.statusLocked(entityType)
	depth := len(e.queue)
	e.mu.Unlock()
	e.metrics.SetQueueDepth(depth)
	e.notify(st)
}

func (e *Engine) notify(st Status) {
	e.listenersMu.RLock()
	listeners := make([]StatusListener, 0, len(e.listeners))
	ids := make([]uint64, 0, len(e.listeners))
	for id := range e.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		listeners = append(listeners, e.listeners[id])
	}
	e.listenersMu.RUnlock()

	for _, l := range listeners {
		l(st)
	}
}

// call runs fn against src with the configured timeout and records metrics.
func (e *Engine) call(ctx context.Context, src source.Source, op string, fn func(ctx context.Context) error) error {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}
	start := e.now()
	err := fn(ctx)
	if err == nil && ctx.Err() != nil {
		// The source returned after the deadline without honoring ctx.
		err = ctx.Err()
	}
	e.metrics.ObserveSourceCall(src.Name(), op, e.now().Sub(start), err)
	if err != nil {
		e.logger.Debug("Source call failed",
			zap.String("source", src.Name()),
			zap.String("operation", op),
			zap.Error(err),
		)
	}
	return err
}

func (e *Engine) versionOf(en entity.Entity) int64 {
	if en == nil {
		return 0
	}
	return utils.ToInt64(en[e.cfg.VersionField])
}

// hasPendingLocked reports whether a queued or in-flight op targets key.
func (e *Engine) hasPendingLocked(key entityKey) bool {
	if e.inflight[key] > 0 {
		return true
	}
	for _, op := range e.queue {
		if op.key() == key {
			return true
		}
	}
	return false
}

// pendingBaseLocked returns the base version of the oldest queued op for
// key, or of nothing when only an in-flight op exists.
func (e *Engine) pendingBaseLocked(key entityKey) (int64, bool) {
	for _, op := range e.queue {
		if op.key() == key {
			return op.BaseVersion, true
		}
	}
	return 0, false
}

func copyOps(ops []*Operation) []Operation {
	out := make([]Operation, len(ops))
	for i, op := range ops {
		out[i] = *op
		out[i].Patch = op.Patch.Clone()
		out[i].Post = op.Post.Clone()
		out[i].Related = op.Related.Clone()
	}
	return out
}

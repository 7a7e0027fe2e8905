// Package memsource is an in-process Source backed by go-cache.
//
// It assigns versions and timestamps like a remote backend would, which
// makes it the default offline-capable backend and the test double for the
// sync engine. Failures and latency can be injected at runtime.
package memsource

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"entity-sync/core/entity"
	"entity-sync/core/source"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Source keeps entities in memory.
type Source struct {
	name   string
	fields source.Fields
	now    func() time.Time

	// mu makes compare-and-set sequences atomic; go-cache only locks
	// single operations.
	mu    sync.Mutex
	items *cache.Cache

	faultMu sync.RWMutex
	err     error
	delay   time.Duration
	calls   map[string]int
}

// Option configures a Source.
type Option func(*Source)

// WithFields overrides the id, version and timestamp field names.
func WithFields(f source.Fields) Option {
	return func(s *Source) { s.fields = f.WithDefaults() }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Source) { s.now = now }
}

// WithTTL expires entries after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Source) {
		if ttl > 0 {
			s.items = cache.New(ttl, ttl*2)
		}
	}
}

// New creates an empty source.
func New(name string, opts ...Option) *Source {
	s := &Source{
		name:   name,
		fields: source.DefaultFields(),
		now:    time.Now,
		items:  cache.New(cache.NoExpiration, 0),
		calls:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements source.Source.
func (s *Source) Name() string { return s.name }

// SetError makes every subsequent call fail with err until cleared with nil.
func (s *Source) SetError(err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.err = err
}

// SetDelay makes every subsequent call wait d or until its context ends.
func (s *Source) SetDelay(d time.Duration) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.delay = d
}

// Calls returns how many times op ("fetch", "create", "update", "delete")
// was invoked.
func (s *Source) Calls(op string) int {
	s.faultMu.RLock()
	defer s.faultMu.RUnlock()
	return s.calls[op]
}

// Put stores e as-is with the next version, simulating a write made by
// another client. It returns the stored value.
func (s *Source) Put(entityType string, e entity.Entity) entity.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.fields.ID(e)
	current, _ := s.get(entityType, id)
	stored := s.fields.Stamp(e, id, s.fields.VersionOf(current)+1, s.now())
	s.items.Set(key(entityType, id), stored, cache.DefaultExpiration)
	return stored.Clone()
}

// Get returns the stored value of entityType/id.
func (s *Source) Get(entityType, id string) (entity.Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.get(entityType, id)
	return e.Clone(), ok
}

// Fetch implements source.Source. Params are matched as equality filters on
// top-level fields.
func (s *Source) Fetch(ctx context.Context, entityType string, params map[string]string) ([]entity.Entity, error) {
	if err := s.enter(ctx, "fetch"); err != nil {
		return nil, err
	}

	prefix := entityType + "/"
	keys := make([]string, 0)
	items := s.items.Items()
	for k := range items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]entity.Entity, 0, len(keys))
	for _, k := range keys {
		e := items[k].Object.(entity.Entity)
		if !source.Matches(e, params) {
			continue
		}
		out = append(out, e.Clone())
	}
	return out, nil
}

// Create implements source.Source. A missing id is generated.
func (s *Source) Create(ctx context.Context, entityType string, e entity.Entity) (entity.Entity, error) {
	if err := s.enter(ctx, "create"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.fields.ID(e)
	if id == "" {
		id = uuid.NewString()
	}
	current, _ := s.get(entityType, id)
	stored := s.fields.Stamp(e, id, s.fields.VersionOf(current)+1, s.now())
	s.items.Set(key(entityType, id), stored, cache.DefaultExpiration)
	return stored.Clone(), nil
}

// Update implements source.Source.
func (s *Source) Update(ctx context.Context, entityType, id string, e entity.Entity, baseVersion int64) (entity.Entity, error) {
	if err := s.enter(ctx, "update"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.get(entityType, id)
	if err := s.fields.CheckVersion(entityType, id, current, baseVersion); err != nil {
		return nil, err
	}
	if !exists {
		return nil, source.ErrNotFound
	}
	stored := s.fields.Stamp(e, id, s.fields.VersionOf(current)+1, s.now())
	s.items.Set(key(entityType, id), stored, cache.DefaultExpiration)
	return stored.Clone(), nil
}

// Delete implements source.Source. Deleting a missing entity without a
// base version succeeds.
func (s *Source) Delete(ctx context.Context, entityType, id string, baseVersion int64) error {
	if err := s.enter(ctx, "delete"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, _ := s.get(entityType, id)
	if err := s.fields.CheckVersion(entityType, id, current, baseVersion); err != nil {
		return err
	}
	s.items.Delete(key(entityType, id))
	return nil
}

func (s *Source) get(entityType, id string) (entity.Entity, bool) {
	v, ok := s.items.Get(key(entityType, id))
	if !ok {
		return nil, false
	}
	return v.(entity.Entity), true
}

// enter counts the call and applies injected faults.
func (s *Source) enter(ctx context.Context, op string) error {
	s.faultMu.Lock()
	s.calls[op]++
	err, delay := s.err, s.delay
	s.faultMu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

func key(entityType, id string) string {
	return entityType + "/" + id
}

package store

import (
	"sort"
	"sync"
	"sync/atomic"

	"entity-sync/core/entity"
	"entity-sync/core/normalize"
	"entity-sync/core/schema"

	"go.uber.org/zap"
)

// Listener receives the newly published entity map. It must treat the map
// as read-only and must not mutate the store synchronously.
type Listener func(entity.Entities)

// Store is a concurrency-safe holder of normalized entities.
type Store struct {
	current atomic.Pointer[entity.Entities]

	// writeMu serializes mutations and notifications.
	writeMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   map[uint64]Listener
	nextID      uint64

	logger *zap.Logger
}

// New creates a store seeded with a copy of initial.
func New(initial entity.Entities, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		listeners: make(map[uint64]Listener),
		logger:    logger,
	}
	seed := initial.Clone()
	s.current.Store(&seed)
	return s
}

// Snapshot returns the current published map. Callers must not modify it.
func (s *Store) Snapshot() entity.Entities {
	return *s.current.Load()
}

// Entity returns the published entity for entityType/id.
func (s *Store) Entity(entityType, id string) (entity.Entity, bool) {
	return s.Snapshot().Get(entityType, id)
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

// Apply runs fn against a private deep copy of the current map. When fn
// returns nil the copy is published and subscribers are notified; otherwise
// nothing changes and fn's error is returned.
func (s *Store) Apply(fn func(draft entity.Entities) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	draft := s.Snapshot().Clone()
	if err := fn(draft); err != nil {
		return err
	}
	s.publish(draft)
	return nil
}

// Replace publishes a copy of es as the whole state.
func (s *Store) Replace(es entity.Entities) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.publish(es.Clone())
}

// Merge combines es into the current state with the given strategy.
func (s *Store) Merge(es entity.Entities, strategy normalize.Strategy) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	merged, err := normalize.MergeEntities(s.Snapshot(), es, strategy)
	if err != nil {
		return err
	}
	s.publish(merged)
	return nil
}

// AddData normalizes data with sch and deep-merges it into the store.
func (s *Store) AddData(data any, sch schema.Schema) (*normalize.Result, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := normalize.NormalizeAndMerge(data, sch, s.Snapshot())
	if err != nil {
		return nil, err
	}
	s.publish(res.Entities)
	return res, nil
}

// SetEntity stores a copy of e under entityType/id.
func (s *Store) SetEntity(entityType, id string, e entity.Entity) {
	_ = s.Apply(func(draft entity.Entities) error {
		draft.Set(entityType, id, e.Clone())
		return nil
	})
}

// UpdateEntity deep-merges patch into an existing entity. It reports false
// when the entity does not exist.
func (s *Store) UpdateEntity(entityType, id string, patch map[string]any) bool {
	found := false
	_ = s.Apply(func(draft entity.Entities) error {
		current, ok := draft.Get(entityType, id)
		if !ok {
			return errNoChange
		}
		found = true
		draft.Set(entityType, id, entity.MergeDeep(current, patch))
		return nil
	})
	return found
}

// RemoveEntity deletes entityType/id and reports whether it existed.
func (s *Store) RemoveEntity(entityType, id string) bool {
	found := false
	_ = s.Apply(func(draft entity.Entities) error {
		if !draft.Delete(entityType, id) {
			return errNoChange
		}
		found = true
		return nil
	})
	return found
}

func (s *Store) publish(next entity.Entities) {
	s.current.Store(&next)

	s.listenersMu.RLock()
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.listenersMu.RUnlock()

	s.logger.Debug("Published entities",
		zap.Int("entities", next.Len()),
		zap.Int("listeners", len(listeners)),
	)
	for _, l := range listeners {
		l(next)
	}
}

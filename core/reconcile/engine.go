package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"entity-sync/core/source"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoMirrors is returned by New without mirror sources.
var ErrNoMirrors = errors.New("reconcile needs at least one mirror source")

// Reconciler compares mirror sources with the primary and repairs them.
type Reconciler struct {
	primary source.Source
	mirrors []source.Source
	fields  source.Fields
	cache   *indexCache
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithFields overrides the id, version and timestamp field names.
func WithFields(f source.Fields) Option {
	return func(r *Reconciler) { r.fields = f.WithDefaults() }
}

// WithCacheTTL keeps fetched indices for ttl so ReconcileOne does not refetch.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Reconciler) { r.cache = newIndexCache(ttl) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// New creates a reconciler of mirrors against primary.
func New(primary source.Source, mirrors []source.Source, opts ...Option) (*Reconciler, error) {
	if primary == nil || len(mirrors) == 0 {
		return nil, ErrNoMirrors
	}
	r := &Reconciler{
		primary: primary,
		mirrors: mirrors,
		fields:  source.DefaultFields(),
		cache:   newIndexCache(0),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Reconciler) sources() []source.Source {
	return append([]source.Source{r.primary}, r.mirrors...)
}

func (r *Reconciler) cacheKey(entityType string) string {
	key := entityType
	for _, s := range r.sources() {
		key += "|" + s.Name()
	}
	return key
}

// Fetch loads entityType from every source concurrently.
func (r *Reconciler) Fetch(ctx context.Context, entityType string) (*Snapshot, error) {
	srcs := r.sources()
	indices := make([]Index, len(srcs))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range srcs {
		g.Go(func() error {
			items, err := src.Fetch(gctx, entityType, nil)
			if err != nil {
				return fmt.Errorf("fetch %s from %s: %w", entityType, src.Name(), err)
			}
			indices[i] = BuildIndex(src.Name(), r.fields.IDAttribute, items)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Snapshot{Indices: indices, Built: r.now()}, nil
}

// ReconcileAll compares every entity of entityType across sources. It always
// fetches and refreshes the cache.
func (r *Reconciler) ReconcileAll(ctx context.Context, entityType string) ([]Result, error) {
	r.cache.invalidate(r.cacheKey(entityType))
	snap, err := r.snapshot(ctx, entityType)
	if err != nil {
		return nil, err
	}
	return Compare(snap.Indices, r.fields), nil
}

// ReconcileOne compares a single entity, reusing cached indices when
// caching is enabled.
func (r *Reconciler) ReconcileOne(ctx context.Context, entityType, id string) (*Result, error) {
	snap, err := r.snapshot(ctx, entityType)
	if err != nil {
		return nil, err
	}
	result := buildResult(id, snap.Indices, r.fields)
	return &result, nil
}

// Invalidate drops cached indices of entityType.
func (r *Reconciler) Invalidate(entityType string) {
	r.cache.invalidate(r.cacheKey(entityType))
}

func (r *Reconciler) snapshot(ctx context.Context, entityType string) (*Snapshot, error) {
	return r.cache.getOrBuild(ctx, r.cacheKey(entityType), func(ctx context.Context) (*Snapshot, error) {
		return r.Fetch(ctx, entityType)
	})
}

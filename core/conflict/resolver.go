package conflict

import (
	"fmt"
	"sync"

	"entity-sync/core/entity"
	"entity-sync/core/utils"
)

// DefaultTimestampField is the field compared by LatestWins.
const DefaultTimestampField = "updatedAt"

// AnyType registers a custom merge function for every entity type.
const AnyType = "*"

// MergeFunc produces the resolved value of a conflict. It must not modify
// the conflict.
type MergeFunc func(c *SyncConflict) (entity.Entity, error)

// Resolver applies resolution strategies.
type Resolver struct {
	timestampField string

	mu     sync.RWMutex
	merges map[string]MergeFunc
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithTimestampField overrides the field compared by LatestWins.
func WithTimestampField(field string) ResolverOption {
	return func(r *Resolver) {
		if field != "" {
			r.timestampField = field
		}
	}
}

// NewResolver creates a resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		timestampField: DefaultTimestampField,
		merges:         make(map[string]MergeFunc),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register installs fn as the Custom strategy for entityType, or for all
// types when entityType is AnyType.
func (r *Resolver) Register(entityType string, fn MergeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.merges[entityType] = fn
}

// Resolve applies strategy to c.
func (r *Resolver) Resolve(c *SyncConflict, strategy Strategy) (Result, error) {
	if c == nil {
		return Result{}, fmt.Errorf("resolve: conflict must not be nil")
	}

	switch strategy {
	case LocalWins:
		return Result{Data: c.LocalData.Clone(), StrategyUsed: LocalWins}, nil
	case RemoteWins:
		return Result{Data: c.RemoteData.Clone(), StrategyUsed: RemoteWins}, nil
	case LatestWins:
		if r.localIsNewer(c) {
			return Result{Data: c.LocalData.Clone(), StrategyUsed: LatestWins}, nil
		}
		return Result{Data: c.RemoteData.Clone(), StrategyUsed: LatestWins}, nil
	case Custom:
		fn, err := r.merge(c.EntityType)
		if err != nil {
			return Result{}, err
		}
		data, err := fn(c)
		if err != nil {
			return Result{}, fmt.Errorf("custom resolver for %s: %w", c.EntityType, err)
		}
		return Result{Data: data, StrategyUsed: Custom}, nil
	case Manual:
		return Result{}, ErrManual
	default:
		return Result{}, &UnknownStrategyError{Strategy: string(strategy)}
	}
}

func (r *Resolver) merge(entityType string) (MergeFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if fn, ok := r.merges[entityType]; ok {
		return fn, nil
	}
	if fn, ok := r.merges[AnyType]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("%w for %s", ErrNoCustomResolver, entityType)
}

// localIsNewer is true only when both timestamps parse and local is strictly
// later.
func (r *Resolver) localIsNewer(c *SyncConflict) bool {
	local, ok := utils.ToTime(c.LocalData[r.timestampField])
	if !ok {
		return false
	}
	remote, ok := utils.ToTime(c.RemoteData[r.timestampField])
	if !ok {
		return false
	}
	return local.After(remote)
}

// MergeRemoteIntoLocal is a MergeFunc that deep-merges remote fields under
// local ones, keeping local leaves.
func MergeRemoteIntoLocal(c *SyncConflict) (entity.Entity, error) {
	return entity.MergeEntity(c.RemoteData, c.LocalData), nil
}

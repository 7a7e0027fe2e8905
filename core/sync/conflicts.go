package sync

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"entity-sync/core/conflict"
	"entity-sync/core/entity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Choice is a manual resolution decision.
type Choice string

const (
	ChoiceLocal  Choice = "local"
	ChoiceRemote Choice = "remote"
	ChoiceMerge  Choice = "merge"
)

// Conflicts returns the open conflicts, oldest first.
func (e *Engine) Conflicts() []*conflict.SyncConflict {
	e.mu.Lock()
	out := make([]*conflict.SyncConflict, 0, len(e.conflicts))
	for _, c := range e.conflicts {
		out = append(out, c)
	}
	e.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].DetectedAt.Equal(out[j].DetectedAt) {
			return out[i].DetectedAt.Before(out[j].DetectedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Conflict returns an open conflict by id.
func (e *Engine) Conflict(id string) (*conflict.SyncConflict, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.conflicts[id]
	return c, ok
}

// ResolveConflict closes a conflict with resolved as the entity's value.
// Queued changes to the entity are dropped, and resolved is pushed (or
// queued while offline) against the remote version. A nil resolved deletes
// the entity. Resolving an already resolved conflict is a no-op.
func (e *Engine) ResolveConflict(ctx context.Context, conflictID string, resolved entity.Entity) (entity.Entity, error) {
	return e.applyResolution(ctx, conflictID, resolved, "explicit")
}

// ResolveConflictManual resolves with the local value, the remote value, or
// merged. A second call for the same conflict is a no-op.
func (e *Engine) ResolveConflictManual(ctx context.Context, conflictID string, choice Choice, merged entity.Entity) (entity.Entity, error) {
	e.mu.Lock()
	c, open := e.conflicts[conflictID]
	_, done := e.resolved[conflictID]
	e.mu.Unlock()

	if !open {
		if done {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrConflictNotFound, conflictID)
	}

	var data entity.Entity
	switch choice {
	case ChoiceLocal:
		data = c.LocalData
	case ChoiceRemote:
		data = c.RemoteData
	case ChoiceMerge:
		if merged == nil {
			return nil, fmt.Errorf("resolve %s: merge requires merged data", conflictID)
		}
		data = merged
	default:
		return nil, fmt.Errorf("resolve %s: unknown choice %q", conflictID, choice)
	}
	return e.applyResolution(ctx, conflictID, data, "manual-"+string(choice))
}

// ResolveConflictWithStrategy resolves through the configured resolver using
// strategy. Manual returns conflict.ErrManual. Like ResolveConflictManual, a
// second call for the same conflict is a no-op.
func (e *Engine) ResolveConflictWithStrategy(ctx context.Context, conflictID string, strategy conflict.Strategy) (entity.Entity, error) {
	e.mu.Lock()
	c, open := e.conflicts[conflictID]
	_, done := e.resolved[conflictID]
	e.mu.Unlock()
	if !open {
		if done {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrConflictNotFound, conflictID)
	}
	result, err := e.resolver.Resolve(c, strategy)
	if err != nil {
		return nil, err
	}
	return e.applyResolution(ctx, conflictID, result.Data, string(result.StrategyUsed))
}

func (e *Engine) applyResolution(ctx context.Context, conflictID string, resolved entity.Entity, strategy string) (entity.Entity, error) {
	e.mu.Lock()
	c, open := e.conflicts[conflictID]
	if !open {
		_, done := e.resolved[conflictID]
		e.mu.Unlock()
		if done {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrConflictNotFound, conflictID)
	}
	delete(e.conflicts, conflictID)
	e.resolved[conflictID] = struct{}{}

	key := entityKey{entityType: c.EntityType, id: c.EntityID}
	e.queue = dropOps(e.queue, key)
	e.failed = dropOps(e.failed, key)
	e.mu.Unlock()

	e.metrics.RecordResolution(c.EntityType, strategy)
	e.logger.Info("Conflict resolved",
		zap.String("conflict_id", conflictID),
		zap.String("entity_type", c.EntityType),
		zap.String("entity_id", c.EntityID),
		zap.String("strategy", strategy),
	)

	sch, err := e.registry.Lookup(c.EntityType)
	if err != nil {
		return nil, err
	}

	switch {
	case resolved == nil && c.RemoteData == nil:
		e.store.RemoveEntity(c.EntityType, c.EntityID)
		e.settleState(c.EntityType, 0)
		return nil, nil
	case resolved != nil && reflect.DeepEqual(map[string]any(resolved), map[string]any(c.RemoteData)):
		e.store.SetEntity(c.EntityType, c.EntityID, c.RemoteData)
		e.settleState(c.EntityType, 0)
		current, _ := e.store.Entity(c.EntityType, c.EntityID)
		return current, nil
	}

	op := &Operation{
		ID:          uuid.NewString(),
		EntityType:  c.EntityType,
		EntityID:    c.EntityID,
		BaseVersion: c.RemoteVersion,
		CreatedAt:   e.now(),
		pinnedBase:  true,
		replace:     true,
	}
	switch {
	case resolved == nil:
		op.Kind = OpDelete
	case c.RemoteData == nil:
		op.Kind = OpCreate
		op.BaseVersion = 0
	default:
		op.Kind = OpUpdate
	}
	if resolved != nil {
		patch := resolved.Clone()
		patch[sch.IDAttribute] = c.EntityID
		op.Patch = patch
	}

	e.mu.Lock()
	e.seq++
	op.Seq = e.seq
	e.mu.Unlock()

	out, err := e.execute(ctx, op)
	if err != nil {
		return nil, err
	}
	e.touch(c.EntityType)
	return out, nil
}

func dropOps(ops []*Operation, key entityKey) []*Operation {
	kept := ops[:0]
	for _, op := range ops {
		if op.key() != key {
			kept = append(kept, op)
		}
	}
	return kept
}

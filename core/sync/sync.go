package sync

import (
	"context"
	"errors"
	"time"

	"entity-sync/core/conflict"
	"entity-sync/core/entity"
	"entity-sync/core/normalize"
	"entity-sync/core/schema"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SyncOptions tunes one Sync call.
type SyncOptions struct {
	// Prune removes local entities of the type that the primary source no
	// longer holds, unless they have pending changes.
	Prune bool
	// Params are passed to every source's Fetch.
	Params map[string]string
}

// SourceReport is the fetch outcome of one source.
type SourceReport struct {
	Source   string        `json:"source"`
	Count    int           `json:"count"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// ResolvedConflict reports an automatic resolution made during Sync.
type ResolvedConflict struct {
	ConflictID string            `json:"conflict_id"`
	EntityID   string            `json:"entity_id"`
	Strategy   conflict.Strategy `json:"strategy"`
	Error      string            `json:"error,omitempty"`
}

// SyncResult is the outcome of a Sync call.
type SyncResult struct {
	EntityType string `json:"entity_type"`
	Generation uint64 `json:"generation"`
	// Superseded is set when a newer sync of the type started first; nothing
	// was applied.
	Superseded bool `json:"superseded"`

	Sources   []SourceReport           `json:"sources"`
	Reconcile []ReconcileResult        `json:"reconcile,omitempty"`
	Applied   int                      `json:"applied"`
	Pruned    []string                 `json:"pruned"`
	Conflicts []*conflict.SyncConflict `json:"conflicts"`
	Resolved  []ResolvedConflict       `json:"resolved"`
	Error     string                   `json:"error,omitempty"`

	// Err is the failure that left the type in the error state.
	Err error `json:"-"`
}

var errSuperseded = errors.New("superseded")

// Sync refreshes entityType from the sources. Source failures are reported
// in the result and the type's status; the returned error is reserved for
// invalid calls such as an unregistered type.
func (e *Engine) Sync(ctx context.Context, entityType string, opts SyncOptions) (*SyncResult, error) {
	sch, err := e.registry.Lookup(entityType)
	if err != nil {
		return nil, err
	}

	gen := e.beginSync(entityType)
	res := &SyncResult{
		EntityType: entityType,
		Generation: gen,
		Pruned:     []string{},
		Conflicts:  []*conflict.SyncConflict{},
		Resolved:   []ResolvedConflict{},
	}

	fetched := e.fetchAll(ctx, entityType, opts.Params, res)

	if !e.isCurrent(entityType, gen) {
		return e.superseded(res), nil
	}
	if res.Sources[0].Error != "" {
		return e.fail(res, newSyncError("sync", entityType, "", res.Sources[0].Source, errors.New(res.Sources[0].Error))), nil
	}

	if len(e.sources) > 1 {
		names := make([]string, len(e.sources))
		answered := make([][]entity.Entity, len(e.sources))
		for i, src := range e.sources {
			names[i] = src.Name()
			if res.Sources[i].Error == "" {
				answered[i] = fetched[i]
				if answered[i] == nil {
					answered[i] = []entity.Entity{}
				}
			}
		}
		res.Reconcile = e.reconcileSources(sch.IDAttribute, names, answered)
	}

	payload := make([]any, len(fetched[0]))
	for i, item := range fetched[0] {
		payload[i] = map[string]any(item)
	}
	norm, err := normalize.Normalize(payload, schema.ArrayOf(sch))
	if err != nil {
		return e.fail(res, newSyncError("sync", entityType, "", e.sources[0].Name(), err)), nil
	}

	type detected struct {
		entityType, id string
		local, remote  entity.Entity
		base, version  int64
	}
	var found []detected

	err = e.store.Apply(func(draft entity.Entities) error {
		if !e.isCurrent(entityType, gen) {
			return errSuperseded
		}
		found = found[:0]
		res.Applied = 0
		res.Pruned = res.Pruned[:0]

		for _, t := range norm.Entities.Types() {
			for _, id := range norm.Entities.IDs(t) {
				remote := norm.Entities[t][id]
				key := entityKey{entityType: t, id: id}

				e.mu.Lock()
				pending := e.hasPendingLocked(key)
				base, queued := e.pendingBaseLocked(key)
				e.mu.Unlock()

				current, exists := draft.Get(t, id)
				switch {
				case !pending && t == entityType:
					draft.Set(t, id, remote.Clone())
					res.Applied++
				case !pending && exists:
					draft.Set(t, id, entity.MergeEntity(current, remote))
					res.Applied++
				case !pending:
					draft.Set(t, id, remote.Clone())
					res.Applied++
				case queued && e.versionOf(remote) != base:
					found = append(found, detected{t, id, current.Clone(), remote.Clone(), base, e.versionOf(remote)})
				}
			}
		}

		if opts.Prune {
			for _, id := range draft.IDs(entityType) {
				if _, ok := norm.Entities.Get(entityType, id); ok {
					continue
				}
				e.mu.Lock()
				pending := e.hasPendingLocked(entityKey{entityType: entityType, id: id})
				e.mu.Unlock()
				if pending {
					continue
				}
				draft.Delete(entityType, id)
				res.Pruned = append(res.Pruned, id)
			}
		}
		return nil
	})
	if errors.Is(err, errSuperseded) {
		return e.superseded(res), nil
	}

	for _, d := range found {
		c := e.recordConflict(d.entityType, d.id, d.local, d.remote, d.base, d.version)
		res.Conflicts = append(res.Conflicts, c)
	}

	if e.cfg.ConflictStrategy != conflict.Manual {
		for _, c := range res.Conflicts {
			res.Resolved = append(res.Resolved, e.autoResolve(ctx, c))
		}
	}

	e.metrics.RecordOperation("sync", entityType, "success")
	e.settleState(entityType, gen)
	e.logger.Info("Synced entity type",
		zap.String("entity_type", entityType),
		zap.Uint64("generation", gen),
		zap.Int("applied", res.Applied),
		zap.Int("pruned", len(res.Pruned)),
		zap.Int("conflicts", len(res.Conflicts)),
	)
	return res, nil
}

// beginSync starts a new generation for entityType.
func (e *Engine) beginSync(entityType string) uint64 {
	e.mu.Lock()
	e.generations[entityType]++
	gen := e.generations[entityType]
	st := e.setStateLocked(entityType, StateSyncing, "")
	e.mu.Unlock()
	e.notify(st)
	return gen
}

func (e *Engine) isCurrent(entityType string, gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generations[entityType] == gen
}

func (e *Engine) superseded(res *SyncResult) *SyncResult {
	res.Superseded = true
	res.Applied = 0
	res.Pruned = []string{}
	e.metrics.RecordOperation("sync", res.EntityType, "superseded")
	e.logger.Debug("Discarded superseded sync",
		zap.String("entity_type", res.EntityType),
		zap.Uint64("generation", res.Generation),
	)
	return res
}

func (e *Engine) fail(res *SyncResult, err *SyncError) *SyncResult {
	res.Err = err
	res.Error = err.Error()
	e.metrics.RecordOperation("sync", res.EntityType, "error")
	e.mu.Lock()
	if e.generations[res.EntityType] != res.Generation {
		e.mu.Unlock()
		return res
	}
	st := e.setStateLocked(res.EntityType, StateError, err.Error())
	e.mu.Unlock()
	e.notify(st)
	e.logger.Warn("Sync failed", zap.String("entity_type", res.EntityType), zap.Error(err))
	return res
}

// fetchAll queries every source concurrently. Failures are recorded in
// res.Sources, aligned with e.sources.
func (e *Engine) fetchAll(ctx context.Context, entityType string, params map[string]string, res *SyncResult) [][]entity.Entity {
	fetched := make([][]entity.Entity, len(e.sources))
	res.Sources = make([]SourceReport, len(e.sources))

	var g errgroup.Group
	for i, src := range e.sources {
		g.Go(func() error {
			start := e.now()
			var items []entity.Entity
			err := e.call(ctx, src, "fetch", func(ctx context.Context) error {
				var err error
				items, err = src.Fetch(ctx, entityType, params)
				return err
			})
			report := SourceReport{Source: src.Name(), Count: len(items), Duration: e.now().Sub(start)}
			if err != nil {
				report.Error = err.Error()
			}
			fetched[i] = items
			res.Sources[i] = report
			return nil
		})
	}
	_ = g.Wait()
	return fetched
}

// autoResolve applies the configured strategy to c.
func (e *Engine) autoResolve(ctx context.Context, c *conflict.SyncConflict) ResolvedConflict {
	out := ResolvedConflict{ConflictID: c.ID, EntityID: c.EntityID, Strategy: e.cfg.ConflictStrategy}
	result, err := e.resolver.Resolve(c, e.cfg.ConflictStrategy)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	if _, err := e.applyResolution(ctx, c.ID, result.Data, string(result.StrategyUsed)); err != nil {
		out.Error = err.Error()
	}
	return out
}

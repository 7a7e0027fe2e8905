package reconcile

import (
	"context"
	"fmt"
	"strings"

	"entity-sync/core/source"

	"go.uber.org/zap"
)

// ReconcileWithPlan compares entityType across sources and plans the
// actions opts enables. It does NOT execute them; use ApplyPlan for that.
func (r *Reconciler) ReconcileWithPlan(ctx context.Context, entityType string, opts Options) (*Plan, error) {
	r.cache.invalidate(r.cacheKey(entityType))
	snap, err := r.snapshot(ctx, entityType)
	if err != nil {
		return nil, err
	}
	return BuildPlan(entityType, snap.Indices, r.fields, opts), nil
}

// BuildPlan derives results, summary and actions from fetched indices.
// indices[0] is the primary.
func BuildPlan(entityType string, indices []Index, fields source.Fields, opts Options) *Plan {
	plan := &Plan{
		EntityType: entityType,
		Results:    Compare(indices, fields),
		Actions:    []Action{},
		Summary: Summary{
			Missing:  map[string]int{},
			Orphaned: map[string]int{},
		},
	}
	if len(indices) == 0 {
		return plan
	}
	primary := indices[0]
	plan.Primary = primary.Source
	plan.Summary.TotalItems = len(plan.Results)

	for _, result := range plan.Results {
		if len(result.Mismatch) > 0 {
			plan.Summary.Mismatches++
		}
		primaryItem, inPrimary := primary.Items[result.ID]

		for _, mirror := range indices[1:] {
			mirrorItem, inMirror := mirror.Items[result.ID]

			switch {
			case inPrimary && !inMirror:
				plan.Summary.Missing[mirror.Source]++
				if opts.DoSync {
					plan.Actions = append(plan.Actions, Action{
						Type:     ActionCopy,
						Source:   mirror.Source,
						EntityID: result.ID,
						Reason:   "missing in " + mirror.Source,
						Data:     primaryItem,
					})
					plan.Summary.SyncActions++
				}

			case !inPrimary && inMirror:
				plan.Summary.Orphaned[mirror.Source]++
				if opts.DoPurge {
					plan.Actions = append(plan.Actions, Action{
						Type:        ActionPurge,
						Source:      mirror.Source,
						EntityID:    result.ID,
						Reason:      "missing in " + primary.Source,
						BaseVersion: fields.VersionOf(mirrorItem),
					})
					plan.Summary.PurgeActions++
				}

			case inPrimary && inMirror:
				diff := CompareFields(primary.Source, primaryItem, mirror.Source, mirrorItem, fields)
				if opts.DoSync && len(diff) > 0 {
					plan.Actions = append(plan.Actions, Action{
						Type:        ActionOverwrite,
						Source:      mirror.Source,
						EntityID:    result.ID,
						Reason:      "mismatch: " + strings.Join(diff, "; "),
						Data:        primaryItem,
						BaseVersion: fields.VersionOf(mirrorItem),
					})
					plan.Summary.SyncActions++
				}
			}
		}
	}
	return plan
}

// ApplyPlan executes the actions in a plan against the mirrors. It requires
// opts.Confirmed and not opts.DryRun to actually execute.
func (r *Reconciler) ApplyPlan(ctx context.Context, plan *Plan, opts Options) (executed int, err error) {
	if !opts.Confirmed || opts.DryRun {
		return 0, nil
	}
	defer r.cache.invalidate(r.cacheKey(plan.EntityType))

	mirrors := make(map[string]source.Source, len(r.mirrors))
	for _, m := range r.mirrors {
		mirrors[m.Name()] = m
	}

	purges := make(map[string][]string)
	for _, action := range plan.Actions {
		mirror, ok := mirrors[action.Source]
		if !ok {
			return executed, fmt.Errorf("action targets unknown source %s", action.Source)
		}

		switch action.Type {
		case ActionPurge:
			if _, batch := mirror.(BatchDeleter); batch {
				purges[action.Source] = append(purges[action.Source], action.EntityID)
				continue
			}
			if err := mirror.Delete(ctx, plan.EntityType, action.EntityID, action.BaseVersion); err != nil {
				return executed, fmt.Errorf("failed to purge %s from %s: %w", action.EntityID, action.Source, err)
			}
		case ActionCopy:
			if _, err := mirror.Create(ctx, plan.EntityType, r.strip(action.Data)); err != nil {
				return executed, fmt.Errorf("failed to copy %s to %s: %w", action.EntityID, action.Source, err)
			}
		case ActionOverwrite:
			if _, err := mirror.Update(ctx, plan.EntityType, action.EntityID, r.strip(action.Data), action.BaseVersion); err != nil {
				return executed, fmt.Errorf("failed to overwrite %s in %s: %w", action.EntityID, action.Source, err)
			}
		default:
			return executed, fmt.Errorf("unknown action type %q", action.Type)
		}
		executed++
	}

	for name, ids := range purges {
		if err := mirrors[name].(BatchDeleter).DeleteBatch(ctx, plan.EntityType, ids); err != nil {
			return executed, fmt.Errorf("failed to batch purge from %s: %w", name, err)
		}
		executed += len(ids)
	}

	r.logger.Info("Reconcile plan applied",
		zap.String("entity_type", plan.EntityType),
		zap.Int("executed", executed),
	)
	return executed, nil
}

// ReconcileAndApply plans and, when confirmed, applies in one call.
func (r *Reconciler) ReconcileAndApply(ctx context.Context, entityType string, opts Options) (*Plan, int, error) {
	plan, err := r.ReconcileWithPlan(ctx, entityType, opts)
	if err != nil {
		return nil, 0, err
	}
	executed, err := r.ApplyPlan(ctx, plan, opts)
	return plan, executed, err
}

// strip drops the primary's bookkeeping so the mirror stamps its own.
func (r *Reconciler) strip(e map[string]any) map[string]any {
	out := make(map[string]any, len(e))
	for k, v := range e {
		if k == r.fields.Version || k == r.fields.Timestamp {
			continue
		}
		out[k] = v
	}
	return out
}

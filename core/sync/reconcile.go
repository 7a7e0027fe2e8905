package sync

import (
	"entity-sync/core/entity"
	"entity-sync/core/reconcile"
	"entity-sync/core/source"
)

// ReconcileResult is the cross-source view of one entity.
type ReconcileResult = reconcile.Result

// reconcileSources compares the fetched sets of every source that answered
// with the primary, sorted by id.
func (e *Engine) reconcileSources(idAttribute string, names []string, fetched [][]entity.Entity) []ReconcileResult {
	indices := make([]reconcile.Index, 0, len(names))
	for i, name := range names {
		if fetched[i] == nil {
			continue
		}
		indices = append(indices, reconcile.BuildIndex(name, idAttribute, fetched[i]))
	}
	return reconcile.Compare(indices, source.Fields{
		IDAttribute: idAttribute,
		Version:     e.cfg.VersionField,
		Timestamp:   e.cfg.TimestampField,
	})
}

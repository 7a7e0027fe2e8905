// Package reconcile compares mirror sources with the primary and repairs
// them.
//
// A Reconciler fetches an entity type from every source concurrently, keys
// each result set by id and reports, per id, which sources hold it and which
// fields differ from the primary. Version and timestamp fields are ignored
// since each backend stamps its own.
//
// # Plans
//
// ReconcileWithPlan turns the comparison into actions:
//
//   - copy: the primary holds an entity a mirror lacks (DoSync)
//   - overwrite: a mirror's copy differs from the primary (DoSync)
//   - purge: a mirror holds an entity the primary does not (DoPurge)
//
// ApplyPlan executes them only when Options.Confirmed is set and DryRun is
// not. Mirrors implementing BatchDeleter purge in one call.
//
// # Caching
//
// WithCacheTTL keeps fetched indices so repeated ReconcileOne calls do not
// refetch. Full reconciles always refetch.
package reconcile

// Package sync keeps a store.Store consistent with one or more sources.
//
// # Sync
//
// Engine.Sync fetches an entity type from every configured source
// concurrently, reconciles the results (the first source is primary and
// wins), normalizes them through the registered schema and applies them in
// one atomic store mutation. Each entity type carries a generation counter:
// starting a new sync supersedes any sync of the same type still in flight,
// and the superseded one discards its results.
//
// # Optimistic mutations
//
// Create, Update and Delete change the store immediately, then push the
// change to the primary source and mirror it to the secondary sources. A
// failed push rolls the store back to the recorded pre-image and keeps the
// operation for RetryFailed. A push rejected as a version conflict records a
// conflict.SyncConflict and keeps the local value.
//
// # Offline queue
//
// While offline, mutations are applied locally and queued with increasing
// sequence numbers. Going online replays the queue strictly in order, one
// operation at a time, stopping at the first retryable failure.
//
// # Conflicts
//
// A conflict is detected when a pending local change was based on a version
// the remote no longer holds. Conflicts are resolved explicitly through
// ResolveConflict or ResolveConflictManual, or automatically during Sync when
// Config.ConflictStrategy is not manual.
package sync

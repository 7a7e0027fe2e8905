// Package entities is the HTTP surface of the sync engine.
//
// Reads come from the local store and are denormalized unless normalized=true
// is passed; depth limits nesting. Writes go through the engine, so they are
// applied optimistically and either confirmed by the primary source, rolled
// back, or queued while offline.
//
// # Endpoints
//
//   - GET    /entities, /entities/:type, /entities/:type/:id
//   - POST   /entities/:type, PUT/PATCH/DELETE /entities/:type/:id
//   - POST   /entities/:type/normalize
//   - POST   /sync, /sync/:type (prune, other query params filter the fetch)
//   - GET    /sync/status, /sync/status/:type, /sync/queue, /sync/failed, /sync/transactions
//   - POST   /sync/online, /sync/offline, /sync/retry
//   - GET    /conflicts, /conflicts/:id
//   - POST   /conflicts/:id/resolve
//
// Errors map to 404 for unknown types, conflicts and entities, 400 for invalid
// payloads, 409 for version conflicts (the body carries the conflict), and
// 502 or 503 for source failures depending on whether a retry can succeed.
package entities

// Package source defines the boundary between the sync engine and the
// backends entities are synchronized with.
//
// A Source stores flat entity payloads per entity type. Every write returns
// the authoritative value the backend now holds, including the version and
// timestamp it assigned. Writes carrying a non-zero base version are
// conditional: when the stored version differs, the backend rejects the
// write with a *ConflictError that matches ErrConflict.
//
// Implementations live in sub-packages:
//   - memsource: in-process store backed by go-cache
//   - dbsource: SQL rows through gorm (mysql, sqlite)
//   - objectsource: one JSON object per entity in a minio bucket
//   - httpsource: a REST-style HTTP API
package source

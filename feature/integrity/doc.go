// Package integrity exposes the integrity checker over HTTP.
//
// # Endpoints
//
//   - GET  /integrity: check the whole store
//   - GET  /integrity/entities/:type/:id: check one entity
//   - POST /integrity/repair: repair the store (errors_only, dry_run)
//   - GET  /integrity/storage: object store layout (fix=true creates folders)
//   - GET  /integrity/database: entity table columns (fix=true migrates)
package integrity

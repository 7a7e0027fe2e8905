package reconcile

import (
	"context"
)

// BatchDeleter is implemented by sources that can purge many entities in
// one round trip. Apply falls back to per-entity deletes otherwise.
type BatchDeleter interface {
	DeleteBatch(ctx context.Context, entityType string, ids []string) error
}

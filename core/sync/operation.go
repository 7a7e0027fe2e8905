package sync

import (
	"time"

	"entity-sync/core/entity"
)

// OpKind is the kind of a mutation.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Operation is one local mutation awaiting or after its remote push.
type Operation struct {
	ID         string `json:"id"`
	Seq        uint64 `json:"seq"`
	Kind       OpKind `json:"kind"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	// Patch is the normalized change: a full entity for create, a partial
	// one merged onto the current value for update.
	Patch entity.Entity `json:"patch,omitempty"`
	// Related holds other entities found nested in the payload.
	Related entity.Entities `json:"related,omitempty"`
	// Post is the value pushed to the source, computed when applied locally.
	Post entity.Entity `json:"post,omitempty"`
	// BaseVersion is the version the change was made against.
	BaseVersion int64     `json:"base_version"`
	CreatedAt   time.Time `json:"created_at"`
	Attempts    int       `json:"attempts"`
	LastError   string    `json:"last_error,omitempty"`

	// pinnedBase keeps BaseVersion when the op is re-applied.
	pinnedBase bool
	// replace makes an update store Patch as-is instead of merging it.
	replace bool
	images  []image
}

type entityKey struct {
	entityType string
	id         string
}

func (op *Operation) key() entityKey {
	return entityKey{entityType: op.EntityType, id: op.EntityID}
}

// image is the pre-image of one entity touched by an operation; nil means
// the entity did not exist.
type image struct {
	key entityKey
	pre entity.Entity
}

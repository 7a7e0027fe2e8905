package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"entity-sync/core/entity"
	"entity-sync/core/utils"
)

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("entity not found")
	// ErrConflict is matched by every *ConflictError.
	ErrConflict = errors.New("version conflict")
)

// Source is a backend holding entities of one or more types.
type Source interface {
	// Name identifies the source in logs, metrics and reconcile results.
	Name() string
	// Fetch returns every entity of entityType. params narrow the query
	// where the backend supports it and are ignored otherwise.
	Fetch(ctx context.Context, entityType string, params map[string]string) ([]entity.Entity, error)
	// Create stores a new entity and returns the stored value.
	Create(ctx context.Context, entityType string, e entity.Entity) (entity.Entity, error)
	// Update replaces an entity. A non-zero baseVersion makes the write
	// conditional on the stored version.
	Update(ctx context.Context, entityType, id string, e entity.Entity, baseVersion int64) (entity.Entity, error)
	// Delete removes an entity, conditionally when baseVersion is non-zero.
	Delete(ctx context.Context, entityType, id string, baseVersion int64) error
}

// ConflictError reports a conditional write rejected by the backend.
type ConflictError struct {
	EntityType    string
	EntityID      string
	BaseVersion   int64
	RemoteVersion int64
	// Remote is the value currently held by the backend, nil when deleted.
	Remote entity.Entity
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict on %s/%s: base %d, remote %d",
		e.EntityType, e.EntityID, e.BaseVersion, e.RemoteVersion)
}

// Is makes errors.Is(err, ErrConflict) true.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Fields names the attributes backends read and stamp.
type Fields struct {
	// IDAttribute holds the entity id.
	IDAttribute string `mapstructure:"id_attribute" default:"id"`
	// Version holds the backend-assigned version.
	Version string `mapstructure:"version_field" default:"version"`
	// Timestamp holds the backend-assigned modification time.
	Timestamp string `mapstructure:"timestamp_field" default:"updatedAt"`
}

// DefaultFields returns the conventional field names.
func DefaultFields() Fields {
	return Fields{IDAttribute: "id", Version: "version", Timestamp: "updatedAt"}
}

// WithDefaults fills blank names.
func (f Fields) WithDefaults() Fields {
	d := DefaultFields()
	if f.IDAttribute == "" {
		f.IDAttribute = d.IDAttribute
	}
	if f.Version == "" {
		f.Version = d.Version
	}
	if f.Timestamp == "" {
		f.Timestamp = d.Timestamp
	}
	return f
}

// ID returns the id of e.
func (f Fields) ID(e entity.Entity) string {
	return utils.ToString(e[f.IDAttribute])
}

// VersionOf returns the version stored in e, 0 when absent.
func (f Fields) VersionOf(e entity.Entity) int64 {
	if e == nil {
		return 0
	}
	return utils.ToInt64(e[f.Version])
}

// Stamp returns a copy of e carrying id, version and timestamp.
func (f Fields) Stamp(e entity.Entity, id string, version int64, now time.Time) entity.Entity {
	out := e.Clone()
	if out == nil {
		out = entity.Entity{}
	}
	out[f.IDAttribute] = id
	out[f.Version] = version
	out[f.Timestamp] = now.UTC().Format(time.RFC3339Nano)
	return out
}

// CheckVersion returns a *ConflictError when baseVersion is set and differs
// from the version of current.
func (f Fields) CheckVersion(entityType, id string, current entity.Entity, baseVersion int64) error {
	if baseVersion == 0 {
		return nil
	}
	remote := f.VersionOf(current)
	if remote == baseVersion {
		return nil
	}
	return &ConflictError{
		EntityType:    entityType,
		EntityID:      id,
		BaseVersion:   baseVersion,
		RemoteVersion: remote,
		Remote:        current.Clone(),
	}
}

// Matches reports whether every param equals the scalar value of the
// same top-level field of e.
func Matches(e entity.Entity, params map[string]string) bool {
	for field, want := range params {
		v, ok := e[field]
		if !ok || !utils.IsScalar(v) || utils.ToString(v) != want {
			return false
		}
	}
	return true
}

// IsPermanent reports whether err says retrying the same call cannot
// succeed. Backends mark such errors with a Permanent() bool method.
func IsPermanent(err error) bool {
	var p interface{ Permanent() bool }
	if errors.As(err, &p) {
		return p.Permanent()
	}
	return errors.Is(err, ErrNotFound)
}

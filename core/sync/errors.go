package sync

import (
	"errors"
	"fmt"

	"entity-sync/core/conflict"
	"entity-sync/core/source"
)

var (
	// ErrConflict matches every *ConflictError.
	ErrConflict = source.ErrConflict
	// ErrConflictNotFound is returned for an unknown conflict id.
	ErrConflictNotFound = errors.New("conflict not found")
	// ErrOffline is returned by operations that need connectivity.
	ErrOffline = errors.New("engine is offline")
	// ErrNoSources is returned by New without a primary source.
	ErrNoSources = errors.New("at least one source is required")
)

// SyncError describes a failed source interaction.
type SyncError struct {
	// Op is the failed operation: sync, create, update or delete.
	Op         string
	EntityType string
	EntityID   string
	Source     string
	// Retryable is false when repeating the call cannot succeed.
	Retryable bool
	Err       error
}

func (e *SyncError) Error() string {
	target := e.EntityType
	if e.EntityID != "" {
		target += "/" + e.EntityID
	}
	return fmt.Sprintf("%s %s via %s: %v", e.Op, target, e.Source, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// ConflictError is returned when a push is rejected as a version conflict.
type ConflictError struct {
	Conflict *conflict.SyncConflict
	Err      error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict %s on %s/%s: %v", e.Conflict.ID, e.Conflict.EntityType, e.Conflict.EntityID, e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrConflict) true.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func newSyncError(op, entityType, entityID, sourceName string, err error) *SyncError {
	return &SyncError{
		Op:         op,
		EntityType: entityType,
		EntityID:   entityID,
		Source:     sourceName,
		Retryable:  !source.IsPermanent(err),
		Err:        err,
	}
}

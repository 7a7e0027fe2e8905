package sync

import "time"

// State is the sync state of one entity type.
type State string

const (
	StateIdle     State = "idle"
	StateSyncing  State = "syncing"
	StateSynced   State = "synced"
	StateConflict State = "conflict"
	StateError    State = "error"
)

// Status is a point-in-time view of one entity type.
type Status struct {
	EntityType string `json:"entity_type"`
	State      State  `json:"state"`
	// Generation is the number of syncs started for the type.
	Generation   uint64    `json:"generation"`
	LastSyncedAt time.Time `json:"last_synced_at,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	// PendingChanges counts queued operations for the type.
	PendingChanges int  `json:"pending_changes"`
	Conflicts      int  `json:"conflicts"`
	Online         bool `json:"online"`
}

// StatusListener receives status changes.
type StatusListener func(Status)

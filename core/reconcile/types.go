package reconcile

import (
	"entity-sync/core/entity"
)

// Result is the cross-source view of one entity.
type Result struct {
	// ID is the entity id.
	ID string `json:"id"`

	// Present maps a source name to whether it holds the entity.
	Present map[string]bool `json:"present"`

	// Mismatch lists fields differing from the primary, e.g.
	// "title: api=a cache=b".
	Mismatch []string `json:"mismatch"`
}

// Index is the fetched entities of one source keyed by id.
type Index struct {
	Source string
	Items  map[string]entity.Entity
}

// ActionType represents the type of mutation action.
type ActionType string

const (
	// ActionCopy creates an entity the mirror is missing.
	ActionCopy ActionType = "copy"
	// ActionOverwrite replaces a mirror's diverging copy with the primary's.
	ActionOverwrite ActionType = "overwrite"
	// ActionPurge deletes an entity the primary no longer holds.
	ActionPurge ActionType = "purge"
)

// Action represents a planned mutation of one mirror.
type Action struct {
	// Type specifies the action to perform.
	Type ActionType `json:"type"`

	// Source is the mirror the action targets.
	Source string `json:"source"`

	// EntityID is the entity identifier.
	EntityID string `json:"entity_id"`

	// Reason explains why this action is needed.
	Reason string `json:"reason"`

	// Data is the primary's value for copy and overwrite.
	Data entity.Entity `json:"-"`

	// BaseVersion is the mirror's version for overwrite and purge.
	BaseVersion int64 `json:"base_version,omitempty"`
}

// Plan contains reconciliation results and planned actions.
type Plan struct {
	EntityType string   `json:"entity_type"`
	Primary    string   `json:"primary"`
	Results    []Result `json:"results"`
	Actions    []Action `json:"actions"`
	Summary    Summary  `json:"summary"`
}

// Summary provides aggregate counts for a plan.
type Summary struct {
	// TotalItems is the number of distinct ids across sources.
	TotalItems int `json:"total_items"`

	// Missing counts, per mirror, ids the primary holds and the mirror lacks.
	Missing map[string]int `json:"missing"`

	// Orphaned counts, per mirror, ids only the mirror holds.
	Orphaned map[string]int `json:"orphaned"`

	// Mismatches counts ids with field discrepancies.
	Mismatches int `json:"mismatches"`

	PurgeActions int `json:"purge_actions"`
	SyncActions  int `json:"sync_actions"`
}

// Options controls purge and sync planning and execution.
type Options struct {
	// DryRun prevents execution of any mutations if true.
	DryRun bool

	// DoPurge deletes mirror entities the primary no longer holds.
	DoPurge bool

	// DoSync copies missing entities and overwrites diverging ones.
	DoSync bool

	// Confirmed indicates the caller accepted destructive actions.
	// If false, mutations will not execute regardless of DryRun.
	Confirmed bool
}

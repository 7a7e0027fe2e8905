package monitor

import (
	"time"

	"entity-sync/core/integrity"
)

// Status is the result of the most recent check.
type Status string

const (
	StatusUnknown  Status = "unknown"
	StatusChecking Status = "checking"
	StatusValid    Status = "valid"
	StatusInvalid  Status = "invalid"
)

// EventType names a monitor event.
type EventType string

const (
	EventStatusChange    EventType = "status-change"
	EventCheckComplete   EventType = "check-complete"
	EventSnapshotCreated EventType = "snapshot-created"
	EventDriftDetected   EventType = "drift-detected"
)

// Event is delivered to listeners. Only the fields relevant to Type are set.
type Event struct {
	Type     EventType         `json:"type"`
	Status   Status            `json:"status,omitempty"`
	Report   *integrity.Report `json:"report,omitempty"`
	Snapshot *StateSnapshot    `json:"snapshot,omitempty"`
	Drift    *DriftResult      `json:"drift,omitempty"`
	At       time.Time         `json:"at"`
}

// Listener receives events.
type Listener func(Event)

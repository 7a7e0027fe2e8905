package monitor

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"entity-sync/core/entity"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StateSnapshot is an immutable serialized copy of entity state. The
// encoding is for comparison only and is not a storage format.
type StateSnapshot struct {
	ID                 string    `json:"id"`
	Label              string    `json:"label,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
	SerializedEntities []byte    `json:"-"`
	Size               int       `json:"size"`
}

// Entities decodes the snapshot.
func (s *StateSnapshot) Entities() (entity.Entities, error) {
	var es entity.Entities
	if err := json.Unmarshal(s.SerializedEntities, &es); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", s.ID, err)
	}
	return es, nil
}

func (s *StateSnapshot) clone() *StateSnapshot {
	c := *s
	c.SerializedEntities = bytes.Clone(s.SerializedEntities)
	return &c
}

// CreateSnapshot serializes es and keeps it until DiscardSnapshot.
func (m *Monitor) CreateSnapshot(es entity.Entities, label string) (*StateSnapshot, error) {
	data, err := json.Marshal(es)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	snap := &StateSnapshot{
		ID:                 uuid.NewString(),
		Label:              label,
		Timestamp:          m.now(),
		SerializedEntities: data,
		Size:               len(data),
	}

	m.mu.Lock()
	m.seq++
	m.snapshots[snap.ID] = snapshotEntry{snap: snap, seq: m.seq}
	m.mu.Unlock()

	m.logger.Info("Snapshot created",
		zap.String("snapshot_id", snap.ID),
		zap.String("label", label),
		zap.Int("bytes", len(data)),
	)
	m.emit(Event{Type: EventSnapshotCreated, Snapshot: snap.clone(), At: snap.Timestamp})
	return snap.clone(), nil
}

// Snapshot returns a copy of the snapshot with id.
func (m *Monitor) Snapshot(id string) (*StateSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.snapshots[id]
	if !ok {
		return nil, false
	}
	return entry.snap.clone(), true
}

// Snapshots returns copies of every retained snapshot, oldest first.
func (m *Monitor) Snapshots() []*StateSnapshot {
	m.mu.Lock()
	entries := make([]snapshotEntry, 0, len(m.snapshots))
	for _, e := range m.snapshots {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([]*StateSnapshot, len(entries))
	for i, e := range entries {
		out[i] = e.snap.clone()
	}
	return out
}

// DiscardSnapshot drops a snapshot and reports whether it existed.
func (m *Monitor) DiscardSnapshot(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snapshots[id]; !ok {
		return false
	}
	delete(m.snapshots, id)
	return true
}

// CompareWithSnapshot reports drift from the snapshot to es.
func (m *Monitor) CompareWithSnapshot(es entity.Entities, snapshotID string) (*DriftResult, error) {
	m.mu.Lock()
	entry, ok := m.snapshots[snapshotID]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, snapshotID)
	}
	return m.drift(entry.snap.SerializedEntities, es)
}

// DetectDrift reports drift from the entities of the last completed check
// to es.
func (m *Monitor) DetectDrift(es entity.Entities) (*DriftResult, error) {
	m.mu.Lock()
	baseline := m.baseline
	m.mu.Unlock()
	if baseline == nil {
		return nil, ErrNoBaseline
	}
	return m.drift(baseline, es)
}

func (m *Monitor) drift(baseline []byte, es entity.Entities) (*DriftResult, error) {
	current, err := json.Marshal(es)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entities: %w", err)
	}
	res, err := diffJSON(baseline, current)
	if err != nil {
		return nil, err
	}
	if res.HasDrift {
		m.logger.Info("Drift detected", zap.Int("differences", len(res.Differences)))
		m.emit(Event{Type: EventDriftDetected, Drift: res, At: m.now()})
	}
	return res, nil
}

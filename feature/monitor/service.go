package monitor

import (
	"context"
	"sync"

	"entity-sync/core/entity"
	"entity-sync/core/integrity"
	coremonitor "entity-sync/core/monitor"
	"entity-sync/core/store"

	"go.uber.org/zap"
)

// DefaultEventLimit bounds the recent event history.
const DefaultEventLimit = 100

// StatusView is the monitor state returned by the status endpoint.
type StatusView struct {
	Status     coremonitor.Status `json:"status"`
	Running    bool               `json:"running"`
	LastReport *integrity.Report  `json:"last_report,omitempty"`
	Snapshots  int                `json:"snapshots"`
}

// SnapshotView is a snapshot with its decoded entities.
type SnapshotView struct {
	*coremonitor.StateSnapshot
	Entities entity.Entities `json:"entities,omitempty"`
}

// Service exposes the consistency monitor against the live store.
type Service struct {
	store   *store.Store
	monitor *coremonitor.Monitor
	logger  *zap.Logger

	mu     sync.Mutex
	events []coremonitor.Event
	limit  int
	unsub  func()
}

// NewService creates a service and starts recording monitor events.
func NewService(st *store.Store, m *coremonitor.Monitor, logger *zap.Logger) *Service {
	s := &Service{store: st, monitor: m, logger: logger, limit: DefaultEventLimit}
	s.unsub = m.Subscribe(s.record)
	return s
}

// Close stops recording events.
func (s *Service) Close() {
	if s.unsub != nil {
		s.unsub()
	}
}

func (s *Service) record(ev coremonitor.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	if over := len(s.events) - s.limit; over > 0 {
		s.events = append([]coremonitor.Event(nil), s.events[over:]...)
	}
}

// Events returns the recorded events, oldest first.
func (s *Service) Events() []coremonitor.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]coremonitor.Event(nil), s.events...)
}

// Status reports the monitor state.
func (s *Service) Status() StatusView {
	return StatusView{
		Status:     s.monitor.Status(),
		Running:    s.monitor.Running(),
		LastReport: s.monitor.LastReport(),
		Snapshots:  len(s.monitor.Snapshots()),
	}
}

// Check runs an integrity check over the current store contents.
func (s *Service) Check(ctx context.Context) (*integrity.Report, error) {
	return s.monitor.Check(ctx, s.store.Snapshot())
}

// DetectDrift compares the store with the last completed check.
func (s *Service) DetectDrift() (*coremonitor.DriftResult, error) {
	return s.monitor.DetectDrift(s.store.Snapshot())
}

// CreateSnapshot captures the current store contents.
func (s *Service) CreateSnapshot(label string) (*coremonitor.StateSnapshot, error) {
	return s.monitor.CreateSnapshot(s.store.Snapshot(), label)
}

// Snapshots lists the retained snapshots.
func (s *Service) Snapshots() []*coremonitor.StateSnapshot {
	return s.monitor.Snapshots()
}

// Snapshot returns one snapshot, decoding its entities when withEntities is set.
func (s *Service) Snapshot(id string, withEntities bool) (*SnapshotView, error) {
	snap, ok := s.monitor.Snapshot(id)
	if !ok {
		return nil, coremonitor.ErrSnapshotNotFound
	}
	view := &SnapshotView{StateSnapshot: snap}
	if withEntities {
		es, err := snap.Entities()
		if err != nil {
			return nil, err
		}
		view.Entities = es
	}
	return view, nil
}

// DiscardSnapshot removes a snapshot.
func (s *Service) DiscardSnapshot(id string) error {
	if !s.monitor.DiscardSnapshot(id) {
		return coremonitor.ErrSnapshotNotFound
	}
	return nil
}

// CompareWithSnapshot diffs the store against a snapshot.
func (s *Service) CompareWithSnapshot(id string) (*coremonitor.DriftResult, error) {
	return s.monitor.CompareWithSnapshot(s.store.Snapshot(), id)
}

package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"entity-sync/core/entity"
	"entity-sync/core/integrity"
	"entity-sync/core/metrics"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Provider returns the entities a periodic check should inspect.
type Provider func() entity.Entities

type snapshotEntry struct {
	snap *StateSnapshot
	seq  uint64
}

// Monitor tracks integrity status over time.
type Monitor struct {
	checker *integrity.Checker
	metrics *metrics.SyncMetrics
	logger  *zap.Logger
	now     func() time.Time
	sf      singleflight.Group

	mu        sync.Mutex
	status    Status
	report    *integrity.Report
	baseline  []byte
	snapshots map[string]snapshotEntry
	seq       uint64

	listenersMu sync.RWMutex
	listeners   map[uint64]Listener
	nextID      uint64

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithMetrics records check outcomes.
func WithMetrics(m *metrics.SyncMetrics) Option {
	return func(mon *Monitor) { mon.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(mon *Monitor) { mon.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(mon *Monitor) { mon.now = now }
}

// New creates a monitor in the unknown state.
func New(checker *integrity.Checker, opts ...Option) *Monitor {
	m := &Monitor{
		checker:   checker,
		logger:    zap.NewNop(),
		now:       time.Now,
		status:    StatusUnknown,
		snapshots: make(map[string]snapshotEntry),
		listeners: make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Status returns the current status.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// LastReport returns the report of the last completed check, or nil.
func (m *Monitor) LastReport() *integrity.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.report
}

// Subscribe registers fn and returns a function that removes it.
func (m *Monitor) Subscribe(fn Listener) func() {
	m.listenersMu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.listenersMu.Lock()
			delete(m.listeners, id)
			m.listenersMu.Unlock()
		})
	}
}

// Check validates es. While a check is running, other callers wait for it
// and receive its report instead of starting another pass.
func (m *Monitor) Check(ctx context.Context, es entity.Entities) (*integrity.Report, error) {
	ch := m.sf.DoChan("check", func() (any, error) {
		return m.runCheck(ctx, es)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			m.logger.Debug("Joined in-flight integrity check")
		}
		return res.Val.(*integrity.Report), nil
	}
}

func (m *Monitor) runCheck(ctx context.Context, es entity.Entities) (*integrity.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.setStatus(StatusChecking)

	encoded, err := json.Marshal(es)
	if err != nil {
		m.setStatus(StatusUnknown)
		return nil, fmt.Errorf("failed to encode entities: %w", err)
	}
	report := m.checker.Check(es)

	status := StatusValid
	if !report.Valid {
		status = StatusInvalid
	}
	m.mu.Lock()
	m.report = report
	m.baseline = encoded
	m.mu.Unlock()

	m.metrics.RecordCheck(report.Valid, report.BySeverity())
	m.setStatus(status)
	m.logger.Info("Integrity check complete",
		zap.String("status", string(status)),
		zap.Int("errors", report.Summary.Errors),
		zap.Int("warnings", report.Summary.Warnings),
		zap.Int("infos", report.Summary.Infos),
	)
	m.emit(Event{Type: EventCheckComplete, Status: status, Report: report, At: m.now()})
	return report, nil
}

func (m *Monitor) setStatus(s Status) {
	m.mu.Lock()
	changed := m.status != s
	m.status = s
	m.mu.Unlock()
	if changed {
		m.emit(Event{Type: EventStatusChange, Status: s, At: m.now()})
	}
}

func (m *Monitor) emit(ev Event) {
	m.listenersMu.RLock()
	ids := make([]uint64, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	listeners := make([]Listener, len(ids))
	for i, id := range ids {
		listeners[i] = m.listeners[id]
	}
	m.listenersMu.RUnlock()

	for _, l := range listeners {
		l(ev)
	}
}

// Start checks provider's entities every interval until Stop or ctx ends.
// Each tick first reports drift from the previous check, then checks.
func (m *Monitor) Start(ctx context.Context, interval time.Duration, provider Provider) error {
	if interval <= 0 {
		return fmt.Errorf("monitor interval must be positive, got %s", interval)
	}
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.done != nil {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		m.logger.Info("Consistency monitor started", zap.Duration("interval", interval))
		for {
			select {
			case <-ctx.Done():
				m.logger.Info("Consistency monitor stopped")
				return
			case <-ticker.C:
				m.tick(ctx, provider())
			}
		}
	}()
	return nil
}

func (m *Monitor) tick(ctx context.Context, es entity.Entities) {
	if _, err := m.DetectDrift(es); err != nil && !errors.Is(err, ErrNoBaseline) {
		m.logger.Warn("Drift detection failed", zap.Error(err))
	}
	if _, err := m.Check(ctx, es); err != nil && ctx.Err() == nil {
		m.logger.Warn("Periodic integrity check failed", zap.Error(err))
	}
}

// Stop ends periodic checks and waits for the loop to exit. It is safe to
// call when not running.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether periodic checks are active.
func (m *Monitor) Running() bool {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	return m.done != nil
}

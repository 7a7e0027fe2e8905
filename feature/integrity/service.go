package integrity

import (
	"context"
	"errors"
	"fmt"

	"entity-sync/core/database"
	"entity-sync/core/entity"
	coreintegrity "entity-sync/core/integrity"
	"entity-sync/core/metrics"
	"entity-sync/core/storage"
	"entity-sync/core/store"
	"entity-sync/feature/integrity/checks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrBackendDisabled is returned for checks of a backend that is not configured.
var ErrBackendDisabled = errors.New("backend not configured")

// RepairOutcome is the result of a repair request.
type RepairOutcome struct {
	DryRun    bool                      `json:"dry_run"`
	Plan      *coreintegrity.Plan       `json:"plan"`
	Repairs   []coreintegrity.Repair    `json:"repairs"`
	Remaining []coreintegrity.Violation `json:"remaining"`
	Before    coreintegrity.Summary     `json:"before"`
	After     *coreintegrity.Summary    `json:"after,omitempty"`
}

// Service handles integrity checks.
type Service struct {
	store   *store.Store
	checker *coreintegrity.Checker
	metrics *metrics.SyncMetrics
	logger  *zap.Logger

	db     *gorm.DB
	client storage.Client
	bucket string
	prefix string
}

// NewService creates a new integrity service. db and client may be nil when
// the corresponding backend is disabled.
func NewService(st *store.Store, checker *coreintegrity.Checker, m *metrics.SyncMetrics, logger *zap.Logger, db *gorm.DB, client storage.Client, bucket, prefix string) *Service {
	return &Service{
		store:   st,
		checker: checker,
		metrics: m,
		logger:  logger,
		db:      db,
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
	}
}

// Check validates the current store contents.
func (s *Service) Check() *coreintegrity.Report {
	report := s.checker.Check(s.store.Snapshot())
	s.metrics.RecordCheck(report.Valid, report.BySeverity())
	return report
}

// CheckEntity validates one entity. ok is false when it does not exist.
func (s *Service) CheckEntity(entityType, id string) (violations []coreintegrity.Violation, ok bool) {
	es := s.store.Snapshot()
	if _, ok := es.Get(entityType, id); !ok {
		return nil, false
	}
	return s.checker.CheckEntity(entityType, id, es), true
}

// Repair checks and repairs the store in one atomic write. With dryRun the
// plan is computed but nothing is published.
func (s *Service) Repair(opts coreintegrity.RepairOptions, dryRun bool) (*RepairOutcome, error) {
	out := &RepairOutcome{DryRun: dryRun}

	run := func(es entity.Entities) entity.Entities {
		report := s.checker.Check(es)
		plan := s.checker.BuildPlan(report, opts)
		repaired, repairs := coreintegrity.ApplyPlan(es, plan)
		out.Plan = plan
		out.Repairs = repairs
		out.Remaining = plan.Remaining
		out.Before = report.Summary
		return repaired
	}

	if dryRun {
		run(s.store.Snapshot())
		return out, nil
	}

	err := s.store.Apply(func(draft entity.Entities) error {
		repaired := run(draft)
		for t := range draft {
			delete(draft, t)
		}
		for t, byID := range repaired {
			draft[t] = byID
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply repairs: %w", err)
	}

	after := s.Check().Summary
	out.After = &after
	s.logger.Info("Integrity repair applied",
		zap.Int("repairs", len(out.Repairs)),
		zap.Int("remaining", len(out.Remaining)),
	)
	return out, nil
}

// CheckStorage verifies the object store layout for every registered type.
func (s *Service) CheckStorage(ctx context.Context) (*checks.StorageReport, error) {
	if s.client == nil {
		return nil, ErrBackendDisabled
	}
	return checks.CheckStorage(ctx, s.client, s.bucket, s.prefix, s.checker.Registry().Keys())
}

// FixStorage creates the missing type folders.
func (s *Service) FixStorage(ctx context.Context, missing []string) error {
	if s.client == nil {
		return ErrBackendDisabled
	}
	return checks.FixStorage(ctx, s.client, s.bucket, s.prefix, s.logger, missing)
}

// CheckDatabase verifies the entity table.
func (s *Service) CheckDatabase() (*database.TableReport, error) {
	if s.db == nil {
		return nil, ErrBackendDisabled
	}
	return checks.CheckDatabase(s.db)
}

// FixDatabase migrates the entity table.
func (s *Service) FixDatabase(ctx context.Context) error {
	if s.db == nil {
		return ErrBackendDisabled
	}
	return checks.FixDatabase(ctx, s.db)
}

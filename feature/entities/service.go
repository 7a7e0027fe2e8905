package entities

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"entity-sync/core/conflict"
	"entity-sync/core/entity"
	"entity-sync/core/normalize"
	"entity-sync/core/schema"
	coresync "entity-sync/core/sync"

	"go.uber.org/zap"
)

// ErrBadRequest marks malformed requests.
var ErrBadRequest = errors.New("bad request")

// TypeSummary is one registered entity type with its local count.
type TypeSummary struct {
	Type   string          `json:"type"`
	Count  int             `json:"count"`
	Status coresync.Status `json:"status"`
}

// ReadOptions selects the shape of entity reads.
type ReadOptions struct {
	// Normalized returns the stored records with ids in place of relations.
	Normalized bool
	// Depth limits denormalization; 0 is unlimited.
	Depth int
}

// Service serves entity reads and routes writes through the sync engine.
type Service struct {
	engine   *coresync.Engine
	registry *schema.Registry
	logger   *zap.Logger
}

// NewService creates a new entities service.
func NewService(engine *coresync.Engine, registry *schema.Registry, logger *zap.Logger) *Service {
	return &Service{engine: engine, registry: registry, logger: logger}
}

// Types summarizes every registered type.
func (s *Service) Types() []TypeSummary {
	es := s.engine.Store().Snapshot()
	keys := s.registry.Keys()
	out := make([]TypeSummary, 0, len(keys))
	for _, k := range keys {
		out = append(out, TypeSummary{Type: k, Count: len(es[k]), Status: s.engine.Status(k)})
	}
	return out
}

// List returns every entity of entityType ordered by id.
func (s *Service) List(entityType string, opts ReadOptions) ([]any, error) {
	sch, err := s.registry.Lookup(entityType)
	if err != nil {
		return nil, err
	}
	es := s.engine.Store().Snapshot()
	ids := es.IDs(entityType)
	sort.Strings(ids)

	if opts.Normalized {
		out := make([]any, 0, len(ids))
		for _, id := range ids {
			e, _ := es.Get(entityType, id)
			out = append(out, e)
		}
		return out, nil
	}
	return normalize.DenormalizeMany(ids, sch, es, normalize.WithMaxDepth(opts.Depth)), nil
}

// Get returns one entity. ok is false when it does not exist.
func (s *Service) Get(entityType, id string, opts ReadOptions) (value any, ok bool, err error) {
	sch, err := s.registry.Lookup(entityType)
	if err != nil {
		return nil, false, err
	}
	es := s.engine.Store().Snapshot()
	e, found := es.Get(entityType, id)
	if !found {
		return nil, false, nil
	}
	if opts.Normalized {
		return e, true, nil
	}
	return normalize.Denormalize(id, sch, es, normalize.WithMaxDepth(opts.Depth)), true, nil
}

// Normalize previews how payload would be stored without writing it.
func (s *Service) Normalize(entityType string, payload any) (*normalize.Result, error) {
	sch, err := s.registry.Lookup(entityType)
	if err != nil {
		return nil, err
	}
	if _, many := payload.([]any); many {
		return normalize.Normalize(payload, schema.ArrayOf(sch))
	}
	return normalize.Normalize(payload, sch)
}

// Create creates an entity. An empty id is taken from the payload or generated.
func (s *Service) Create(ctx context.Context, entityType, id string, payload map[string]any) (entity.Entity, error) {
	return s.engine.Create(ctx, entityType, id, payload)
}

// Update merges payload onto an entity.
func (s *Service) Update(ctx context.Context, entityType, id string, payload map[string]any) (entity.Entity, error) {
	return s.engine.Update(ctx, entityType, id, payload)
}

// Delete removes an entity.
func (s *Service) Delete(ctx context.Context, entityType, id string) error {
	return s.engine.Delete(ctx, entityType, id)
}

// Sync refreshes entityType from the sources.
func (s *Service) Sync(ctx context.Context, entityType string, opts coresync.SyncOptions) (*coresync.SyncResult, error) {
	res, err := s.engine.Sync(ctx, entityType, opts)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Sync finished",
		zap.String("entity_type", entityType),
		zap.Uint64("generation", res.Generation),
		zap.Int("applied", res.Applied),
		zap.Int("conflicts", len(res.Conflicts)),
		zap.Bool("superseded", res.Superseded),
	)
	return res, nil
}

// SyncAll syncs every registered type in registry order.
func (s *Service) SyncAll(ctx context.Context, opts coresync.SyncOptions) ([]*coresync.SyncResult, error) {
	keys := s.registry.Keys()
	out := make([]*coresync.SyncResult, 0, len(keys))
	for _, k := range keys {
		res, err := s.Sync(ctx, k, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// Engine returns the underlying engine.
func (s *Service) Engine() *coresync.Engine {
	return s.engine
}

// Resolve closes a conflict with an explicit choice, or by strategy when
// strategy is set.
func (s *Service) Resolve(ctx context.Context, id string, req ResolveRequest) (entity.Entity, error) {
	if req.Strategy != "" {
		strategy, err := conflict.ParseStrategy(req.Strategy)
		if err != nil {
			return nil, err
		}
		return s.engine.ResolveConflictWithStrategy(ctx, id, strategy)
	}
	choice := coresync.Choice(req.Choice)
	switch choice {
	case coresync.ChoiceLocal, coresync.ChoiceRemote:
	case coresync.ChoiceMerge:
		if req.Data == nil {
			return nil, fmt.Errorf("%w: merge requires data", ErrBadRequest)
		}
	default:
		return nil, fmt.Errorf("%w: unknown choice %q", ErrBadRequest, req.Choice)
	}
	return s.engine.ResolveConflictManual(ctx, id, choice, req.Data)
}

// ResolveRequest is the body of a conflict resolution.
type ResolveRequest struct {
	// Choice is local, remote or merge.
	Choice string `json:"choice"`
	// Data is the merged value for the merge choice.
	Data entity.Entity `json:"data"`
	// Strategy resolves through the resolver instead of Choice.
	Strategy string `json:"strategy"`
}

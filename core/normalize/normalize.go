package normalize

import (
	"fmt"
	"reflect"

	"entity-sync/core/entity"
	"entity-sync/core/schema"
	"entity-sync/core/utils"
)

// Result is the output of a normalization.
type Result struct {
	// Entities holds every entity found in the payload.
	Entities entity.Entities `json:"entities"`
	// Result is the root id (string) or root ids ([]string) of the payload.
	Result any `json:"result"`
}

// IDs returns Result as a slice regardless of payload shape.
func (r *Result) IDs() []string {
	switch v := r.Result.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	default:
		return nil
	}
}

type normalizer struct {
	entities entity.Entities
	// inProgress guards against payloads whose Go maps reference themselves.
	inProgress map[uintptr]string
}

// Normalize flattens data according to s.
func Normalize(data any, s schema.Schema) (*Result, error) {
	if s == nil {
		return nil, fmt.Errorf("normalize: schema must not be nil")
	}
	root, many := s.Entity()
	if root == nil {
		return nil, fmt.Errorf("normalize: schema has no entity")
	}

	n := &normalizer{
		entities:   entity.Entities{},
		inProgress: make(map[uintptr]string),
	}

	if many {
		items, ok := entity.AsSlice(data)
		if !ok {
			return nil, &ValidationError{Path: root.Key, EntityType: root.Key, Reason: "expected an array"}
		}
		ids := make([]string, 0, len(items))
		for i, item := range items {
			ref, err := n.visitEntity(item, root, fmt.Sprintf("%s[%d]", root.Key, i))
			if err != nil {
				return nil, err
			}
			if ref != nil {
				ids = append(ids, ref.(string))
			}
		}
		return &Result{Entities: n.entities, Result: ids}, nil
	}

	ref, err := n.visitEntity(data, root, root.Key)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, &ValidationError{Path: root.Key, EntityType: root.Key, Reason: "payload is empty"}
	}
	return &Result{Entities: n.entities, Result: ref}, nil
}

// NormalizeAndMerge normalizes data and deep-merges the result into a copy of
// existing. existing is never modified.
func NormalizeAndMerge(data any, s schema.Schema, existing entity.Entities) (*Result, error) {
	res, err := Normalize(data, s)
	if err != nil {
		return nil, err
	}
	merged, err := MergeEntities(existing, res.Entities, StrategyMerge)
	if err != nil {
		return nil, err
	}
	return &Result{Entities: merged, Result: res.Result}, nil
}

func (n *normalizer) visit(value any, s schema.Schema, path string) (any, error) {
	target, many := s.Entity()
	if !many {
		return n.visitEntity(value, target, path)
	}
	if value == nil {
		return nil, nil
	}
	items, ok := entity.AsSlice(value)
	if !ok {
		return nil, &ValidationError{Path: path, EntityType: target.Key, Reason: "expected an array"}
	}
	refs := make([]any, 0, len(items))
	for i, item := range items {
		ref, err := n.visitEntity(item, target, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// visitEntity stores one entity and returns its id reference.
func (n *normalizer) visitEntity(value any, s *schema.EntitySchema, path string) (any, error) {
	if value == nil {
		return nil, nil
	}
	if utils.IsScalar(value) {
		// Already a reference.
		return utils.ToString(value), nil
	}
	raw, ok := entity.AsMap(value)
	if !ok {
		return nil, &ValidationError{Path: path, EntityType: s.Key, Reason: fmt.Sprintf("expected an object, got %T", value)}
	}
	id, ok := s.ID(raw)
	if !ok {
		return nil, &ValidationError{Path: path, EntityType: s.Key, Reason: fmt.Sprintf("missing id attribute %q", s.IDAttribute)}
	}

	ptr := reflect.ValueOf(raw).Pointer()
	if _, busy := n.inProgress[ptr]; busy {
		return id, nil
	}
	n.inProgress[ptr] = id
	defer delete(n.inProgress, ptr)

	flat := make(entity.Entity, len(raw))
	for field, v := range raw {
		rel, isRelation := s.Relations[field]
		if !isRelation {
			flat[field] = entity.DeepCopy(v)
			continue
		}
		ref, err := n.visit(v, rel, path+"."+field)
		if err != nil {
			return nil, err
		}
		flat[field] = ref
	}

	if existing, ok := n.entities.Get(s.Key, id); ok {
		flat = entity.MergeEntity(existing, flat)
	}
	n.entities.Set(s.Key, id, flat)
	return id, nil
}

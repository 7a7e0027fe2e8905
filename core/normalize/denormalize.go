package normalize

import (
	"entity-sync/core/entity"
	"entity-sync/core/schema"
	"entity-sync/core/utils"
)

// Option configures a denormalization.
type Option func(*denormalizer)

// WithMaxDepth limits nesting. References deeper than n are returned as
// shallow {idAttribute: id} values. n <= 0 means unlimited.
func WithMaxDepth(n int) Option {
	return func(d *denormalizer) {
		d.maxDepth = n
	}
}

type entityKey struct {
	entityType string
	id         string
}

type denormalizer struct {
	entities entity.Entities
	maxDepth int
	onPath   map[entityKey]bool
	// cache holds complete subtrees only; cut subtrees depend on the path
	// they were reached from.
	cache map[entityKey]map[string]any
}

func newDenormalizer(es entity.Entities, opts []Option) *denormalizer {
	d := &denormalizer{
		entities: es,
		onPath:   make(map[entityKey]bool),
		cache:    make(map[entityKey]map[string]any),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Denormalize rebuilds the nested view of id. It returns nil when the root
// entity does not exist. An ArraySchema is treated as its item schema.
func Denormalize(id string, s schema.Schema, es entity.Entities, opts ...Option) any {
	root, _ := s.Entity()
	if root == nil {
		return nil
	}
	d := newDenormalizer(es, opts)
	out, _ := d.entity(root, id, 0)
	if out == nil {
		return nil
	}
	return out
}

// DenormalizeMany rebuilds every id in order. Missing roots yield nil
// entries. Subtrees shared between roots are built once and returned as the
// same map value, so callers must treat the output as read-only.
func DenormalizeMany(ids []string, s schema.Schema, es entity.Entities, opts ...Option) []any {
	root, _ := s.Entity()
	out := make([]any, len(ids))
	if root == nil {
		return out
	}
	d := newDenormalizer(es, opts)
	for i, id := range ids {
		v, _ := d.entity(root, id, 0)
		if v != nil {
			out[i] = v
		}
	}
	return out
}

// entity returns the nested view of one entity and whether any part of it
// was cut short by a cycle or the depth limit.
func (d *denormalizer) entity(s *schema.EntitySchema, id string, depth int) (map[string]any, bool) {
	key := entityKey{entityType: s.Key, id: id}
	stored, ok := d.entities.Get(s.Key, id)
	if !ok {
		return nil, false
	}
	if d.onPath[key] || (d.maxDepth > 0 && depth > d.maxDepth) {
		return shallow(s, id, stored), true
	}
	if cached, ok := d.cache[key]; ok {
		return cached, false
	}

	d.onPath[key] = true
	defer delete(d.onPath, key)

	out := make(map[string]any, len(stored))
	cut := false
	for field, value := range stored {
		rel, isRelation := s.Relations[field]
		if !isRelation {
			out[field] = entity.DeepCopy(value)
			continue
		}
		resolved, wasCut := d.relation(value, rel, depth+1)
		out[field] = resolved
		cut = cut || wasCut
	}

	if !cut {
		d.cache[key] = out
	}
	return out, cut
}

func (d *denormalizer) relation(value any, rel schema.Schema, depth int) (any, bool) {
	target, many := rel.Entity()
	if !many {
		return d.reference(value, target, depth)
	}
	refs, ok := entity.AsSlice(value)
	if !ok {
		return entity.DeepCopy(value), false
	}
	list := make([]any, len(refs))
	cut := false
	for i, ref := range refs {
		resolved, wasCut := d.reference(ref, target, depth)
		list[i] = resolved
		cut = cut || wasCut
	}
	return list, cut
}

func (d *denormalizer) reference(ref any, target *schema.EntitySchema, depth int) (any, bool) {
	if ref == nil {
		return nil, false
	}
	if !utils.IsScalar(ref) {
		// Not a normalized reference; leave it as stored.
		return entity.DeepCopy(ref), false
	}
	v, cut := d.entity(target, utils.ToString(ref), depth)
	if v == nil {
		return nil, cut
	}
	return v, cut
}

func shallow(s *schema.EntitySchema, id string, stored entity.Entity) map[string]any {
	if raw, ok := stored[s.IDAttribute]; ok {
		return map[string]any{s.IDAttribute: raw}
	}
	return map[string]any{s.IDAttribute: id}
}

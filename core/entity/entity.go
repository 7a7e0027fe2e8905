package entity

import (
	"sort"
)

// Entity is a uniquely identified record of a declared type.
type Entity map[string]any

// Entities maps an entity type name to a map of id -> Entity.
type Entities map[string]map[string]Entity

// Clone returns a deep copy of the entity.
func (e Entity) Clone() Entity {
	if e == nil {
		return nil
	}
	return DeepCopy(map[string]any(e)).(map[string]any)
}

// Get returns the entity stored under entityType/id.
func (es Entities) Get(entityType, id string) (Entity, bool) {
	byID, ok := es[entityType]
	if !ok {
		return nil, false
	}
	e, ok := byID[id]
	return e, ok
}

// Set stores e under entityType/id, creating the type map if needed.
// It mutates the receiver and is meant for drafts, never published maps.
func (es Entities) Set(entityType, id string, e Entity) {
	byID, ok := es[entityType]
	if !ok {
		byID = make(map[string]Entity)
		es[entityType] = byID
	}
	byID[id] = e
}

// Delete removes entityType/id and reports whether it existed.
func (es Entities) Delete(entityType, id string) bool {
	byID, ok := es[entityType]
	if !ok {
		return false
	}
	if _, ok := byID[id]; !ok {
		return false
	}
	delete(byID, id)
	return true
}

// Len returns the total number of entities across all types.
func (es Entities) Len() int {
	n := 0
	for _, byID := range es {
		n += len(byID)
	}
	return n
}

// Types returns the entity type names in sorted order.
func (es Entities) Types() []string {
	types := make([]string, 0, len(es))
	for t := range es {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// IDs returns the ids stored for entityType in sorted order.
func (es Entities) IDs(entityType string) []string {
	byID := es[entityType]
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy of the whole map.
func (es Entities) Clone() Entities {
	if es == nil {
		return Entities{}
	}
	out := make(Entities, len(es))
	for t, byID := range es {
		copied := make(map[string]Entity, len(byID))
		for id, e := range byID {
			copied[id] = e.Clone()
		}
		out[t] = copied
	}
	return out
}

// DeepCopy copies JSON-like values (maps, slices and scalars).
// Entity values and typed string slices are copied as well.
func DeepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = DeepCopy(inner)
		}
		return out
	case Entity:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = DeepCopy(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = DeepCopy(inner)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = DeepCopy(inner)
		}
		return out
	default:
		return val
	}
}

// AsMap returns v as map[string]any when it is a JSON object.
func AsMap(v any) (map[string]any, bool) {
	switch val := v.(type) {
	case map[string]any:
		return val, true
	case Entity:
		return map[string]any(val), true
	default:
		return nil, false
	}
}

// AsSlice returns v as []any when it is a JSON array.
func AsSlice(v any) ([]any, bool) {
	switch val := v.(type) {
	case []any:
		return val, true
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(val))
		for i, m := range val {
			out[i] = m
		}
		return out, true
	default:
		return nil, false
	}
}

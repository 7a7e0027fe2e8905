package schema

import (
	"sort"

	"entity-sync/core/utils"
)

// DefaultIDAttribute is the id field used when a schema does not declare one.
const DefaultIDAttribute = "id"

// Schema is either an *EntitySchema or an ArraySchema.
type Schema interface {
	// Entity returns the entity schema at the end of this schema and whether
	// the relation holds many references.
	Entity() (entity *EntitySchema, many bool)
}

// EntitySchema describes one entity type.
type EntitySchema struct {
	// Key is the entity type name (e.g. "posts").
	Key string
	// IDAttribute is the field holding the entity id.
	IDAttribute string
	// Relations maps relation fields to nested schemas.
	Relations map[string]Schema
	// Required lists fields that must be present and non-nil.
	Required []string
	// Defaults provides values used to repair missing required fields.
	Defaults map[string]any
	// Unique lists fields whose values must be unique across the type.
	Unique []string
	// Deprecated maps discouraged fields to a replacement hint.
	Deprecated map[string]string
	// Owned marks types whose entities must be referenced by another entity.
	Owned bool
}

// Option configures an EntitySchema.
type Option func(*EntitySchema)

// WithIDAttribute overrides the id field.
func WithIDAttribute(attr string) Option {
	return func(s *EntitySchema) { s.IDAttribute = attr }
}

// WithRequired declares required fields.
func WithRequired(fields ...string) Option {
	return func(s *EntitySchema) { s.Required = append(s.Required, fields...) }
}

// WithDefaults declares repair defaults for required fields.
func WithDefaults(defaults map[string]any) Option {
	return func(s *EntitySchema) {
		if s.Defaults == nil {
			s.Defaults = make(map[string]any, len(defaults))
		}
		for k, v := range defaults {
			s.Defaults[k] = v
		}
	}
}

// WithUnique declares unique fields.
func WithUnique(fields ...string) Option {
	return func(s *EntitySchema) { s.Unique = append(s.Unique, fields...) }
}

// WithDeprecated marks a field as deprecated with a replacement hint.
func WithDeprecated(field, hint string) Option {
	return func(s *EntitySchema) {
		if s.Deprecated == nil {
			s.Deprecated = make(map[string]string)
		}
		s.Deprecated[field] = hint
	}
}

// Owned marks the type as owned.
func Owned() Option {
	return func(s *EntitySchema) { s.Owned = true }
}

// NewEntity creates a schema for the entity type key.
func NewEntity(key string, opts ...Option) *EntitySchema {
	s := &EntitySchema{
		Key:         key,
		IDAttribute: DefaultIDAttribute,
		Relations:   make(map[string]Schema),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Define adds relation fields. It returns the schema so self-references can
// be declared after construction: users.Define(map[string]Schema{"friends": ArrayOf(users)}).
func (s *EntitySchema) Define(relations map[string]Schema) *EntitySchema {
	if s.Relations == nil {
		s.Relations = make(map[string]Schema, len(relations))
	}
	for field, rel := range relations {
		s.Relations[field] = rel
	}
	return s
}

// Entity implements Schema.
func (s *EntitySchema) Entity() (*EntitySchema, bool) {
	return s, false
}

// ID extracts the id of a raw entity value. The second return is false when
// the id attribute is missing, nil, or not a scalar.
func (s *EntitySchema) ID(value map[string]any) (string, bool) {
	raw, ok := value[s.IDAttribute]
	if !ok || raw == nil || !utils.IsScalar(raw) {
		return "", false
	}
	id := utils.ToString(raw)
	return id, id != ""
}

// RelationFields returns the relation field names in sorted order.
func (s *EntitySchema) RelationFields() []string {
	fields := make([]string, 0, len(s.Relations))
	for f := range s.Relations {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// IsRequired reports whether field is declared required.
func (s *EntitySchema) IsRequired(field string) bool {
	for _, f := range s.Required {
		if f == field {
			return true
		}
	}
	return false
}

// ArraySchema wraps an item schema for list relations and list payloads.
type ArraySchema struct {
	Of *EntitySchema
}

// ArrayOf returns an ArraySchema of item.
func ArrayOf(item *EntitySchema) ArraySchema {
	return ArraySchema{Of: item}
}

// Entity implements Schema.
func (a ArraySchema) Entity() (*EntitySchema, bool) {
	return a.Of, true
}

package integrity

import (
	"fmt"
	"sort"
	"time"

	"entity-sync/core/entity"
	"entity-sync/core/schema"
	"entity-sync/core/utils"

	"go.uber.org/zap"
)

// Checker validates entity maps against a registry.
type Checker struct {
	registry *schema.Registry
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Checker) { c.logger = l }
}

// WithClock replaces time.Now for CheckedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Checker) { c.now = now }
}

// NewChecker creates a checker for the types in registry.
func NewChecker(registry *schema.Registry, opts ...Option) *Checker {
	c := &Checker{registry: registry, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the registry the checker validates against.
func (c *Checker) Registry() *schema.Registry {
	return c.registry
}

// Check validates every entity. Violations are ordered by type, then id,
// then rule.
func (c *Checker) Check(es entity.Entities) *Report {
	var violations []Violation
	referenced := c.referenced(es)

	for _, t := range es.Types() {
		sch, ok := c.registry.Get(t)
		if !ok {
			violations = append(violations, Violation{
				EntityType: t,
				Severity:   SeverityWarning,
				Kind:       KindUnknownType,
				Message:    fmt.Sprintf("entity type %q is not registered", t),
			})
			continue
		}
		for _, id := range es.IDs(t) {
			violations = append(violations, c.checkOne(sch, id, es[t][id], es, referenced)...)
		}
		violations = append(violations, c.checkUnique(sch, es)...)
	}

	report := newReport(violations, c.now())
	c.logger.Debug("Integrity check complete",
		zap.Bool("valid", report.Valid),
		zap.Int("violations", report.Summary.Total),
	)
	return report
}

// CheckEntity runs the same rules scoped to one entity. A missing entity
// yields no violations.
func (c *Checker) CheckEntity(entityType, id string, es entity.Entities) []Violation {
	e, ok := es.Get(entityType, id)
	if !ok {
		return []Violation{}
	}
	sch, ok := c.registry.Get(entityType)
	if !ok {
		return []Violation{{
			EntityType: entityType,
			EntityID:   id,
			Severity:   SeverityWarning,
			Kind:       KindUnknownType,
			Message:    fmt.Sprintf("entity type %q is not registered", entityType),
		}}
	}

	var referenced map[string]bool
	if sch.Owned {
		referenced = c.referenced(es)
	}
	out := c.checkOne(sch, id, e, es, referenced)
	for _, v := range c.checkUnique(sch, es) {
		if v.EntityID == id {
			out = append(out, v)
		}
	}
	if out == nil {
		out = []Violation{}
	}
	return out
}

// Validate returns a *ReportError matching ErrIntegrity when es has
// error-severity violations.
func (c *Checker) Validate(es entity.Entities) error {
	report := c.Check(es)
	if report.Valid {
		return nil
	}
	return &ReportError{Report: report}
}

func (c *Checker) checkOne(sch *schema.EntitySchema, id string, e entity.Entity, es entity.Entities, referenced map[string]bool) []Violation {
	var out []Violation
	add := func(v Violation) {
		v.EntityType = sch.Key
		v.EntityID = id
		out = append(out, v)
	}

	if raw, ok := e[sch.IDAttribute]; !ok || !utils.IsScalar(raw) || utils.ToString(raw) != id {
		add(Violation{
			Severity: SeverityError,
			Kind:     KindIDMismatch,
			Field:    sch.IDAttribute,
			Message:  fmt.Sprintf("%s/%s: %s is %v", sch.Key, id, sch.IDAttribute, raw),
		})
	}

	for _, field := range sch.Required {
		if v, ok := e[field]; !ok || v == nil {
			add(Violation{
				Severity: SeverityError,
				Kind:     KindMissingRequired,
				Field:    field,
				Message:  fmt.Sprintf("%s/%s: required field %s is missing", sch.Key, id, field),
			})
		}
	}

	for _, field := range sch.RelationFields() {
		for _, v := range checkRelation(sch, field, e[field], es) {
			add(v)
		}
	}

	if sch.Owned && !referenced[ownerKey(sch.Key, id)] {
		add(Violation{
			Severity: SeverityWarning,
			Kind:     KindOrphaned,
			Message:  fmt.Sprintf("%s/%s is not referenced by any entity", sch.Key, id),
		})
	}

	deprecated := make([]string, 0, len(sch.Deprecated))
	for field := range sch.Deprecated {
		deprecated = append(deprecated, field)
	}
	sort.Strings(deprecated)
	for _, field := range deprecated {
		if _, ok := e[field]; !ok {
			continue
		}
		msg := fmt.Sprintf("%s/%s: field %s is deprecated", sch.Key, id, field)
		if hint := sch.Deprecated[field]; hint != "" {
			msg += ": " + hint
		}
		add(Violation{
			Severity: SeverityInfo,
			Kind:     KindDeprecatedField,
			Field:    field,
			Message:  msg,
		})
	}
	return out
}

// checkRelation validates the value of one relation field. A nil or absent
// value is a valid empty reference.
func checkRelation(sch *schema.EntitySchema, field string, value any, es entity.Entities) []Violation {
	if value == nil {
		return nil
	}
	target, many := sch.Relations[field].Entity()
	invalid := func(format string, args ...any) []Violation {
		return []Violation{{
			Severity: SeverityError,
			Kind:     KindInvalidReference,
			Relation: field,
			Message:  fmt.Sprintf(format, args...),
		}}
	}

	var refs []any
	if many {
		items, ok := entity.AsSlice(value)
		if !ok {
			return invalid("%s.%s: expected a list of %s ids, got %T", sch.Key, field, target.Key, value)
		}
		refs = items
	} else {
		refs = []any{value}
	}

	var out []Violation
	for _, ref := range refs {
		if !utils.IsScalar(ref) {
			out = append(out, invalid("%s.%s: expected a %s id, got %T", sch.Key, field, target.Key, ref)...)
			continue
		}
		refID := utils.ToString(ref)
		if _, ok := es.Get(target.Key, refID); ok {
			continue
		}
		out = append(out, Violation{
			Severity:  SeverityError,
			Kind:      KindDanglingReference,
			Relation:  field,
			Reference: refID,
			Message:   fmt.Sprintf("%s.%s references missing %s/%s", sch.Key, field, target.Key, refID),
		})
	}
	return out
}

// checkUnique reports every entity after the first (in id order) that
// repeats a unique field value.
func (c *Checker) checkUnique(sch *schema.EntitySchema, es entity.Entities) []Violation {
	var out []Violation
	for _, field := range sch.Unique {
		seen := make(map[string]string)
		for _, id := range es.IDs(sch.Key) {
			v, ok := es[sch.Key][id][field]
			if !ok || v == nil || !utils.IsScalar(v) {
				continue
			}
			value := utils.ToString(v)
			first, dup := seen[value]
			if !dup {
				seen[value] = id
				continue
			}
			out = append(out, Violation{
				EntityType: sch.Key,
				EntityID:   id,
				Severity:   SeverityError,
				Kind:       KindDuplicateUnique,
				Field:      field,
				Message:    fmt.Sprintf("%s/%s: %s %q is already used by %s", sch.Key, id, field, value, first),
			})
		}
	}
	return out
}

// referenced collects "type/id" of every entity some relation points at.
func (c *Checker) referenced(es entity.Entities) map[string]bool {
	out := make(map[string]bool)
	for _, t := range es.Types() {
		sch, ok := c.registry.Get(t)
		if !ok {
			continue
		}
		for _, field := range sch.RelationFields() {
			target, _ := sch.Relations[field].Entity()
			for _, e := range es[t] {
				value := e[field]
				refs, ok := entity.AsSlice(value)
				if !ok {
					refs = []any{value}
				}
				for _, ref := range refs {
					if utils.IsScalar(ref) {
						out[ownerKey(target.Key, utils.ToString(ref))] = true
					}
				}
			}
		}
	}
	return out
}

func ownerKey(entityType, id string) string {
	return entityType + "/" + id
}

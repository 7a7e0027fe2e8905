package integrity

import (
	"fmt"

	"entity-sync/core/entity"
	"entity-sync/core/utils"

	"go.uber.org/zap"
)

// ActionType is a repair step.
type ActionType string

const (
	// ActionClearReference sets a single-valued relation to nil.
	ActionClearReference ActionType = "clear_reference"
	// ActionRemoveReference drops an id from a list relation.
	ActionRemoveReference ActionType = "remove_reference"
	// ActionSetDefault fills a missing required field.
	ActionSetDefault ActionType = "set_default"
	// ActionSetID rewrites the id attribute to the map key.
	ActionSetID ActionType = "set_id"
	// ActionDeleteEntity removes the entity.
	ActionDeleteEntity ActionType = "delete_entity"
	// ActionDeleteField removes an attribute.
	ActionDeleteField ActionType = "delete_field"
)

// Action is one planned mutation.
type Action struct {
	Type       ActionType `json:"type"`
	EntityType string     `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Field      string     `json:"field,omitempty"`
	// Reference is the id removed by reference actions.
	Reference string `json:"reference,omitempty"`
	// Value is written by set actions.
	Value  any    `json:"value,omitempty"`
	Reason string `json:"reason"`
}

// PlanSummary counts what a plan will do.
type PlanSummary struct {
	Violations   int `json:"violations"`
	Actions      int `json:"actions"`
	Unrepairable int `json:"unrepairable"`
	Skipped      int `json:"skipped"`
}

// Plan pairs each repairable violation with its action. Remaining holds
// the rest.
type Plan struct {
	Actions    []Action    `json:"actions"`
	Violations []Violation `json:"-"`
	Remaining  []Violation `json:"remaining"`
	Summary    PlanSummary `json:"summary"`
}

// BuildPlan maps every violation of report to a repair action. It does NOT
// touch any entities; use ApplyPlan for that.
func (c *Checker) BuildPlan(report *Report, opts RepairOptions) *Plan {
	plan := &Plan{Actions: []Action{}, Remaining: []Violation{}}
	plan.Summary.Violations = len(report.Violations)

	for _, v := range report.Violations {
		if opts.ErrorsOnly && v.Severity != SeverityError {
			plan.Remaining = append(plan.Remaining, v)
			plan.Summary.Skipped++
			continue
		}
		action, ok := c.planOne(v)
		if !ok {
			plan.Remaining = append(plan.Remaining, v)
			plan.Summary.Unrepairable++
			continue
		}
		plan.Actions = append(plan.Actions, action)
		plan.Violations = append(plan.Violations, v)
	}
	plan.Summary.Actions = len(plan.Actions)
	return plan
}

func (c *Checker) planOne(v Violation) (Action, bool) {
	action := Action{EntityType: v.EntityType, EntityID: v.EntityID, Reason: v.Message}
	sch, registered := c.registry.Get(v.EntityType)

	switch v.Kind {
	case KindDanglingReference:
		if !registered {
			return action, false
		}
		rel, ok := sch.Relations[v.Relation]
		if !ok {
			return action, false
		}
		action.Field = v.Relation
		action.Reference = v.Reference
		if _, many := rel.Entity(); many {
			action.Type = ActionRemoveReference
		} else {
			action.Type = ActionClearReference
		}
		return action, true

	case KindMissingRequired:
		if !registered {
			return action, false
		}
		def, ok := sch.Defaults[v.Field]
		if !ok || def == nil {
			return action, false
		}
		action.Type = ActionSetDefault
		action.Field = v.Field
		action.Value = def
		return action, true

	case KindIDMismatch:
		if !registered {
			return action, false
		}
		action.Type = ActionSetID
		action.Field = sch.IDAttribute
		action.Value = v.EntityID
		return action, true

	case KindOrphaned:
		action.Type = ActionDeleteEntity
		return action, true

	case KindDeprecatedField:
		action.Type = ActionDeleteField
		action.Field = v.Field
		return action, true

	default:
		return action, false
	}
}

// ApplyPlan executes plan against a copy of es. Actions that find nothing
// to change, e.g. because the plan was already applied, are skipped and
// not reported.
func ApplyPlan(es entity.Entities, plan *Plan) (entity.Entities, []Repair) {
	out := es.Clone()
	if out == nil {
		out = entity.Entities{}
	}
	repairs := []Repair{}
	for i, action := range plan.Actions {
		if !apply(out, action) {
			continue
		}
		r := Repair{Action: action}
		if i < len(plan.Violations) {
			r.Violation = plan.Violations[i]
		}
		repairs = append(repairs, r)
	}
	return out, repairs
}

// apply performs one action and reports whether anything changed.
func apply(es entity.Entities, action Action) bool {
	e, ok := es.Get(action.EntityType, action.EntityID)
	if !ok {
		return false
	}

	switch action.Type {
	case ActionDeleteEntity:
		return es.Delete(action.EntityType, action.EntityID)

	case ActionClearReference:
		v, ok := e[action.Field]
		if !ok || v == nil || utils.ToString(v) != action.Reference {
			return false
		}
		e[action.Field] = nil

	case ActionRemoveReference:
		items, ok := entity.AsSlice(e[action.Field])
		if !ok {
			return false
		}
		kept := make([]any, 0, len(items))
		for _, item := range items {
			if utils.IsScalar(item) && utils.ToString(item) == action.Reference {
				continue
			}
			kept = append(kept, item)
		}
		if len(kept) == len(items) {
			return false
		}
		e[action.Field] = kept

	case ActionSetDefault:
		if v, ok := e[action.Field]; ok && v != nil {
			return false
		}
		e[action.Field] = entity.DeepCopy(action.Value)

	case ActionSetID:
		if v, ok := e[action.Field]; ok && utils.IsScalar(v) && utils.ToString(v) == action.EntityID {
			return false
		}
		e[action.Field] = action.Value

	case ActionDeleteField:
		if _, ok := e[action.Field]; !ok {
			return false
		}
		delete(e, action.Field)

	default:
		return false
	}
	return true
}

// Repair plans and applies fixes for report's violations to a copy of es.
func (c *Checker) Repair(es entity.Entities, report *Report, opts RepairOptions) *RepairResult {
	plan := c.BuildPlan(report, opts)
	out, repairs := ApplyPlan(es, plan)
	c.logger.Info("Applied integrity repairs",
		zap.Int("repairs", len(repairs)),
		zap.Int("remaining", len(plan.Remaining)),
	)
	return &RepairResult{Entities: out, Repairs: repairs, Remaining: plan.Remaining}
}

// Describe renders an action for logs and CLI output.
func (a Action) Describe() string {
	switch a.Type {
	case ActionClearReference, ActionRemoveReference:
		return fmt.Sprintf("%s %s/%s.%s -> %s", a.Type, a.EntityType, a.EntityID, a.Field, a.Reference)
	case ActionSetDefault, ActionSetID:
		return fmt.Sprintf("%s %s/%s.%s = %v", a.Type, a.EntityType, a.EntityID, a.Field, a.Value)
	case ActionDeleteField:
		return fmt.Sprintf("%s %s/%s.%s", a.Type, a.EntityType, a.EntityID, a.Field)
	default:
		return fmt.Sprintf("%s %s/%s", a.Type, a.EntityType, a.EntityID)
	}
}

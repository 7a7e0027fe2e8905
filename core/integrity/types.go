package integrity

import (
	"time"

	"entity-sync/core/entity"
)

// Severity ranks a violation. Only SeverityError makes a report invalid.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Kind identifies the rule a violation breaks.
type Kind string

const (
	KindDanglingReference Kind = "dangling-reference"
	KindMissingRequired   Kind = "missing-required-field"
	KindIDMismatch        Kind = "id-mismatch"
	KindDuplicateUnique   Kind = "duplicate-unique-value"
	KindOrphaned          Kind = "orphaned-entity"
	KindDeprecatedField   Kind = "deprecated-field"
	KindUnknownType       Kind = "unknown-entity-type"
	KindInvalidReference  Kind = "invalid-reference"
)

// Violation is one detected breach.
type Violation struct {
	EntityType string   `json:"entity_type"`
	EntityID   string   `json:"entity_id,omitempty"`
	Severity   Severity `json:"severity"`
	Kind       Kind     `json:"kind"`
	// Relation is the relation field for reference violations.
	Relation string `json:"relation,omitempty"`
	// Reference is the referenced id of a dangling reference.
	Reference string `json:"reference,omitempty"`
	// Field is the attribute for field-level violations.
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Summary counts violations.
type Summary struct {
	Total    int          `json:"total"`
	Errors   int          `json:"errors"`
	Warnings int          `json:"warnings"`
	Infos    int          `json:"infos"`
	ByKind   map[Kind]int `json:"by_kind"`
}

// Report is the outcome of a check.
type Report struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations"`
	CheckedAt  time.Time   `json:"checked_at"`
	Summary    Summary     `json:"summary"`
}

// BySeverity returns violation counts keyed by severity name.
func (r *Report) BySeverity() map[string]int {
	return map[string]int{
		string(SeverityError):   r.Summary.Errors,
		string(SeverityWarning): r.Summary.Warnings,
		string(SeverityInfo):    r.Summary.Infos,
	}
}

// Errors returns the error-severity violations.
func (r *Report) Errors() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityError {
			out = append(out, v)
		}
	}
	return out
}

func newReport(violations []Violation, at time.Time) *Report {
	if violations == nil {
		violations = []Violation{}
	}
	r := &Report{
		Violations: violations,
		CheckedAt:  at,
		Summary:    Summary{Total: len(violations), ByKind: make(map[Kind]int)},
	}
	for _, v := range violations {
		r.Summary.ByKind[v.Kind]++
		switch v.Severity {
		case SeverityError:
			r.Summary.Errors++
		case SeverityWarning:
			r.Summary.Warnings++
		case SeverityInfo:
			r.Summary.Infos++
		}
	}
	r.Valid = r.Summary.Errors == 0
	return r
}

// RepairOptions tunes Repair.
type RepairOptions struct {
	// ErrorsOnly leaves warnings and infos untouched; they are reported in
	// RepairResult.Remaining.
	ErrorsOnly bool `json:"errors_only"`
}

// Repair is one applied action and the violation it resolved.
type Repair struct {
	Action    Action    `json:"action"`
	Violation Violation `json:"violation"`
}

// RepairResult holds the repaired copy. Remaining lists violations no
// strategy resolved.
type RepairResult struct {
	Entities  entity.Entities `json:"entities"`
	Repairs   []Repair        `json:"repairs"`
	Remaining []Violation     `json:"remaining"`
}

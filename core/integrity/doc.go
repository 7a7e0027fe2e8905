// Package integrity validates normalized entities against the relation
// graph and the constraints declared on each schema, and repairs what it can.
//
// A check never modifies its input. Repairs are planned first (BuildPlan)
// and applied to a copy (ApplyPlan), so callers can inspect or log the
// plan before publishing the repaired map.
package integrity

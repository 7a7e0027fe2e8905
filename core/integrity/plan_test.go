package integrity

import (
	"testing"

	"entity-sync/core/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func brokenEntities() entity.Entities {
	return entity.Entities{
		"users": {
			"7": {"id": "7", "name": "Amy", "nick": "amz"},
			"8": {"id": "9", "role": "member"},
		},
		"posts": {"1": {"id": "1", "author": "7", "tags": []any{"go", "gone", "go"}}},
		"tags": {
			"go":   {"id": "go"},
			"rust": {"id": "rust"},
		},
	}
}

func TestBuildPlan(t *testing.T) {
	c := newChecker()
	report := c.Check(brokenEntities())
	plan := c.BuildPlan(report, RepairOptions{})

	types := make(map[ActionType]int)
	for _, a := range plan.Actions {
		types[a.Type]++
	}
	assert.Equal(t, map[ActionType]int{
		ActionRemoveReference: 1,
		ActionSetDefault:      1,
		ActionSetID:           1,
		ActionDeleteEntity:    1,
		ActionDeleteField:     1,
	}, types)

	// users/8 has no name and names have no default.
	require.Len(t, plan.Remaining, 1)
	assert.Equal(t, KindMissingRequired, plan.Remaining[0].Kind)
	assert.Equal(t, "name", plan.Remaining[0].Field)
	assert.Equal(t, 1, plan.Summary.Unrepairable)
	assert.Equal(t, len(report.Violations), plan.Summary.Violations)
}

func TestBuildPlan_ErrorsOnly(t *testing.T) {
	c := newChecker()
	report := c.Check(brokenEntities())
	plan := c.BuildPlan(report, RepairOptions{ErrorsOnly: true})

	for _, a := range plan.Actions {
		assert.NotEqual(t, ActionDeleteEntity, a.Type)
		assert.NotEqual(t, ActionDeleteField, a.Type)
	}
	assert.Equal(t, 2, plan.Summary.Skipped)
	assert.Len(t, plan.Remaining, 3)
}

func TestRepair_AppliesEveryStrategy(t *testing.T) {
	c := newChecker()
	es := brokenEntities()
	res := c.Repair(es, c.Check(es), RepairOptions{})

	out := res.Entities
	assert.Equal(t, []any{"go", "go"}, out["posts"]["1"]["tags"])
	assert.Equal(t, "8", out["users"]["8"]["id"])
	assert.Equal(t, "member", out["users"]["7"]["role"])
	assert.NotContains(t, out["users"]["7"], "nick")
	_, ok := out.Get("tags", "rust")
	assert.False(t, ok)

	require.Len(t, res.Remaining, 1)
	assert.Len(t, res.Repairs, 5)

	after := c.Check(out)
	require.Len(t, after.Violations, 1)
	assert.Equal(t, res.Remaining[0], after.Violations[0])
}

func TestRepair_IsIdempotent(t *testing.T) {
	c := newChecker()
	es := brokenEntities()
	report := c.Check(es)

	first := c.Repair(es, report, RepairOptions{})
	second := c.Repair(first.Entities, report, RepairOptions{})

	assert.Empty(t, second.Repairs)
	assert.Equal(t, first.Entities, second.Entities)
	assert.Equal(t, first.Remaining, second.Remaining)
}

func TestAction_Describe(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{Action{Type: ActionClearReference, EntityType: "posts", EntityID: "1", Field: "author", Reference: "9"}, "clear_reference posts/1.author -> 9"},
		{Action{Type: ActionSetDefault, EntityType: "users", EntityID: "7", Field: "role", Value: "member"}, "set_default users/7.role = member"},
		{Action{Type: ActionDeleteField, EntityType: "users", EntityID: "7", Field: "nick"}, "delete_field users/7.nick"},
		{Action{Type: ActionDeleteEntity, EntityType: "tags", EntityID: "rust"}, "delete_entity tags/rust"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.action.Describe())
	}
}

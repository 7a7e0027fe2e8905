package normalize

import (
	"fmt"

	"entity-sync/core/entity"
)

// Strategy selects how MergeEntities treats entities present on both sides.
type Strategy string

const (
	// StrategyOverwrite replaces matching entities with b's version.
	StrategyOverwrite Strategy = "overwrite"
	// StrategyKeep keeps a's version of matching entities.
	StrategyKeep Strategy = "keep"
	// StrategyMerge deep-merges matching entities, b winning on leaves.
	StrategyMerge Strategy = "merge"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(name); s {
	case StrategyOverwrite, StrategyKeep, StrategyMerge:
		return s, nil
	default:
		return "", fmt.Errorf("unknown merge strategy %q", name)
	}
}

// MergeEntities combines a and b into a new map. Neither input is modified.
func MergeEntities(a, b entity.Entities, strategy Strategy) (entity.Entities, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}

	out := a.Clone()
	for _, entityType := range b.Types() {
		for id, incoming := range b[entityType] {
			current, exists := out.Get(entityType, id)
			switch {
			case !exists:
				out.Set(entityType, id, incoming.Clone())
			case strategy == StrategyOverwrite:
				out.Set(entityType, id, incoming.Clone())
			case strategy == StrategyMerge:
				out.Set(entityType, id, entity.MergeEntity(current, incoming))
			}
			// StrategyKeep leaves current untouched.
		}
	}
	return out, nil
}

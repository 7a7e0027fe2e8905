package monitor

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"entity-sync/core/entity"

	"github.com/goccy/go-json"
)

// DiffKind classifies a difference.
type DiffKind string

const (
	DiffAdded   DiffKind = "added"
	DiffRemoved DiffKind = "removed"
	DiffChanged DiffKind = "changed"
)

// Difference is one path-level change. Paths join type, id and nested keys
// with dots, e.g. "posts.1.title"; list elements use their index.
type Difference struct {
	Path   string   `json:"path"`
	Kind   DiffKind `json:"kind"`
	Before any      `json:"before,omitempty"`
	After  any      `json:"after,omitempty"`
}

// DriftResult lists the differences between two states, sorted by path.
type DriftResult struct {
	HasDrift    bool         `json:"has_drift"`
	Differences []Difference `json:"differences"`
}

// Diff compares two entity maps.
func Diff(before, after entity.Entities) (*DriftResult, error) {
	b, err := json.Marshal(before)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entities: %w", err)
	}
	a, err := json.Marshal(after)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entities: %w", err)
	}
	return diffJSON(b, a)
}

// diffJSON compares two encoded states. Both sides go through the same
// decoder so numeric types line up.
func diffJSON(before, after []byte) (*DriftResult, error) {
	var b, a any
	if err := json.Unmarshal(before, &b); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	if err := json.Unmarshal(after, &a); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}

	bf := make(map[string]any)
	af := make(map[string]any)
	flatten("", b, bf)
	flatten("", a, af)

	res := &DriftResult{Differences: []Difference{}}
	for path, bv := range bf {
		av, ok := af[path]
		switch {
		case !ok:
			res.Differences = append(res.Differences, Difference{Path: path, Kind: DiffRemoved, Before: bv})
		case !reflect.DeepEqual(av, bv):
			res.Differences = append(res.Differences, Difference{Path: path, Kind: DiffChanged, Before: bv, After: av})
		}
	}
	for path, av := range af {
		if _, ok := bf[path]; !ok {
			res.Differences = append(res.Differences, Difference{Path: path, Kind: DiffAdded, After: av})
		}
	}
	sort.Slice(res.Differences, func(i, j int) bool {
		return res.Differences[i].Path < res.Differences[j].Path
	})
	res.HasDrift = len(res.Differences) > 0
	return res, nil
}

// flatten records every leaf of v under its dotted path. Empty containers
// are leaves so their appearance is still visible.
func flatten(prefix string, v any, out map[string]any) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 0 && prefix != "" {
			out[prefix] = val
			return
		}
		for k, inner := range val {
			flatten(join(prefix, k), inner, out)
		}
	case []any:
		if len(val) == 0 {
			out[prefix] = val
			return
		}
		for i, inner := range val {
			flatten(join(prefix, strconv.Itoa(i)), inner, out)
		}
	default:
		if prefix != "" {
			out[prefix] = val
		}
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	var sb strings.Builder
	sb.Grow(len(prefix) + 1 + len(key))
	sb.WriteString(prefix)
	sb.WriteByte('.')
	sb.WriteString(key)
	return sb.String()
}

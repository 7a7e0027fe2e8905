package reconcile

import (
	"fmt"
	"reflect"
	"sort"

	"entity-sync/core/entity"
	"entity-sync/core/source"
	"entity-sync/core/utils"
)

// BuildIndex keys items by their id. Items without a scalar id are skipped.
func BuildIndex(name, idAttribute string, items []entity.Entity) Index {
	idx := Index{Source: name, Items: make(map[string]entity.Entity, len(items))}
	for _, item := range items {
		if !utils.IsScalar(item[idAttribute]) {
			continue
		}
		idx.Items[utils.ToString(item[idAttribute])] = item
	}
	return idx
}

// Compare reports every id found in any index, sorted by id. indices[0] is
// the primary; fields names the bookkeeping attributes ignored by the
// comparison.
func Compare(indices []Index, fields source.Fields) []Result {
	if len(indices) == 0 {
		return []Result{}
	}
	union := buildUnion(indices)
	results := make([]Result, 0, len(union))
	for id := range union {
		results = append(results, buildResult(id, indices, fields))
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].ID < results[j].ID
	})
	return results
}

// buildUnion creates a union of the ids of every index.
func buildUnion(indices []Index) map[string]struct{} {
	union := make(map[string]struct{})
	for _, idx := range indices {
		for id := range idx.Items {
			union[id] = struct{}{}
		}
	}
	return union
}

// buildResult compares one id across sources.
func buildResult(id string, indices []Index, fields source.Fields) Result {
	result := Result{
		ID:       id,
		Present:  make(map[string]bool, len(indices)),
		Mismatch: []string{},
	}
	primary, primaryPresent := indices[0].Items[id]
	for i, idx := range indices {
		item, ok := idx.Items[id]
		result.Present[idx.Source] = ok
		if !ok || !primaryPresent || i == 0 {
			continue
		}
		result.Mismatch = append(result.Mismatch, CompareFields(indices[0].Source, primary, idx.Source, item, fields)...)
	}
	return result
}

// CompareFields lists top-level differences between two copies of an
// entity, ignoring the version and timestamp fields.
func CompareFields(primaryName string, primary entity.Entity, otherName string, other entity.Entity, fields source.Fields) []string {
	keys := make(map[string]struct{})
	for k := range primary {
		keys[k] = struct{}{}
	}
	for k := range other {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		if k == fields.Version || k == fields.Timestamp {
			continue
		}
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var out []string
	for _, k := range sorted {
		if EqualValues(primary[k], other[k]) {
			continue
		}
		out = append(out, fmt.Sprintf("%s: %s=%v %s=%v", k, primaryName, primary[k], otherName, other[k]))
	}
	return out
}

// EqualValues treats numbers of different Go types as equal when their
// decimal forms match, since backends decode JSON differently.
func EqualValues(a, b any) bool {
	if utils.IsScalar(a) && utils.IsScalar(b) {
		return utils.ToString(a) == utils.ToString(b)
	}
	return reflect.DeepEqual(a, b)
}

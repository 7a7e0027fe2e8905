package entity

// MergeDeep merges src into dst and returns a new map; neither input is modified.
// Nested objects are merged recursively, every other value in src (including
// arrays and explicit nils) replaces the value in dst.
func MergeDeep(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = DeepCopy(v)
	}
	for k, v := range src {
		srcMap, srcIsMap := AsMap(v)
		dstMap, dstIsMap := AsMap(out[k])
		if srcIsMap && dstIsMap {
			out[k] = MergeDeep(dstMap, srcMap)
			continue
		}
		out[k] = DeepCopy(v)
	}
	return out
}

// MergeEntity is MergeDeep for entities.
func MergeEntity(dst, src Entity) Entity {
	return MergeDeep(dst, src)
}

// Package normalize converts between nested payloads and the flat
// entity.Entities representation.
//
// # Normalization
//
// Normalize walks a payload according to a schema, stores every entity it
// finds under its type and id, and replaces relation values with id
// references. Entities appearing more than once in a payload are merged.
// A payload entity without its id attribute fails the whole call with a
// *ValidationError and nothing is written.
//
// # Merging
//
// MergeEntities combines two normalized maps with one of three strategies:
//   - overwrite: entities in b replace matching entities in a wholesale
//   - keep: entities already in a are kept, b only adds new ones
//   - merge: field-by-field deep merge, b winning on leaf conflicts
//
// # Denormalization
//
// Denormalize and DenormalizeMany rebuild nested views. Missing references
// resolve to nil, and an id already on the current traversal path is
// replaced by a shallow reference holding only the id attribute.
package normalize

// Package schema declares the shape of every entity type known to entity-sync.
//
// An EntitySchema names its id attribute and maps relation fields to nested
// schemas: another EntitySchema for a single reference, or an ArraySchema for
// a list of references. Schemas may reference themselves (directly or through
// other schemas); the normalizer and denormalizer are cycle safe.
//
// Besides relations, a schema carries the declared constraints consumed by the
// integrity checker: required fields (with optional defaults used by repair),
// unique fields, deprecated fields and whether the type is owned (must be
// referenced by at least one other entity).
//
// # Registry
//
// The Registry is an explicit context object holding the schemas of one
// application. It is constructed once (in code or from YAML) and passed by
// reference to the components that need it; there is no global registry.
//
//	users := schema.NewEntity("users")
//	posts := schema.NewEntity("posts", schema.WithRequired("title"))
//	posts.Define(map[string]schema.Schema{"author": users})
//	reg := schema.NewRegistry()
//	if err := reg.Register(users, posts); err != nil { ... }
package schema

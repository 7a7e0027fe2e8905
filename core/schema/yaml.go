package schema

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// File is the YAML document describing a registry.
//
//	entities:
//	  users:
//	    id: id
//	    unique: [email]
//	    relations:
//	      friends: {type: users, many: true}
//	  posts:
//	    required: [title]
//	    defaults: {title: untitled}
//	    relations:
//	      author: {type: users}
type File struct {
	Entities map[string]EntityDef `yaml:"entities"`
}

// EntityDef is the YAML form of an EntitySchema.
type EntityDef struct {
	ID         string                 `yaml:"id"`
	Required   []string               `yaml:"required"`
	Defaults   map[string]any         `yaml:"defaults"`
	Unique     []string               `yaml:"unique"`
	Deprecated map[string]string      `yaml:"deprecated"`
	Owned      bool                   `yaml:"owned"`
	Relations  map[string]RelationDef `yaml:"relations"`
}

// RelationDef is the YAML form of a relation.
type RelationDef struct {
	Type string `yaml:"type"`
	Many bool   `yaml:"many"`
}

// LoadYAML builds a validated registry from a YAML document.
func LoadYAML(r io.Reader) (*Registry, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode schema file: %w", err)
	}
	return file.Build()
}

// LoadFile reads a YAML schema file from disk.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema file: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}

// Build converts the document into a registry. Schemas are created first and
// relations wired second so that cyclic declarations resolve.
func (f File) Build() (*Registry, error) {
	if len(f.Entities) == 0 {
		return nil, fmt.Errorf("schema file declares no entities")
	}

	keys := make([]string, 0, len(f.Entities))
	for k := range f.Entities {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	schemas := make(map[string]*EntitySchema, len(keys))
	for _, key := range keys {
		def := f.Entities[key]
		opts := []Option{WithRequired(def.Required...), WithUnique(def.Unique...)}
		if def.ID != "" {
			opts = append(opts, WithIDAttribute(def.ID))
		}
		if len(def.Defaults) > 0 {
			opts = append(opts, WithDefaults(def.Defaults))
		}
		for field, hint := range def.Deprecated {
			opts = append(opts, WithDeprecated(field, hint))
		}
		if def.Owned {
			opts = append(opts, Owned())
		}
		schemas[key] = NewEntity(key, opts...)
	}

	for _, key := range keys {
		for field, rel := range f.Entities[key].Relations {
			target, ok := schemas[rel.Type]
			if !ok {
				return nil, fmt.Errorf("schema %s: relation %s targets undeclared type %q", key, field, rel.Type)
			}
			var s Schema = target
			if rel.Many {
				s = ArrayOf(target)
			}
			schemas[key].Define(map[string]Schema{field: s})
		}
	}

	reg := NewRegistry()
	for _, key := range keys {
		if err := reg.Register(schemas[key]); err != nil {
			return nil, err
		}
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

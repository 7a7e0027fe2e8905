package schema

// Config locates the schema definition file.
type Config struct {
	// Path is the YAML schema file.
	Path string `mapstructure:"path" default:"schema.yaml"`
}

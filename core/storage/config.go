package storage

// Config holds configuration for the object store.
type Config struct {
	// Enabled mounts the object-store source.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Endpoint is the host[:port] of the service, scheme optional.
	Endpoint  string `mapstructure:"endpoint" default:"localhost:9000"`
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	UseSSL    bool   `mapstructure:"use_ssl" default:"false"`
	// Bucket holds the entity objects.
	Bucket string `mapstructure:"bucket" default:"entities"`
	// Prefix is prepended to every object name.
	Prefix string `mapstructure:"prefix" default:"entities"`
	Region string `mapstructure:"region" default:""`
	// TimeoutSeconds bounds connection setup and response headers.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

package sync

import (
	"time"

	"entity-sync/core/conflict"
)

// Config tunes an Engine.
type Config struct {
	// Timeout bounds every source call. Zero means no timeout.
	Timeout time.Duration `mapstructure:"timeout" default:"10s"`
	// VersionField holds the backend-assigned version of an entity.
	VersionField string `mapstructure:"version_field" default:"version"`
	// TimestampField holds the modification time used by latest-wins.
	TimestampField string `mapstructure:"timestamp_field" default:"updatedAt"`
	// ConflictStrategy resolves conflicts found by Sync. Manual leaves them
	// open for the caller.
	ConflictStrategy conflict.Strategy `mapstructure:"conflict_strategy" default:"manual"`
	// TransactionLogSize caps the number of retained transactions.
	TransactionLogSize int `mapstructure:"transaction_log_size" default:"256"`
}

// DefaultConfig returns the defaults used for blank fields.
func DefaultConfig() Config {
	return Config{
		Timeout:            10 * time.Second,
		VersionField:       "version",
		TimestampField:     conflict.DefaultTimestampField,
		ConflictStrategy:   conflict.Manual,
		TransactionLogSize: 256,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.VersionField == "" {
		c.VersionField = d.VersionField
	}
	if c.TimestampField == "" {
		c.TimestampField = d.TimestampField
	}
	if c.ConflictStrategy == "" {
		c.ConflictStrategy = d.ConflictStrategy
	}
	if c.TransactionLogSize <= 0 {
		c.TransactionLogSize = d.TransactionLogSize
	}
	return c
}

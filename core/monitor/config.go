package monitor

import "time"

// Config controls periodic checks.
type Config struct {
	// Enabled starts periodic checks with the server.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Interval between checks.
	Interval time.Duration `mapstructure:"interval" default:"1m"`
}

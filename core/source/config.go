package source

import (
	"strings"
	"time"
)

// Backend names accepted in Config.
const (
	BackendMemory   = "memory"
	BackendDatabase = "database"
	BackendStorage  = "storage"
	BackendHTTP     = "http"
)

// Config selects the backends the sync engine talks to.
type Config struct {
	// Primary is the authoritative backend.
	Primary string `mapstructure:"primary" default:"database"`
	// Secondary lists mirrored backends, comma separated.
	Secondary string `mapstructure:"secondary" default:""`
	// HTTPBaseURL is the root of the REST API for the http backend.
	HTTPBaseURL string `mapstructure:"http_base_url" default:""`
	// HTTPTimeoutSeconds bounds each HTTP request.
	HTTPTimeoutSeconds int `mapstructure:"http_timeout_seconds" default:"15"`
	// ReconcileCacheTTL keeps fetched indices for single-entity reconciles.
	ReconcileCacheTTL time.Duration `mapstructure:"reconcile_cache_ttl" default:"30s"`
}

// Backends returns the primary followed by the secondaries, without
// blanks or repeats.
func (c Config) Backends() []string {
	seen := make(map[string]bool)
	var out []string
	for _, name := range append([]string{c.Primary}, strings.Split(c.Secondary, ",")...) {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

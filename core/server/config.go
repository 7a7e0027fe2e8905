package server

import "strings"

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API. Empty disables auth.
	ApiKey string `mapstructure:"api_key" default:""`
	// MetricsPath serves Prometheus metrics; empty disables the endpoint.
	MetricsPath string `mapstructure:"metrics_path" default:"/metrics"`
	// PublicPaths are reachable without the API key (comma separated).
	PublicPaths string `mapstructure:"public_paths" default:"/health"`
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return ":" + c.Port
}

// Public returns the configured public paths.
func (c Config) Public() []string {
	var out []string
	for _, p := range strings.Split(c.PublicPaths, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

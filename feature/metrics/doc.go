// Package metrics serves the Prometheus registry and a /health probe.
package metrics

// Package metrics defines the Prometheus collectors exported by the sync
// engine and the consistency monitor.
//
// Every recording method is safe on a nil receiver so components can run
// without metrics.
package metrics

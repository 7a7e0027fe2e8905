// Package monitor exposes the consistency monitor over HTTP: status, on-demand
// checks, drift against the last check, and snapshot management.
//
// The service keeps the most recent monitor events so pollers can see what a
// background run found without subscribing.
package monitor

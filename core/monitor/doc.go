// Package monitor runs integrity checks on demand or on an interval, keeps
// snapshots of entity state and reports drift between states.
//
// Events are delivered synchronously on the goroutine that emits them.
// Listeners must not call Check from inside a callback.
package monitor

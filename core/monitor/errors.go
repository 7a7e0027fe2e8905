package monitor

import "errors"

var (
	// ErrSnapshotNotFound is returned for unknown snapshot ids.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrNoBaseline is returned by DetectDrift before the first check.
	ErrNoBaseline = errors.New("no completed check to compare against")
	// ErrRunning is returned by Start when the monitor is already running.
	ErrRunning = errors.New("monitor already running")
)

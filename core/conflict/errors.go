package conflict

import (
	"errors"
	"fmt"
)

var (
	// ErrManual is returned when Manual is passed to Resolve.
	ErrManual = errors.New("conflict requires manual resolution")
	// ErrNoCustomResolver is returned when no merge function matches.
	ErrNoCustomResolver = errors.New("no custom resolver registered")
)

// UnknownStrategyError reports a strategy name the resolver does not know.
type UnknownStrategyError struct {
	Strategy string
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown conflict strategy %q", e.Strategy)
}

package store

import "errors"

// errNoChange aborts an Apply without publishing.
var errNoChange = errors.New("no change")

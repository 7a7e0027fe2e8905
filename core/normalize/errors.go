package normalize

import "fmt"

// ValidationError reports a malformed payload found during normalization.
type ValidationError struct {
	// Path locates the offending value, e.g. "posts[2].author".
	Path string
	// EntityType is the schema key expected at Path.
	EntityType string
	// Reason describes the problem.
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed at %s (%s): %s", e.Path, e.EntityType, e.Reason)
}

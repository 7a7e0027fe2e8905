// Package loader provides the plugin-like feature loading system.
//
// Each feature implements the Feature interface:
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// The Manager registers features via Register() and mounts the enabled ones
// via LoadAll(), so the sync, integrity and monitor APIs can be developed and
// tested in isolation.
package loader

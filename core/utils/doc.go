// Package utils provides common utility functions for the entity-sync module.
// It includes helpers for converting loosely typed JSON values (ids, versions,
// timestamps) into concrete Go types.
package utils

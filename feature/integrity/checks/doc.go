// Package checks holds backend checks for the integrity feature: the object
// store layout and the database table used by the entity sources.
package checks

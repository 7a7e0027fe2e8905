// Package entity defines the flat, normalized representation shared by every
// component of entity-sync.
//
// # Model
//
// An Entity is a JSON-like record (map[string]any) of a declared type.
// Entities is the normalized store shape: entity type -> id -> Entity.
// Once normalized, an entity never embeds another entity inline; relation
// fields hold id references (a string or a slice of strings).
//
// # Immutability
//
// Values published by the store are treated as read-only. Every mutation
// works on a copy obtained with Clone (or DeepCopy for a single value) and
// publishes the copy as a new snapshot.
package entity

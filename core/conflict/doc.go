// Package conflict resolves divergence between a pending local change and
// the authoritative remote value of the same entity.
//
// Resolution is pure: the same conflict and strategy always produce the same
// result, and inputs are never modified.
package conflict

// Package store holds the published normalized entity map.
//
// Every mutation builds a fresh map from a deep-copied draft and swaps it in
// atomically; readers always see a complete, immutable snapshot. Subscribers
// are notified after each swap, in mutation order.
package store

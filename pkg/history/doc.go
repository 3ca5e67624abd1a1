// Package history keeps per-entry page snapshots for a browsing session and
// drives a state store through push, replace and pop navigations.
//
// The store only applies patches. Navigator plays the router: before leaving
// an entry it saves the full tree as a patch, and on back or forward it loads
// the destination snapshot and hands it to the store as a POP, which is what
// the store's retention filter and auditor expect.
//
// Storage is pluggable through Store[T]; MemoryStore is the in-process
// implementation used by tests and examples.
package history

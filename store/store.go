// Package store provides the persistence collaborators for router state:
// scalar key/value maps (counters, toggles, analog positions) that survive
// process restart. The router does not care about the storage format beyond
// Load/Save of a scalar map.
package store

import "context"

// Store persists one named scalar map
type Store interface {
	// Load returns the persisted map, or an empty map if nothing was saved yet
	Load(ctx context.Context) (map[string]int64, error)
	// Save replaces the persisted map
	Save(ctx context.Context, values map[string]int64) error
}

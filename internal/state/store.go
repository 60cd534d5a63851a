package state

import "context"

// Store persists run state so deduplication and counters can span multiple
// invocations of the converter over the same dataset.
type Store interface {
	// SeedInto loads every persisted identifier into rs's seen-set and
	// returns the number of identifiers loaded.
	SeedInto(ctx context.Context, rs *RunState) (int, error)

	// SaveChunk records the identifiers first seen in the chunk just written
	// and a snapshot of the run's counters. Called once per written chunk so
	// a crash leaves the store matching the fully-written output.
	SaveChunk(ctx context.Context, rs *RunState, ids []string) error

	// Close releases the underlying resources.
	Close() error
}

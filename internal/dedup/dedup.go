// Package dedup provides the run-scoped seen-identifier set used to filter
// records that were already emitted during a run.
//
// Two implementations are available: an exact set keyed by 64-bit xxh3
// hashes of the identifiers (the default; ~8 bytes per id instead of the id
// string itself), and an approximate bloom-filter set for very large runs
// where even the hashed set would not fit in memory.
package dedup

import (
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/zeebo/xxh3"
)

// Set records identifiers that have been emitted. Implementations are not
// safe for concurrent use; the pipeline owns the set in one logical thread
// of control.
type Set interface {
	// Seen reports whether id was added before.
	Seen(id string) bool
	// Add marks id as emitted. Adding an existing id is a no-op.
	Add(id string)
}

// HashSet is an exact Set over xxh3 hashes of the identifiers.
type HashSet struct {
	ids map[uint64]struct{}
}

// NewHashSet returns an empty exact set.
func NewHashSet() *HashSet {
	return &HashSet{ids: make(map[uint64]struct{})}
}

// Seen implements Set.
func (s *HashSet) Seen(id string) bool {
	_, ok := s.ids[xxh3.HashString(id)]
	return ok
}

// Add implements Set.
func (s *HashSet) Add(id string) {
	s.ids[xxh3.HashString(id)] = struct{}{}
}

// Len returns the number of distinct identifiers added.
func (s *HashSet) Len() int { return len(s.ids) }

// BloomSet is an approximate Set backed by a bloom filter. False positives
// make the deduplicator drop a small fraction of genuinely new records;
// false negatives do not occur, so duplicates are never emitted.
type BloomSet struct {
	filter *bloom.BloomFilter
}

// NewBloomSet sizes a bloom filter for the expected number of identifiers n
// at false-positive rate fp.
func NewBloomSet(n uint, fp float64) *BloomSet {
	return &BloomSet{filter: bloom.NewWithEstimates(n, fp)}
}

// Seen implements Set.
func (s *BloomSet) Seen(id string) bool { return s.filter.TestString(id) }

// Add implements Set.
func (s *BloomSet) Add(id string) { s.filter.AddString(id) }

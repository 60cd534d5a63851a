// Package state holds the run-scoped counters and the deduplication set
// shared by every batch of one run.
//
// RunState is created once at pipeline start and threaded explicitly through
// every stage; nothing in this package is ambient or global, so independent
// runs (tests, composed pipelines) cannot cross-contaminate. A run can be
// seeded from a previous run's persisted state to share deduplication across
// invocations.
package state

import (
	"github.com/google/uuid"

	"github.com/M7sn1982/twarc-csv/internal/dedup"
)

// Counters tracks run statistics. Counter values only grow; they are never
// reset mid-run. Field names mirror the keys reported to the CLI layer.
type Counters struct {
	Lines            int64 // input lines consumed (including blank and bad ones)
	Tweets           int64 // records seen carrying an identifier
	ReferencedTweets int64 // referenced records considered for inline expansion
	Unavailable      int64 // referenced records carrying only metadata
	NonTweets        int64 // decoded objects lacking an identifier
	ParseErrors      int64 // unparseable lines plus rows of rejected batches
	Duplicates       int64 // repeated identifiers (counted even when allowed)
	Rows             int64 // rows handed to the writer
	InputColumns     int64
	OutputColumns    int64
}

// Map renders the counters as the mapping consumed by the reporting layer.
func (c *Counters) Map() map[string]int64 {
	return map[string]int64{
		"lines":             c.Lines,
		"tweets":            c.Tweets,
		"referenced_tweets": c.ReferencedTweets,
		"unavailable":       c.Unavailable,
		"non_tweets":        c.NonTweets,
		"parse_errors":      c.ParseErrors,
		"duplicates":        c.Duplicates,
		"rows":              c.Rows,
		"input_columns":     c.InputColumns,
		"output_columns":    c.OutputColumns,
	}
}

// RunState is the process-lifetime state of one conversion run.
type RunState struct {
	// RunID identifies this run in persisted state and metrics.
	RunID string

	// Counters accumulates run statistics across all batches.
	Counters Counters

	// Seen is the identifier set used for deduplication. It only grows.
	Seen dedup.Set

	// pending collects identifiers added since the last store flush.
	pending []string
}

// New returns a fresh RunState with an exact seen-set.
func New() *RunState {
	return &RunState{
		RunID: uuid.NewString(),
		Seen:  dedup.NewHashSet(),
	}
}

// MarkSeen adds id to the seen-set and journals it for persistence.
func (rs *RunState) MarkSeen(id string) {
	rs.Seen.Add(id)
	rs.pending = append(rs.pending, id)
}

// DrainPending returns the identifiers journaled since the previous call and
// resets the journal. Used by the pipeline to persist per-chunk state.
func (rs *RunState) DrainPending() []string {
	ids := rs.pending
	rs.pending = nil
	return ids
}

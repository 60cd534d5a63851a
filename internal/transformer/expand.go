package transformer

import (
	"github.com/M7sn1982/twarc-csv/internal/state"
	"github.com/M7sn1982/twarc-csv/pkg/records"
)

// minAvailableFields is the field-count threshold above which a referenced
// record is considered available. A reference always carries three reserved
// fields (id, relation kind, inherited retrieval metadata); anything beyond
// those means the API response included the record's content.
//
// The heuristic is brittle to schema extension; revisit it here rather than
// redefining it inline.
const minAvailableFields = 3

// Expander optionally turns each referenced record into its own sibling
// output row.
type Expander struct {
	// Inline enables expansion. When off, Expand yields only the record
	// itself.
	Inline bool
}

// Expand returns the candidate rows produced from rec: referenced rows
// first (when enabled), then the record itself, in that order. Candidates
// are raw (not yet normalized). rec is never mutated; referenced candidates
// are copies carrying the parent's "__twarc" retrieval metadata and nothing
// else from the parent.
//
// Counter effects: every considered reference increments ReferencedTweets;
// references carrying only metadata increment Unavailable and are dropped.
func (e Expander) Expand(rec records.Record, c *state.Counters) []records.Record {
	if !e.Inline {
		return []records.Record{rec}
	}

	refs, _ := rec["referenced_tweets"].([]any)
	out := make([]records.Record, 0, len(refs)+1)
	for _, elem := range refs {
		ref, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		c.ReferencedTweets++

		candidate := records.Record(ref).Clone()
		candidate["__twarc"] = records.CloneValue(rec["__twarc"]) // nil when the parent has none
		if len(candidate) > minAvailableFields {
			out = append(out, candidate)
		} else {
			c.Unavailable++
		}
	}
	return append(out, rec)
}

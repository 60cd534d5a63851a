package transformer

import (
	"encoding/json"

	"github.com/M7sn1982/twarc-csv/internal/flatten"
	"github.com/M7sn1982/twarc-csv/internal/schema"
	"github.com/M7sn1982/twarc-csv/internal/state"
	"github.com/M7sn1982/twarc-csv/pkg/records"
)

// Options configures the batch converter.
type Options struct {
	// Encoding selects the cell-encoding mode.
	Encoding Encoding
	// InlineReferencedTweets emits referenced records as sibling rows.
	InlineReferencedTweets bool
	// MergeRetweets merges the original tweet's body into native retweets.
	MergeRetweets bool
	// AllowDuplicates keeps repeated identifiers in the output. Duplicates
	// are counted either way; only filtering is conditional.
	AllowDuplicates bool
}

// TableBatch is one rectangular chunk of output. Rows are aligned to
// Columns; cells are already encoded. A batch is written and discarded
// immediately.
type TableBatch struct {
	Columns []string
	Rows    [][]any
}

// Converter turns a chunk of decoded input objects into a TableBatch. It
// composes envelope flattening, normalization, optional reference
// expansion, deduplication, schema reconciliation, and cell encoding, and
// accumulates its effects into the RunState passed to Process.
type Converter struct {
	schema     *schema.Schema
	normalizer Normalizer
	expander   Expander
	encoder    Encoder
	allowDups  bool
}

// NewConverter builds a Converter over the given column contract.
func NewConverter(s *schema.Schema, opts Options) *Converter {
	return &Converter{
		schema:     s,
		normalizer: Normalizer{MergeRetweets: opts.MergeRetweets},
		expander:   Expander{Inline: opts.InlineReferencedTweets},
		encoder:    NewEncoder(opts.Encoding),
		allowDups:  opts.AllowDuplicates,
	}
}

// Process converts one chunk. On a schema mismatch the whole chunk is
// rejected: the returned batch has no rows, the chunk's record count is
// added to ParseErrors, and the *schema.UnexpectedColumnsError is returned
// for the caller to surface. Processing of later chunks continues.
func (c *Converter) Process(objs []any, rs *state.RunState) (*TableBatch, error) {
	var kept []records.Record

	for _, obj := range objs {
		for _, rec := range flatten.Expand(obj) {
			for _, candidate := range c.expander.Expand(rec, &rs.Counters) {
				norm := c.normalizer.Apply(candidate)

				id, ok := identifier(norm)
				if !ok {
					// Usually streaming API errors and other protocol noise.
					rs.Counters.NonTweets++
					continue
				}
				rs.Counters.Tweets++

				seen := rs.Seen.Seen(id)
				if seen {
					rs.Counters.Duplicates++
				} else {
					rs.MarkSeen(id)
				}
				if seen && !c.allowDups {
					continue
				}
				kept = append(kept, flatten.DotPaths(norm))
			}
		}
	}

	if err := c.schema.Reconcile(kept); err != nil {
		rs.Counters.ParseErrors += int64(len(kept))
		return &TableBatch{Columns: c.schema.InputColumns()}, err
	}

	rows := make([][]any, 0, len(kept))
	for _, rec := range kept {
		row := schema.AlignRow(rec, c.schema.InputColumns())
		for i, v := range row {
			row[i] = c.encoder.Cell(v)
		}
		rows = append(rows, row)
	}
	return &TableBatch{Columns: c.schema.InputColumns(), Rows: rows}, nil
}

// identifier extracts the record's identifier field as a string.
func identifier(rec records.Record) (string, bool) {
	v, ok := rec["id"]
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}

package transformer

import (
	"errors"
	"testing"

	"github.com/M7sn1982/twarc-csv/internal/schema"
	"github.com/M7sn1982/twarc-csv/internal/state"
	"github.com/M7sn1982/twarc-csv/pkg/records"
)

func tweetSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.Kind{schema.KindTweets}, nil, nil)
	if err != nil {
		t.Fatalf("schema.New: %v", err)
	}
	return s
}

func colIndex(t *testing.T, cols []string, name string) int {
	t.Helper()
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	t.Fatalf("column %q not found", name)
	return -1
}

func defaultOptions() Options {
	return Options{
		Encoding:      Encoding{Lists: true},
		MergeRetweets: true,
	}
}

func TestProcessAlignsRowsToSchema(t *testing.T) {
	s := tweetSchema(t)
	c := NewConverter(s, defaultOptions())
	rs := state.New()

	// Key order in the input object must not matter.
	batch, err := c.Process([]any{
		map[string]any{"text": "hi", "id": "1", "author_id": "9"},
	}, rs)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(batch.Rows) != 1 {
		t.Fatalf("rows: got %d want 1", len(batch.Rows))
	}
	row := batch.Rows[0]
	if got := row[colIndex(t, batch.Columns, "id")]; got != "1" {
		t.Fatalf("id cell: got %v", got)
	}
	if got := row[colIndex(t, batch.Columns, "text")]; got != "hi" {
		t.Fatalf("text cell: got %v", got)
	}
	if got := row[colIndex(t, batch.Columns, "lang")]; got != nil {
		t.Fatalf("missing cell must be nil, got %v", got)
	}
	if len(row) != len(s.InputColumns()) {
		t.Fatalf("row width: got %d want %d", len(row), len(s.InputColumns()))
	}
}

func TestProcessDeduplicates(t *testing.T) {
	s := tweetSchema(t)
	c := NewConverter(s, defaultOptions())
	rs := state.New()

	objs := []any{
		map[string]any{"id": "1", "text": "first"},
		map[string]any{"id": "1", "text": "repeat"},
		map[string]any{"id": "2", "text": "other"},
	}
	batch, err := c.Process(objs, rs)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(batch.Rows) != 2 {
		t.Fatalf("rows: got %d want 2", len(batch.Rows))
	}
	// First occurrence in input order is the one kept.
	if got := batch.Rows[0][colIndex(t, batch.Columns, "text")]; got != "first" {
		t.Fatalf("kept occurrence: got %v want first", got)
	}
	if rs.Counters.Tweets != 3 || rs.Counters.Duplicates != 1 {
		t.Fatalf("counters: tweets=%d duplicates=%d", rs.Counters.Tweets, rs.Counters.Duplicates)
	}

	// Dedup spans batches within one run.
	batch, err = c.Process([]any{map[string]any{"id": "2", "text": "again"}}, rs)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(batch.Rows) != 0 {
		t.Fatalf("cross-batch duplicate emitted")
	}
	if rs.Counters.Duplicates != 2 {
		t.Fatalf("duplicates: got %d want 2", rs.Counters.Duplicates)
	}
}

func TestProcessAllowDuplicatesStillCounts(t *testing.T) {
	s := tweetSchema(t)
	opts := defaultOptions()
	opts.AllowDuplicates = true
	c := NewConverter(s, opts)
	rs := state.New()

	batch, err := c.Process([]any{
		map[string]any{"id": "1"},
		map[string]any{"id": "1"},
	}, rs)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(batch.Rows) != 2 {
		t.Fatalf("rows: got %d want 2", len(batch.Rows))
	}
	// Counting and filtering are deliberately split: repeats are counted
	// even when they are not filtered.
	if rs.Counters.Duplicates != 1 {
		t.Fatalf("duplicates: got %d want 1", rs.Counters.Duplicates)
	}
}

func TestProcessNonTweetObjects(t *testing.T) {
	s := tweetSchema(t)
	c := NewConverter(s, defaultOptions())
	rs := state.New()

	batch, err := c.Process([]any{
		map[string]any{"errors": []any{map[string]any{"title": "operational-disconnect"}}},
	}, rs)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(batch.Rows) != 0 {
		t.Fatalf("non-record object emitted")
	}
	if rs.Counters.NonTweets != 1 {
		t.Fatalf("non_tweets: got %d want 1", rs.Counters.NonTweets)
	}
}

func TestProcessRejectsWholeBatchOnSchemaDrift(t *testing.T) {
	s := tweetSchema(t)
	c := NewConverter(s, defaultOptions())
	rs := state.New()

	objs := []any{
		map[string]any{"id": "1", "text": "fine"},
		map[string]any{"id": "2", "brand_new_field": true},
		map[string]any{"id": "3"},
	}
	batch, err := c.Process(objs, rs)
	if err == nil {
		t.Fatalf("expected schema error")
	}
	var uerr *schema.UnexpectedColumnsError
	if !errors.As(err, &uerr) {
		t.Fatalf("error type: got %T", err)
	}
	if len(batch.Rows) != 0 {
		t.Fatalf("rejected batch emitted %d rows", len(batch.Rows))
	}
	if rs.Counters.ParseErrors != 3 {
		t.Fatalf("parse_errors: got %d want 3", rs.Counters.ParseErrors)
	}
}

func TestProcessInlineReferencedTweets(t *testing.T) {
	s := tweetSchema(t)
	opts := defaultOptions()
	opts.InlineReferencedTweets = true
	c := NewConverter(s, opts)
	rs := state.New()

	obj := map[string]any{
		"id":      "1",
		"text":    "RT @bob orig",
		"__twarc": map[string]any{"url": "https://api.example"},
		"referenced_tweets": []any{
			map[string]any{"type": "retweeted", "id": "2", "author_id": "bob", "text": "orig"},
		},
	}
	batch, err := c.Process([]any{obj}, rs)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(batch.Rows) != 2 {
		t.Fatalf("rows: got %d want 2", len(batch.Rows))
	}
	idIdx := colIndex(t, batch.Columns, "id")
	if batch.Rows[0][idIdx] != "2" || batch.Rows[1][idIdx] != "1" {
		t.Fatalf("referenced row must precede parent: %v, %v",
			batch.Rows[0][idIdx], batch.Rows[1][idIdx])
	}
	if rs.Counters.ReferencedTweets != 1 {
		t.Fatalf("referenced_tweets: got %d want 1", rs.Counters.ReferencedTweets)
	}
}

func TestProcessEnvelope(t *testing.T) {
	s := tweetSchema(t)
	c := NewConverter(s, defaultOptions())
	rs := state.New()

	env := map[string]any{
		"data": []any{
			map[string]any{"id": "1", "text": "a", "author_id": "u1"},
			map[string]any{"id": "2", "text": "b", "author_id": "u1"},
		},
		"includes": map[string]any{
			"users": []any{map[string]any{"id": "u1", "username": "alice"}},
		},
	}
	batch, err := c.Process([]any{env}, rs)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(batch.Rows) != 2 {
		t.Fatalf("rows: got %d want 2", len(batch.Rows))
	}
	if got := batch.Rows[0][colIndex(t, batch.Columns, "author.username")]; got != "alice" {
		t.Fatalf("hydrated author: got %v", got)
	}
}

// identifier must accept both string and numeric ids.
func TestIdentifier(t *testing.T) {
	if id, ok := identifier(records.Record{"id": "x"}); !ok || id != "x" {
		t.Fatalf("string id: %v %v", id, ok)
	}
	if _, ok := identifier(records.Record{"text": "no id"}); ok {
		t.Fatalf("missing id accepted")
	}
}

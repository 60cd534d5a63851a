// Package pipeline drives one conversion run: it reads newline-delimited
// JSON, groups parsed objects into fixed-size chunks, hands each chunk to
// the batch converter, and appends the resulting rows to the tabular output,
// writing the column header exactly once.
//
// The run is strictly sequential from the converter's point of view: the
// reader goroutine only feeds lines, while counters, the dedup set, and the
// writer are owned by the run loop in one logical thread of control. Chunk
// boundaries are the only checkpoints; a crash mid-run leaves the output
// containing all fully-written prior chunks and counters matching what was
// written.
package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/M7sn1982/twarc-csv/internal/metrics"
	"github.com/M7sn1982/twarc-csv/internal/schema"
	"github.com/M7sn1982/twarc-csv/internal/state"
	"github.com/M7sn1982/twarc-csv/internal/transformer"
)

// defaultBatchSize is the chunk size used when none is configured.
const defaultBatchSize = 100

// Pipeline converts one input stream into one tabular output stream.
type Pipeline struct {
	// Converter transforms each chunk of decoded objects.
	Converter *transformer.Converter

	// Schema supplies the output column subset and the column counters.
	Schema *schema.Schema

	// State is the run-scoped counters and dedup set. Required; seed it
	// beforehand to share dedup state across invocations.
	State *state.RunState

	// Store, when non-nil, persists seen identifiers and counters after
	// every written chunk.
	Store state.Store

	// BatchSize is the number of input lines per chunk (default 100).
	BatchSize int

	// Delimiter is the output field separator (default ',').
	Delimiter rune

	// Verbose enables per-chunk progress logs.
	Verbose bool
}

// Run processes all of in into out and returns when the input is exhausted
// or a fatal error occurs. Malformed lines and schema-rejected chunks are
// skip-and-continue conditions reflected in the counters; only I/O failures
// on in or out are fatal.
func (p *Pipeline) Run(ctx context.Context, in io.Reader, out io.Writer) (err error) {
	if p.State == nil {
		return fmt.Errorf("pipeline: RunState is required")
	}
	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	start := time.Now()
	defer func() { metrics.RecordRun(err, time.Since(start)) }()

	c := &p.State.Counters
	c.InputColumns = int64(len(p.Schema.InputColumns()))
	c.OutputColumns = int64(len(p.Schema.OutputColumns()))

	w := csv.NewWriter(out)
	if p.Delimiter != 0 {
		w.Comma = p.Delimiter
	}

	// Precompute where each output column sits in the batch row alignment.
	outIdx := make([]int, 0, len(p.Schema.OutputColumns()))
	pos := make(map[string]int, len(p.Schema.InputColumns()))
	for i, col := range p.Schema.InputColumns() {
		pos[col] = i
	}
	for _, col := range p.Schema.OutputColumns() {
		outIdx = append(outIdx, pos[col])
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan lineEvent, batchSize)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return readLines(ctx, in, lines) })

	headerWritten := false
	chunk := make([]any, 0, batchSize)

	flushChunk := func() error {
		if len(chunk) == 0 {
			return nil
		}
		objs := chunk
		chunk = chunk[:0]

		batch, cerr := p.Converter.Process(objs, p.State)
		if cerr != nil {
			var uerr *schema.UnexpectedColumnsError
			if !errors.As(cerr, &uerr) {
				return cerr
			}
			// Shape drift: the chunk was dropped and counted; surface the
			// full offending key list and keep going.
			log.Printf("pipeline: %v (fix with extra input columns %q)", uerr, strings.Join(uerr.Columns, ","))
			metrics.RecordRows("parse_errors", int64(uerr.Rows))
		}

		if !headerWritten {
			if werr := w.Write(p.Schema.OutputColumns()); werr != nil {
				return fmt.Errorf("pipeline: write header: %w", werr)
			}
			headerWritten = true
		}
		for _, row := range batch.Rows {
			cells := make([]string, len(outIdx))
			for i, idx := range outIdx {
				cells[i] = formatCell(row[idx])
			}
			if werr := w.Write(cells); werr != nil {
				return fmt.Errorf("pipeline: write row: %w", werr)
			}
		}
		c.Rows += int64(len(batch.Rows))

		// The chunk only counts once it is handed to the writer in full.
		w.Flush()
		if werr := w.Error(); werr != nil {
			return fmt.Errorf("pipeline: flush: %w", werr)
		}

		metrics.RecordChunk()
		metrics.RecordRows("rows", int64(len(batch.Rows)))
		if p.Verbose {
			log.Printf("pipeline: chunk written rows=%d total_rows=%d", len(batch.Rows), c.Rows)
		}

		if p.Store != nil {
			if serr := p.Store.SaveChunk(ctx, p.State, p.State.DrainPending()); serr != nil {
				return fmt.Errorf("pipeline: persist state: %w", serr)
			}
		}
		return nil
	}

	runErr := func() error {
		for ev := range lines {
			c.Lines++
			switch {
			case ev.blank:
				// Blank lines advance the line counter only.
			case ev.err != nil:
				c.ParseErrors++
				log.Printf("pipeline: parse error on line %d: %v", c.Lines, ev.err)
				metrics.RecordRows("parse_errors", 1)
			default:
				chunk = append(chunk, ev.obj)
				if len(chunk) >= batchSize {
					if err := flushChunk(); err != nil {
						return err
					}
				}
			}
		}
		return flushChunk()
	}()

	if runErr != nil {
		cancel()
		// Drain so the reader can exit before we report.
		for range lines {
		}
	}
	if gerr := g.Wait(); runErr == nil && gerr != nil {
		return fmt.Errorf("pipeline: read input: %w", gerr)
	}
	return runErr
}

// formatCell renders one already-encoded cell for the writer. Missing cells
// are empty, never the literal "null".
func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		// Composite values reach the writer only when list encoding is off.
		return fmt.Sprint(t)
	}
}

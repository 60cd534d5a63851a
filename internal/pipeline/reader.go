package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// lineEvent is one consumed input line. Exactly one of obj/err is set for
// non-blank lines; blank lines carry neither. The run loop owns the
// counters, so the reader only reports what it saw.
type lineEvent struct {
	obj   any   // decoded object, nil for blank or bad lines
	blank bool  // line contained only whitespace
	err   error // parse failure for this line
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readLines consumes r line by line, decodes each non-blank line as one JSON
// value, and sends one event per line to out. Numbers are decoded as
// json.Number so identifiers and counts round-trip exactly. Input is NFC
// normalized and a leading UTF-8 BOM is stripped.
//
// readLines returns a non-nil error only for I/O failures on r; per-line
// parse failures travel in the events.
func readLines(ctx context.Context, r io.Reader, out chan<- lineEvent) error {
	defer close(out)

	br := bufio.NewReaderSize(r, 1<<16)
	first := true
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if first {
				line = bytes.TrimPrefix(line, utf8BOM)
				first = false
			}
			ev := decodeLine(line)
			select {
			case out <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// decodeLine turns one raw line into a lineEvent.
func decodeLine(line []byte) lineEvent {
	trimmed := strings.TrimSpace(string(line))
	if trimmed == "" {
		return lineEvent{blank: true}
	}
	trimmed = norm.NFC.String(trimmed)

	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var obj any
	if err := dec.Decode(&obj); err != nil {
		return lineEvent{err: err}
	}
	return lineEvent{obj: obj}
}

package transformer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/M7sn1982/twarc-csv/pkg/records"
)

// Encoding selects how cell values are rendered for the tabular writer.
// The modes are mutually exclusive in effect: All wins over Text, and the
// minimal newline escape applies to strings whenever neither JSON mode does.
type Encoding struct {
	// All serializes every non-missing cell to its JSON representation.
	All bool
	// Text serializes string cells to their JSON representation.
	Text bool
	// Lists serializes list- and object-typed cells to JSON. When off,
	// composite cells reach the writer as native values.
	Lists bool
}

// Encoder renders one cell value per the configured Encoding. Missing
// values (nil) always pass through as nil and are never rendered as the
// literal "null".
type Encoder struct {
	cfg Encoding
}

// NewEncoder returns an Encoder for the given Encoding.
func NewEncoder(cfg Encoding) Encoder { return Encoder{cfg: cfg} }

// Cell encodes a single cell value.
func (e Encoder) Cell(v any) any {
	if v == nil {
		return nil
	}
	if e.cfg.All {
		return jsonCell(v)
	}
	if s, ok := v.(string); ok {
		if e.cfg.Text {
			return jsonCell(s)
		}
		// Mandatory minimal escape: a raw line break inside a cell would
		// break the row apart.
		s = strings.ReplaceAll(s, "\r", "")
		return strings.ReplaceAll(s, "\n", `\n`)
	}
	if e.cfg.Lists && isComposite(v) {
		return jsonCell(v)
	}
	return v
}

// isComposite reports whether v is a list- or object-typed value.
func isComposite(v any) bool {
	switch v.(type) {
	case []any, map[string]any, records.Record:
		return true
	default:
		return false
	}
}

// jsonCell renders v as compact JSON without HTML escaping (cells hold
// tweet text; rewriting "&" or "<" would corrupt it).
func jsonCell(v any) any {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		// Decoded JSON values always re-encode; anything else is rendered
		// with fmt as a last resort.
		return fmt.Sprint(v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

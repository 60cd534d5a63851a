package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/M7sn1982/twarc-csv/pkg/records"
)

// UnexpectedColumnsError reports key paths observed in a batch that are not
// part of the input column contract. The whole batch is rejected when this
// error is returned: silent column drift would corrupt downstream analysis,
// so the mismatch is surfaced with the full offending key list instead.
type UnexpectedColumnsError struct {
	// Columns lists every unexpected key path, sorted.
	Columns []string
	// Rows is the number of records in the rejected batch.
	Rows int
	// Expected and Observed are the contract size and the batch's union size.
	Expected int
	Observed int
}

func (e *UnexpectedColumnsError) Error() string {
	return fmt.Sprintf(
		"unexpected columns %q: expected %d columns, got %d; skipping entire batch of %d records",
		strings.Join(e.Columns, ","), e.Expected, e.Observed, e.Rows,
	)
}

// Reconcile validates the union of keys observed across batch against the
// input column contract. It returns nil when every observed key is accepted,
// or an *UnexpectedColumnsError naming every offender. The batch itself is
// never modified.
func (s *Schema) Reconcile(batch []records.Record) error {
	observed := make(map[string]struct{})
	for _, rec := range batch {
		for k := range rec {
			observed[k] = struct{}{}
		}
	}

	var diff []string
	for k := range observed {
		if _, ok := s.inputSet[k]; !ok {
			diff = append(diff, k)
		}
	}
	if len(diff) == 0 {
		return nil
	}
	sort.Strings(diff)
	return &UnexpectedColumnsError{
		Columns:  diff,
		Rows:     len(batch),
		Expected: len(s.input),
		Observed: len(observed),
	}
}

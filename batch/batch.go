// Package batch defines the columnar input a factor is replayed over and
// the Source abstraction that produces it: CSV, Parquet and Avro files
// each in their turn, plus an in-memory adapter for callers that already
// hold their data as a list of rows, each a column-name-to-value map.
package batch

import (
	"fmt"
	"io"
	"strings"

	"github.com/factorlab/factorexpr/ops"
)

// Batch is one chunk of fixed-typed, column-major input rows. Every
// column slice has the same length; a row i is the tuple of values at
// index i across all columns.
type Batch struct {
	Columns map[string][]float64
	Len     int
}

// row adapts one row of a Batch to ops.Row without copying.
type row struct {
	batch *Batch
	i     int
}

func (r row) Get(name string) (float64, bool) {
	col, ok := r.batch.Columns[name]
	if !ok || r.i >= len(col) {
		return 0, false
	}
	return col[r.i], true
}

// Rows returns an ops.Row view over each row of b, in order.
func (b *Batch) Rows() []ops.Row {
	rows := make([]ops.Row, b.Len)
	for i := range rows {
		rows[i] = row{batch: b, i: i}
	}
	return rows
}

// Source produces a factor's input one batch at a time. Next returns
// io.EOF once every batch has been delivered; any other error is a
// genuine read failure that callers surface without further reads.
type Source interface {
	// Name identifies the source in results and log lines.
	Name() string
	// Schema lists every column this source will ever produce. It is
	// known up front — every implementation reads a header or file
	// schema at construction — so it can be checked against a factor's
	// referenced columns before any batch is read.
	Schema() []string
	// Next returns the source's next batch, or io.EOF when exhausted.
	Next() (*Batch, error)
	// Close releases whatever the source holds open.
	Close() error
}

// ErrEOF is an alias for io.EOF, kept local so callers of this package
// don't need to also import io just to check for it.
var ErrEOF = io.EOF

// SchemaError reports that one or more columns a caller needs are
// missing from a source's schema. Every column this package hands to an
// evaluator is a float64 by construction (batch sources decode
// non-numeric cells to NaN rather than a different type), so the only
// schema failure worth a typed error is a missing column, not a type
// mismatch.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("batch: source %s is missing column(s): %s", e.Source, strings.Join(e.Missing, ", "))
}

// ValidateSchema checks that every name in columns, plus indexColumn if
// it is non-empty, is present in src's schema. It returns a *SchemaError
// naming every column that isn't, or nil if src's schema covers them
// all.
func ValidateSchema(src Source, columns []string, indexColumn string) error {
	have := make(map[string]bool, len(src.Schema()))
	for _, c := range src.Schema() {
		have[c] = true
	}

	seen := make(map[string]bool)
	var missing []string
	check := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		if !have[name] {
			missing = append(missing, name)
		}
	}
	for _, c := range columns {
		check(c)
	}
	check(indexColumn)

	if len(missing) > 0 {
		return &SchemaError{Source: src.Name(), Missing: missing}
	}
	return nil
}

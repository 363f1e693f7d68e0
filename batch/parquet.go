package batch

import (
	"io"
	"math"
	"os"

	parquet "github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
)

// ParquetSource streams a Parquet file batch by batch. Column names come
// from the file's own schema; each field is read into a float64, with
// non-numeric fields decoding to NaN the same way CSVSource and
// AvroSource treat data that isn't a number.
type ParquetSource struct {
	name      string
	file      *os.File
	reader    *parquet.GenericReader[map[string]any]
	columns   []string
	batchSize int
}

// NewParquetSource opens filename and reads its schema up front to fix
// the set of columns Next will emit.
func NewParquetSource(name, filename string, batchSize int) (*ParquetSource, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "batch: open %s", filename)
	}
	r := parquet.NewGenericReader[map[string]any](f)

	schema := r.Schema()
	fields := schema.Fields()
	columns := make([]string, len(fields))
	for i, field := range fields {
		columns[i] = field.Name()
	}

	return &ParquetSource{name: name, file: f, reader: r, columns: columns, batchSize: batchSize}, nil
}

func (s *ParquetSource) Name() string { return s.name }

func (s *ParquetSource) Schema() []string { return s.columns }

func (s *ParquetSource) Next() (*Batch, error) {
	rows := make([]map[string]any, s.batchSize)
	for i := range rows {
		rows[i] = make(map[string]any, len(s.columns))
	}

	n, err := s.reader.Read(rows)
	if n == 0 {
		if err == io.EOF || err == nil {
			return nil, ErrEOF
		}
		return nil, errors.Wrapf(err, "batch: read rows from %s", s.name)
	}
	if err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "batch: read rows from %s", s.name)
	}

	cols := make(map[string][]float64, len(s.columns))
	for _, c := range s.columns {
		vals := make([]float64, n)
		for i := 0; i < n; i++ {
			vals[i] = parquetFloat(rows[i][c])
		}
		cols[c] = vals
	}
	return &Batch{Columns: cols, Len: n}, nil
}

func (s *ParquetSource) Close() error {
	if err := s.reader.Close(); err != nil {
		s.file.Close()
		return errors.Wrapf(err, "batch: close %s", s.name)
	}
	return s.file.Close()
}

func parquetFloat(v any) float64 {
	switch val := v.(type) {
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case float32:
		return float64(val)
	case float64:
		return val
	case bool:
		if val {
			return 1
		}
		return 0
	default:
		return math.NaN()
	}
}

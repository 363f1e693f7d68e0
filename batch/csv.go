package batch

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// CSVSource streams a CSV file batch by batch, inferring a fixed float64
// column per header field. A cell that doesn't parse as a number becomes
// NaN rather than aborting the read — an evaluator that touches it fails
// the same way it would fail on any other non-finite input, which is the
// behavior a numeric factor pipeline wants from bad or missing data.
type CSVSource struct {
	name      string
	file      *os.File
	reader    *csv.Reader
	columns   []string
	batchSize int
	done      bool
}

// NewCSVSource opens filename and reads its header row immediately,
// leaving the body to be consumed batchSize rows at a time by Next.
func NewCSVSource(name, filename string, batchSize int) (*CSVSource, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "batch: open %s", filename)
	}
	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "batch: read header from %s", filename)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	return &CSVSource{name: name, file: f, reader: r, columns: columns, batchSize: batchSize}, nil
}

func (s *CSVSource) Name() string { return s.name }

func (s *CSVSource) Schema() []string { return s.columns }

func (s *CSVSource) Next() (*Batch, error) {
	if s.done {
		return nil, ErrEOF
	}

	cols := make(map[string][]float64, len(s.columns))
	for _, c := range s.columns {
		cols[c] = make([]float64, 0, s.batchSize)
	}

	n := 0
	for n < s.batchSize {
		record, err := s.reader.Read()
		if err == io.EOF {
			s.done = true
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "batch: read row from %s", s.name)
		}
		for i, c := range s.columns {
			var v float64
			if i < len(record) {
				v = parseCell(record[i])
			} else {
				v = math.NaN()
			}
			cols[c] = append(cols[c], v)
		}
		n++
	}

	if n == 0 {
		return nil, ErrEOF
	}
	return &Batch{Columns: cols, Len: n}, nil
}

func (s *CSVSource) Close() error {
	return s.file.Close()
}

func parseCell(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

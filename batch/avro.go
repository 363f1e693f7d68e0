package batch

import (
	"encoding/json"
	"math"
	"os"

	goavro "github.com/linkedin/goavro/v2"
	"github.com/pkg/errors"
)

// AvroSource streams an Avro object-container file batch by batch, one
// float64 column per schema field. Non-numeric fields decode to NaN.
type AvroSource struct {
	name      string
	file      *os.File
	reader    *goavro.OCFReader
	columns   []string
	batchSize int
}

// NewAvroSource opens filename, reads its schema to determine column
// names up front, and leaves record scanning to Next.
func NewAvroSource(name, filename string, batchSize int) (*AvroSource, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "batch: open %s", filename)
	}
	r, err := goavro.NewOCFReader(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "batch: open Avro OCF %s", filename)
	}

	var schemaDef struct {
		Fields []struct {
			Name string `json:"name"`
		} `json:"fields"`
	}
	if err := json.Unmarshal([]byte(r.Codec().Schema()), &schemaDef); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "batch: parse Avro schema for %s", filename)
	}
	columns := make([]string, len(schemaDef.Fields))
	for i, field := range schemaDef.Fields {
		columns[i] = field.Name
	}

	return &AvroSource{name: name, file: f, reader: r, columns: columns, batchSize: batchSize}, nil
}

func (s *AvroSource) Name() string { return s.name }

func (s *AvroSource) Schema() []string { return s.columns }

func (s *AvroSource) Next() (*Batch, error) {
	cols := make(map[string][]float64, len(s.columns))
	for _, c := range s.columns {
		cols[c] = make([]float64, 0, s.batchSize)
	}

	n := 0
	for n < s.batchSize && s.reader.Scan() {
		datum, err := s.reader.Read()
		if err != nil {
			return nil, errors.Wrapf(err, "batch: read record from %s", s.name)
		}
		rec, ok := datum.(map[string]interface{})
		if !ok {
			return nil, errors.Errorf("batch: unexpected Avro record type %T in %s", datum, s.name)
		}
		for _, c := range s.columns {
			cols[c] = append(cols[c], avroFloat(rec[c]))
		}
		n++
	}
	if err := s.reader.Err(); err != nil {
		return nil, errors.Wrapf(err, "batch: reading %s", s.name)
	}
	if n == 0 {
		return nil, ErrEOF
	}
	return &Batch{Columns: cols, Len: n}, nil
}

func (s *AvroSource) Close() error {
	return s.file.Close()
}

func avroFloat(v interface{}) float64 {
	switch val := v.(type) {
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case float32:
		return float64(val)
	case float64:
		return val
	case map[string]interface{}:
		for _, inner := range val {
			return avroFloat(inner)
		}
		return math.NaN()
	default:
		return math.NaN()
	}
}

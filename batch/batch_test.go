package batch

import (
	"io"
	"math"
	"os"
	"testing"
)

func writeTempCSV(t *testing.T, contents string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "batch-*.csv")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	if _, err := f.WriteString(contents); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return f.Name()
}

func TestCSVSourceBatching(t *testing.T) {
	path := writeTempCSV(t, "x,y\n1,2\n3,4\n5,6\n")
	src, err := NewCSVSource("test", path, 2)
	if err != nil {
		t.Fatalf("NewCSVSource: %v", err)
	}
	defer src.Close()

	b1, err := src.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if b1.Len != 2 || b1.Columns["x"][0] != 1 || b1.Columns["y"][1] != 4 {
		t.Errorf("unexpected first batch: %+v", b1)
	}

	b2, err := src.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if b2.Len != 1 || b2.Columns["x"][0] != 5 {
		t.Errorf("unexpected second batch: %+v", b2)
	}

	if _, err := src.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestCSVSourceNonNumericCellIsNaN(t *testing.T) {
	path := writeTempCSV(t, "x\nnot-a-number\n")
	src, err := NewCSVSource("test", path, 10)
	if err != nil {
		t.Fatalf("NewCSVSource: %v", err)
	}
	defer src.Close()

	b, err := src.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !math.IsNaN(b.Columns["x"][0]) {
		t.Errorf("expected NaN for non-numeric cell, got %v", b.Columns["x"][0])
	}
}

func TestCSVSourceSchema(t *testing.T) {
	path := writeTempCSV(t, "x,y\n1,2\n")
	src, err := NewCSVSource("test", path, 10)
	if err != nil {
		t.Fatalf("NewCSVSource: %v", err)
	}
	defer src.Close()

	got := src.Schema()
	if len(got) != 2 || got[0] != "x" || got[1] != "y" {
		t.Errorf("got schema %v, want [x y]", got)
	}
}

func TestValidateSchemaReportsMissingColumns(t *testing.T) {
	path := writeTempCSV(t, "x,y\n1,2\n")
	src, err := NewCSVSource("test", path, 10)
	if err != nil {
		t.Fatalf("NewCSVSource: %v", err)
	}
	defer src.Close()

	err = ValidateSchema(src, []string{"x", "z"}, "w")
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	schemaErr, ok := err.(*SchemaError)
	if !ok {
		t.Fatalf("expected a *SchemaError, got %v (%T)", err, err)
	}
	if len(schemaErr.Missing) != 2 || schemaErr.Missing[0] != "z" || schemaErr.Missing[1] != "w" {
		t.Errorf("got missing %v, want [z w]", schemaErr.Missing)
	}
}

func TestValidateSchemaPassesWhenComplete(t *testing.T) {
	path := writeTempCSV(t, "x,y\n1,2\n")
	src, err := NewCSVSource("test", path, 10)
	if err != nil {
		t.Fatalf("NewCSVSource: %v", err)
	}
	defer src.Close()

	if err := ValidateSchema(src, []string{"x", "y"}, ""); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSingleRowSourceOneRowPerBatch(t *testing.T) {
	src := NewSingleRowSource("tick", []map[string]float64{
		{"x": 1},
		{"x": 2},
	})
	b1, err := src.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if b1.Len != 1 || b1.Columns["x"][0] != 1 {
		t.Errorf("unexpected batch: %+v", b1)
	}
	b2, err := src.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if b2.Columns["x"][0] != 2 {
		t.Errorf("unexpected batch: %+v", b2)
	}
	if _, err := src.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

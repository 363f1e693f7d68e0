package batch

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	parquet "github.com/parquet-go/parquet-go"
)

type parquetTestRow struct {
	X float64 `parquet:"x"`
	Y float64 `parquet:"y"`
}

func writeTempParquet(t *testing.T, rows []parquetTestRow) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rows.parquet")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	w := parquet.NewWriter(f)
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

func TestParquetSourceBatching(t *testing.T) {
	path := writeTempParquet(t, []parquetTestRow{
		{X: 1, Y: 2}, {X: 3, Y: 4}, {X: 5, Y: 6},
	})
	src, err := NewParquetSource("test", path, 2)
	if err != nil {
		t.Fatalf("NewParquetSource: %v", err)
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

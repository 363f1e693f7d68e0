package main

import (
	"log"
	"os"

	parquet "github.com/parquet-go/parquet-go"
)

// Tick is one row of the fixture ParquetSource reads in tests: a fixed
// float64 schema, matching the shape every batch source in this module
// produces.
type Tick struct {
	BidPrice float64 `parquet:"bid_price"`
	AskPrice float64 `parquet:"ask_price"`
	Volume   float64 `parquet:"volume"`
}

func main() {
	f, err := os.Create("testdata/ticks.parquet")
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	w := parquet.NewWriter(f)

	ticks := []Tick{
		{100.0, 100.2, 10},
		{100.1, 100.3, 12},
		{100.0, 100.2, 8},
		{99.9, 100.1, 15},
		{100.2, 100.4, 20},
		{100.3, 100.5, 9},
	}

	for _, t := range ticks {
		if err := w.Write(t); err != nil {
			log.Fatal(err)
		}
	}

	if err := w.Close(); err != nil {
		log.Fatal(err)
	}
}

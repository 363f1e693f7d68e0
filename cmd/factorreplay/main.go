// Command factorreplay parses one or more factor expressions and replays
// them over a set of batch sources, printing each source's values to
// stdout.
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/factorlab/factorexpr/batch"
	"github.com/factorlab/factorexpr/config"
	"github.com/factorlab/factorexpr/factor"
	"github.com/factorlab/factorexpr/factorlog"
	"github.com/factorlab/factorexpr/replay"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath  string
		exprs       []string
		batchSize   int
		nDataJobs   int
		nFactorJobs int
		trim        bool
		indexColumn string
		verbose     bool
		framed      bool
	)

	cmd := &cobra.Command{
		Use:   "factorreplay --expr <expr> [--expr <expr>]... <source>...",
		Short: "Evaluate one or more factor expressions over one or more batch sources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if len(exprs) > 0 {
				opts.Exprs = exprs
			}
			opts.Sources = args
			if len(opts.Exprs) == 0 {
				return fmt.Errorf("no factor expressions given: pass at least one --expr")
			}
			if cmd.Flags().Changed("batch-size") {
				opts.BatchSize = batchSize
			}
			if cmd.Flags().Changed("n-data-jobs") {
				opts.NDataJobs = nDataJobs
			}
			if cmd.Flags().Changed("n-factor-jobs") {
				opts.NFactorJobs = nFactorJobs
			}
			if cmd.Flags().Changed("trim") {
				opts.Trim = trim
			}
			if cmd.Flags().Changed("index-column") {
				opts.IndexColumn = indexColumn
			}
			if cmd.Flags().Changed("verbose") {
				opts.Verbose = verbose
			}
			if cmd.Flags().Changed("framed") {
				opts.Framed = framed
			}
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a factorreplay config file")
	cmd.Flags().StringArrayVar(&exprs, "expr", nil, "factor expression to evaluate (repeatable)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 40960, "rows read per source chunk")
	cmd.Flags().IntVar(&nDataJobs, "n-data-jobs", 1, "cap on concurrently replayed sources (0 = unbounded)")
	cmd.Flags().IntVar(&nFactorJobs, "n-factor-jobs", 1, "cap on concurrently evaluated factors per source (0 = unbounded)")
	cmd.Flags().BoolVar(&trim, "trim", false, "drop each factor's warm-up rows (max ready offset) from every output column")
	cmd.Flags().StringVar(&indexColumn, "index-column", "", "column to pass through unmodified alongside factor output")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "log the canonical text of any factor whose root evaluator failed")
	cmd.Flags().BoolVar(&framed, "framed", false, "include the index column in the printed output")

	return cmd
}

func run(ctx context.Context, opts config.Options) error {
	logger := factorlog.New()
	ctx = factorlog.WithContext(ctx, logger)

	factors := make([]*factor.Factor, len(opts.Exprs))
	for i, expr := range opts.Exprs {
		f, err := factor.Parse(expr)
		if err != nil {
			return fmt.Errorf("parsing %q: %w", expr, err)
		}
		level.Info(logger).Log("msg", "parsed factor", "expr", expr, "ready_offset", f.ReadyOffset())
		factors[i] = f
	}

	sources := make([]batch.Source, len(opts.Sources))
	for i, path := range opts.Sources {
		src, err := openSource(path, opts.BatchSize)
		if err != nil {
			return err
		}
		sources[i] = src
	}

	output := replay.OutputColumnar
	if opts.Framed {
		output = replay.OutputFramed
	}

	results, err := replay.Replay(ctx, factors, sources, replay.Options{
		BatchSize:   opts.BatchSize,
		NDataJobs:   opts.NDataJobs,
		NFactorJobs: opts.NFactorJobs,
		Trim:        opts.Trim,
		IndexColumn: opts.IndexColumn,
		Verbose:     opts.Verbose,
		Output:      output,
	})
	if err != nil {
		return err
	}

	for _, r := range results {
		if r.Err != nil {
			level.Info(logger).Log("msg", "source finished with an error", "source", r.Source, "err", r.Err)
		}
		printResult(r)
	}
	return nil
}

func openSource(path string, batchSize int) (batch.Source, error) {
	name := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return batch.NewCSVSource(name, path, batchSize)
	case ".avro":
		return batch.NewAvroSource(name, path, batchSize)
	case ".parquet":
		return batch.NewParquetSource(name, path, batchSize)
	default:
		return nil, fmt.Errorf("unsupported source format %q (supported: .csv, .avro, .parquet)", path)
	}
}

func printResult(r replay.Result) {
	fmt.Printf("%s:\n", r.Source)
	rows := 0
	if len(r.Values) > 0 {
		rows = len(r.Values[0])
	}
	for i := 0; i < rows; i++ {
		if r.Index != nil {
			fmt.Printf("  %s:", formatValue(r.Index[i]))
		} else {
			fmt.Printf("  %d:", i)
		}
		for _, col := range r.Values {
			fmt.Printf(" %s", formatValue(col[i]))
		}
		fmt.Println()
	}
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%g", v)
}

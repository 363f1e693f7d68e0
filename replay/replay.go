// Package replay drives one or more factors over one or more batch
// sources with two independent levels of bounded parallelism: sources run
// concurrently with each other, and within a source, factors run
// concurrently with each other over the same stream of batches. Each
// factor gets its own evaluator per source, so window state and sticky
// failure flags never leak between sources or between factors.
package replay

import (
	"context"
	"io"
	"math"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/factorlab/factorexpr/batch"
	"github.com/factorlab/factorexpr/factor"
	"github.com/factorlab/factorexpr/factorlog"
	"github.com/factorlab/factorexpr/ops"
)

// Output selects the shape of a replay Result.
type Output int

const (
	// OutputColumnar returns just the factor value columns.
	OutputColumnar Output = iota
	// OutputFramed additionally populates Result.Index with the pass-
	// through values of Options.IndexColumn, aligned row-for-row with
	// Values.
	OutputFramed
)

// Options bounds the two levels of parallelism a replay run uses and
// configures the shape of its output.
type Options struct {
	// BatchSize is not read by Replay itself — sources arrive already
	// open, reading at whatever chunk size they were constructed with —
	// but is carried here so a single Options value can drive both
	// source construction and replay behavior from one place.
	BatchSize int
	// NDataJobs caps how many sources are read at once. Zero means
	// unbounded (all sources run concurrently).
	NDataJobs int
	// NFactorJobs caps how many factors are advanced at once per
	// source, per batch. Zero means unbounded.
	NFactorJobs int
	// Trim, if set, drops max(factor.ReadyOffset()) leading rows from
	// every factor's output column (and the index column, if any) per
	// source, after the full column has been assembled. It exists to
	// discard warm-up rows a caller has no use for without making every
	// evaluator's ready offset the caller's problem.
	Trim bool
	// IndexColumn, if non-empty, names a column that is not fed to any
	// factor but is instead passed through unmodified alongside the
	// factor output, letting a caller align values back to an original
	// row identifier (e.g. a timestamp). It must be present in every
	// source's schema; ValidateSchema checks this before replay starts.
	IndexColumn string
	// Verbose logs the canonical text of every factor whose root
	// evaluator failed during a source's replay, at warn level. Without
	// it, a failed factor is silent: its column is simply all NaN.
	Verbose bool
	// Output selects Result's shape.
	Output Output
}

// Result is one source's output: one value slice per factor, in the same
// order as the factors slice passed to Replay, plus any read error the
// source hit partway through. After a read error every column holds NaN
// for each row read before the failure.
type Result struct {
	Source string
	// Index holds the pass-through values of Options.IndexColumn, one
	// per output row, when Options.Output is OutputFramed. It is nil
	// otherwise.
	Index  []float64
	Values [][]float64
	Err    error
}

// Replay evaluates every factor in factors over every source in sources
// and returns one Result per source, in the same order sources were
// given. A read failure on one source does not stop the others: it is
// recorded on that source's Result, whose columns are NaN for the rows
// read before the failure.
//
// Every source's schema is validated against the factors' referenced
// columns (and Options.IndexColumn, if set) before any batch is read
// from any source; a missing column aborts the whole call with a
// *batch.SchemaError, wrapped, rather than surfacing as a per-row
// numerical failure once replay is already underway.
func Replay(ctx context.Context, factors []*factor.Factor, sources []batch.Source, opts Options) ([]Result, error) {
	columns := make([]string, 0, len(factors)*2)
	for _, f := range factors {
		columns = append(columns, f.Columns()...)
	}
	for _, src := range sources {
		if err := batch.ValidateSchema(src, columns, opts.IndexColumn); err != nil {
			return nil, errors.Wrap(err, "replay: schema validation")
		}
	}

	results := make([]Result, len(sources))
	sourceSem := boundedSemaphore(opts.NDataJobs, len(sources))

	logger := factorlog.FromContext(ctx)

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		if err := sourceSem.Acquire(gctx, 1); err != nil {
			return nil, errors.Wrap(err, "replay: waiting for source slot")
		}
		g.Go(func() error {
			defer sourceSem.Release(1)
			results[i] = replaySource(gctx, factors, src, opts, logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func replaySource(ctx context.Context, factors []*factor.Factor, src batch.Source, opts Options, logger factorlog.Logger) Result {
	defer src.Close()

	evaluators := make([]evaluatorState, len(factors))
	for i, f := range factors {
		ev, err := f.NewEvaluator()
		if err != nil {
			return Result{Source: src.Name(), Err: errors.Wrapf(err, "replay: compiling factor %d for source %s", i, src.Name())}
		}
		evaluators[i] = evaluatorState{ev: ev}
	}

	values := make([][]float64, len(factors))
	var index []float64
	factorSem := boundedSemaphore(opts.NFactorJobs, len(factors))

	for {
		select {
		case <-ctx.Done():
			return Result{Source: src.Name(), Values: values, Err: ctx.Err()}
		default:
		}

		b, err := src.Next()
		if err == io.EOF {
			return finishSource(src.Name(), factors, evaluators, values, index, opts, logger)
		}
		if err != nil {
			logger.Log("msg", "source read failed, stopping early", "source", src.Name(), "err", err)
			for i := range values {
				values[i] = nanColumn(len(values[i]))
			}
			return Result{Source: src.Name(), Values: values, Err: err}
		}

		if opts.IndexColumn != "" {
			index = append(index, b.Columns[opts.IndexColumn]...)
		}

		g, gctx := errgroup.WithContext(ctx)
		partials := make([][]float64, len(factors))
		for i := range factors {
			i := i
			if err := factorSem.Acquire(gctx, 1); err != nil {
				return Result{Source: src.Name(), Values: values, Err: err}
			}
			g.Go(func() error {
				defer factorSem.Release(1)
				partials[i] = evaluators[i].run(b)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Result{Source: src.Name(), Values: values, Err: err}
		}
		for i := range factors {
			values[i] = append(values[i], partials[i]...)
		}
	}
}

// finishSource applies the two things that only make sense once a
// source's every batch has been seen: overwriting a root-failed
// factor's entire column with NaN, and trimming leading rows the caller
// asked to discard.
func finishSource(name string, factors []*factor.Factor, evaluators []evaluatorState, values [][]float64, index []float64, opts Options, logger factorlog.Logger) Result {
	for i, f := range factors {
		if !evaluators[i].ev.Failed() {
			continue
		}
		if opts.Verbose {
			level.Warn(logger).Log("msg", "factor failed", "source", name, "factor", f.Format())
		}
		values[i] = nanColumn(len(values[i]))
	}

	if opts.Trim {
		trim := 0
		for _, f := range factors {
			if ro := f.ReadyOffset(); ro > trim {
				trim = ro
			}
		}
		for i := range values {
			values[i] = trimHead(values[i], trim)
		}
		index = trimHead(index, trim)
	}

	result := Result{Source: name, Values: values}
	if opts.Output == OutputFramed {
		result.Index = index
	}
	return result
}

func nanColumn(n int) []float64 {
	col := make([]float64, n)
	for i := range col {
		col[i] = math.NaN()
	}
	return col
}

func trimHead(col []float64, n int) []float64 {
	if n >= len(col) {
		return nil
	}
	return col[n:]
}

// evaluatorState pairs a compiled evaluator with the source-scoped state
// it accumulates across batches; run advances it over one batch's rows.
type evaluatorState struct {
	ev ops.Evaluator
}

func (e evaluatorState) run(b *batch.Batch) []float64 {
	out := make([]float64, b.Len)
	rows := b.Rows()
	for i, r := range rows {
		out[i] = e.ev.Next(r)
	}
	return out
}

func boundedSemaphore(max, count int) *semaphore.Weighted {
	if max <= 0 || max > count {
		max = count
	}
	if max <= 0 {
		max = 1
	}
	return semaphore.NewWeighted(int64(max))
}

// Package factorlog is the module's logging seam: a thin go-kit/log
// wrapper that gives every component the same structured, leveled
// logging surface and a context-carried logger for request-scoped fields.
package factorlog

import (
	"context"
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Logger is the logging surface every package in this module takes,
// either directly or via FromContext. It is exactly go-kit/log's Logger
// interface, kept as a local alias so callers don't need to also import
// go-kit/log just to accept one.
type Logger = kitlog.Logger

type ctxKey struct{}

// New builds the module's default logger: logfmt to stderr, timestamped,
// filtered to info level and above.
func New() Logger {
	base := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	base = kitlog.With(base, "ts", kitlog.DefaultTimestampUTC)
	return level.NewFilter(base, level.AllowInfo())
}

// WithContext attaches logger to ctx so it can be recovered with
// FromContext deeper in a call chain that doesn't otherwise thread a
// Logger through its parameters.
func WithContext(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger attached to ctx, or a fresh default
// logger if none was attached.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return New()
}

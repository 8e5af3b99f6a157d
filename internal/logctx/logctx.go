// Package logctx carries a zerolog logger through context.Context.
//
// The CLI attaches a logger tagged with the run id and command; the walker
// adds the app and job being processed, so every line a pipeline or the
// store logs for one app can be traced back to it:
//
//	ctx = logctx.WithApp(ctx, app.APKFileName, app.SHA256)
//	log := logctx.FromContext(ctx)
//	log.Error().Err(err).Msg("failed to query jobs")
package logctx

import (
	"context"
	"sync/atomic"

	"github.com/eunmann/vuln-stats/pkg/logging"
	"github.com/rs/zerolog"
)

type loggerKey struct{}

var fallback atomic.Pointer[zerolog.Logger]

func init() {
	SetDefaultLogger(*logging.L())
}

// DefaultLogger returns the logger used for contexts without one.
func DefaultLogger() zerolog.Logger {
	return *fallback.Load()
}

// SetDefaultLogger replaces the logger used for contexts without one.
func SetDefaultLogger(l zerolog.Logger) {
	fallback.Store(&l)
}

// WithLogger returns a child of ctx carrying logger. A nil ctx is treated as
// context.Background().
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger carried by ctx, or the default logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
			return logger
		}
	}
	return DefaultLogger()
}

// WithStr tags the context logger with a string field.
func WithStr(ctx context.Context, key, value string) context.Context {
	return WithLogger(ctx, FromContext(ctx).With().Str(key, value).Logger())
}

// WithInt tags the context logger with an int field.
func WithInt(ctx context.Context, key string, value int) context.Context {
	return WithLogger(ctx, FromContext(ctx).With().Int(key, value).Logger())
}

// WithRunID tags every log line of one CLI invocation.
func WithRunID(ctx context.Context, runID string) context.Context {
	return WithStr(ctx, "run_id", runID)
}

// WithApp adds the identity of the app being traversed.
func WithApp(ctx context.Context, apkFileName, sha256 string) context.Context {
	return WithLogger(ctx, FromContext(ctx).With().
		Str("apk", apkFileName).
		Str("sha256", sha256).
		Logger())
}

// WithJob adds the id of the job selected for the current app.
func WithJob(ctx context.Context, jobID int64) context.Context {
	return WithLogger(ctx, FromContext(ctx).With().Int64("job_id", jobID).Logger())
}

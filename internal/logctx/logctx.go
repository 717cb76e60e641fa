// Package logctx carries a zerolog logger through context.Context so that
// per-query fields (window, backend) follow the call stack.
//
//	ctx = logctx.WithLogger(ctx, logging.WithPhase("query"))
//	ctx = logctx.WithStr(ctx, "window", "2020-03")
//	log := logctx.FromContext(ctx)
//	log.Info().Msg("...")
package logctx

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/swail/pedcount/pkg/logging"
)

type loggerKey struct{}

// WithLogger returns a new context with the given logger attached.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext extracts the logger from ctx, falling back to the global
// logger from pkg/logging. It never returns a zero-value logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
			return logger
		}
	}
	return *logging.L()
}

// WithStr returns a new context whose logger has the string field added.
func WithStr(ctx context.Context, key, value string) context.Context {
	return WithLogger(ctx, FromContext(ctx).With().Str(key, value).Logger())
}

// WithInt returns a new context whose logger has the int field added.
func WithInt(ctx context.Context, key string, value int) context.Context {
	return WithLogger(ctx, FromContext(ctx).With().Int(key, value).Logger())
}

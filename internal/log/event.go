// Package log carries a zerolog.Logger through context.Context so that each
// Sender logs to its own destination without touching process-wide state.
package log

import (
	"context"
	"io"

	"github.com/rs/zerolog"
)

// New returns a JSON logger writing to w at level. An empty level means info.
func New(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, err
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// Into returns a copy of ctx carrying l.
func Into(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}

// From returns the logger carried by ctx. Without one, events are discarded.
func From(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

func Debug(ctx context.Context) *zerolog.Event { return From(ctx).Debug() }

func Info(ctx context.Context) *zerolog.Event { return From(ctx).Info() }

func Warn(ctx context.Context) *zerolog.Event { return From(ctx).Warn() }

func Error(ctx context.Context) *zerolog.Event { return From(ctx).Error() }

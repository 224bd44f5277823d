// Package ctxutil carries per-invocation values through a context.
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type ctxKey string

const runIDKey ctxKey = "run_id"

// WithRunID stores the run ID in the context.
func WithRunID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// NewRun stores a fresh random run ID in the context.
func NewRun(ctx context.Context) context.Context {
	return WithRunID(ctx, uuid.New())
}

// RunIDFromCtx extracts the run ID from the context.
// Returns uuid.Nil and false if the value is missing, nil UUID, or wrong type.
func RunIDFromCtx(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(runIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// Logger scopes log with the run ID of ctx, if any.
func Logger(ctx context.Context, log *slog.Logger) *slog.Logger {
	if id, ok := RunIDFromCtx(ctx); ok {
		return log.With(slog.String("run_id", id.String()))
	}
	return log
}

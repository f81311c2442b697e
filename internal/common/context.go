package common

import (
	"context"
	"log/slog"
	"time"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyFileID    contextKey = "file_id"
	ContextKeyLogger    contextKey = "logger"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithFileID adds the upload file ID being processed to the context
func WithFileID(ctx context.Context, fileID string) context.Context {
	return context.WithValue(ctx, ContextKeyFileID, fileID)
}

// FileIDFromContext extracts the upload file ID from context
func FileIDFromContext(ctx context.Context) string {
	if fileID, ok := ctx.Value(ContextKeyFileID).(string); ok {
		return fileID
	}
	return ""
}

// WithLogger stores a request-scoped logger in the context
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ContextKeyLogger, logger)
}

// LoggerFromContext returns the request-scoped logger, falling back to fallback
// and then to slog.Default().
func LoggerFromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(ContextKeyLogger).(*slog.Logger); ok && logger != nil {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}

// WithTimeout creates a context with the specified timeout. A non-positive
// timeout returns a cancelable child without a deadline.
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

package log

import (
	"context"
	"log/slog"
	"net/http"
)

type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// Middleware puts logger in every request context, tagged with the request
// ID that requestID extracts.
func Middleware(logger *Logger, requestID func(context.Context) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger
			if requestID != nil {
				if id := requestID(r.Context()); id != "" {
					l = logger.With(FieldRequestID, id)
				}
			}
			ctx := context.WithValue(r.Context(), LoggerContextKey, l)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// StructuredLogger logs domain events with consistent fields.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) from(ctx context.Context) *Logger {
	if sl.logger != nil {
		return sl.logger
	}
	return FromContext(ctx)
}

func (sl *StructuredLogger) LogPaidToggled(ctx context.Context, year, index int, itemID string, paid bool) {
	fields := NewFields().
		WithPeriod(year, index).
		WithItem(itemID).
		WithOperation(OpToggle).
		ToSlice()
	sl.from(ctx).InfoContext(ctx, "Paid flag toggled", append(fields, "paid", paid)...)
}

func (sl *StructuredLogger) LogYieldSettled(ctx context.Context, accountID string, entries int) {
	fields := NewFields().
		WithAccount(accountID).
		WithOperation(OpSettle).
		ToSlice()
	sl.from(ctx).InfoContext(ctx, "Yield settled", append(fields, FieldCount, entries)...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	all := fields.
		WithError(err).
		WithOperation(operation)
	sl.from(ctx).ErrorContext(ctx, msg, all.ToSlice()...)
}

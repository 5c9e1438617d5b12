package logger

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Correlation headers. The HTTP layer reads them and every log line
// carries their values as request_id and user_id.
const (
	// RequestIDHeader carries the correlation id in both directions
	RequestIDHeader = "X-Request-ID"
	// UserIDHeader identifies the user a request acts for.
	// Authentication happens upstream; the service trusts the header.
	UserIDHeader = "X-User-ID"
)

// MaxRequestIDLength bounds a client-supplied correlation id
const MaxRequestIDLength = 128

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userIDKey
	loggerKey
)

// WithRequestID stores the correlation id for ctx. An empty, oversized or
// non-printable id is replaced with a new UUID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if !validRequestID(requestID) {
		requestID = uuid.NewString()
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// printable ASCII without spaces, so an id cannot split a log line
func validRequestID(id string) bool {
	if id == "" || len(id) > MaxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithUserID stores the acting user. Surrounding whitespace is dropped and
// an empty id leaves ctx unchanged.
func WithUserID(ctx context.Context, userID string) context.Context {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context, or returns the default logger
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// contextFields returns the correlation fields stored in ctx
func contextFields(ctx context.Context) []Field {
	var fields []Field
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, String("request_id", id))
	}
	if id := UserIDFromContext(ctx); id != "" {
		fields = append(fields, String("user_id", id))
	}
	return fields
}

// Ctx returns the request-scoped logger with correlation fields attached
func Ctx(ctx context.Context) Logger {
	return FromContext(ctx).WithContext(ctx)
}

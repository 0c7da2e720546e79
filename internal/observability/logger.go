package observability

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field represents a key-value pair for observability.
type Field struct {
	Key   string
	Value interface{}
}

// MetricField represents a key-value pair for logging metrics.
type MetricField struct {
	Key   string
	Value interface{}
}

type ObservabilityContextKey string

const observabilityKey ObservabilityContextKey = "observability_fields"

// WithFields adds a set of observability fields to the context.
func WithFields(ctx context.Context, fields ...Field) context.Context {
	existingFields := getObservabilityFields(ctx)
	merged := make([]Field, 0, len(existingFields)+len(fields))
	merged = append(merged, existingFields...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, observabilityKey, merged)
}

// Get observability fields from context.
func getObservabilityFields(ctx context.Context) []Field {
	if fields, ok := ctx.Value(observabilityKey).([]Field); ok {
		return fields
	}
	return nil
}

// Merge fields from context and additional metric fields, avoiding duplicates.
func mergeFields(ctx context.Context, fields []MetricField) []zapcore.Field {
	fieldMap := make(map[string]zapcore.Field)

	for _, field := range getObservabilityFields(ctx) {
		fieldMap[field.Key] = zap.Any(field.Key, field.Value)
	}

	for _, field := range fields {
		fieldMap[field.Key] = zap.Any(field.Key, field.Value)
	}

	mergedFields := make([]zapcore.Field, 0, len(fieldMap))
	for _, field := range fieldMap {
		mergedFields = append(mergedFields, field)
	}

	return mergedFields
}

// GetRealClientIP returns the client IP gin resolved for the request, without
// a port. Forwarding headers only count when the engine trusts them through
// TrustedProxies or TrustedPlatform.
func GetRealClientIP(c *gin.Context) string {
	addr := c.ClientIP()
	if net.ParseIP(addr) != nil {
		return addr
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	// CloudFront-Viewer-Address writes IPv6 as "2001:db8::1:54321", unbracketed.
	if colonIdx := strings.LastIndex(addr, ":"); colonIdx > 0 {
		return addr[:colonIdx]
	}
	return addr
}

// CallFields extracts the Twilio call identifiers from a webhook form.
// Only identifiers are returned; the caller's speech is never logged here.
func CallFields(c *gin.Context) []Field {
	var fields []Field
	for _, key := range []struct{ form, field string }{
		{"CallSid", "call_sid"},
		{"AccountSid", "account_sid"},
		{"From", "from"},
		{"CallStatus", "call_status"},
	} {
		if v := c.PostForm(key.form); v != "" {
			fields = append(fields, Field{Key: key.field, Value: v})
		}
	}
	return fields
}

// quietPaths are scraped often and not worth a log line per request.
var quietPaths = map[string]bool{"/health": true, "/metrics": true}

// Middleware tags the request context with a request id and the request
// line, then logs one line per request once it completes.
func Middleware(l *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = "req-" + uuid.NewString()
			c.Request.Header.Set("X-Request-ID", requestID)
		}
		c.Header("X-Request-ID", requestID)

		ctx := WithFields(c.Request.Context(),
			Field{"request_id", requestID},
			Field{"path", c.Request.URL.Path},
			Field{"method", c.Request.Method},
			Field{"client_ip", GetRealClientIP(c)},
		)
		if ua := c.Request.UserAgent(); ua != "" {
			ctx = WithFields(ctx, Field{"user_agent", ua})
		}
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				l.Error(ctx, "recovered from panic", fmt.Errorf("panic: %+v", r))
				c.AbortWithStatus(http.StatusInternalServerError)
			}
			if quietPaths[c.Request.URL.Path] {
				return
			}

			latency := time.Since(start)
			l.Metrics(ctx,
				MetricField{"status", c.Writer.Status()},
				MetricField{"latency_ms", latency.Milliseconds()},
				MetricField{"response_bytes", c.Writer.Size()},
			)
		}()
		c.Next()
	}
}

// Logger represents a custom logger with Zap integration.
type Logger struct {
	zapLogger *zap.Logger
}

// NewLogger returns a JSON production logger. LOG_LEVEL (debug, info,
// warn, error) overrides the default info level.
func NewLogger() *Logger {
	cfg := zap.NewProductionConfig()
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if lvl, err := zap.ParseAtomicLevel(raw); err == nil {
			cfg.Level = lvl
		}
	}
	zapLogger, err := cfg.Build(zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		zapLogger = zap.NewNop()
	}
	return &Logger{zapLogger: zapLogger}
}

// NewNopLogger returns a logger that discards everything. Used by tests.
func NewNopLogger() *Logger {
	return &Logger{zapLogger: zap.NewNop()}
}

// Create a logger with fields from context.
func (l *Logger) loggerFromContext(ctx context.Context) *zap.Logger {
	fields := getObservabilityFields(ctx)
	zapFields := make([]zapcore.Field, len(fields))

	for i, f := range fields {
		zapFields[i] = zap.Any(f.Key, f.Value)
	}

	return l.zapLogger.With(zapFields...)
}

// Info logs an informational message with context-based fields.
func (l *Logger) Info(ctx context.Context, msg string) {
	l.loggerFromContext(ctx).Info(msg)
}

// Error logs an error message with context-based fields.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	l.loggerFromContext(ctx).Error(msg, zap.Error(err))
}

// Warn logs a warning message with context-based fields.
func (l *Logger) Warn(ctx context.Context, msg string) {
	l.loggerFromContext(ctx).Warn(msg)
}

// Debug logs a debug message with context-based fields.
func (l *Logger) Debug(ctx context.Context, msg string) {
	l.loggerFromContext(ctx).Debug(msg)
}

// Fatal logs a fatal message with context-based fields.
func (l *Logger) Fatal(ctx context.Context, msg string, err error) {
	l.loggerFromContext(ctx).Fatal(msg, zap.Error(err))
}

// Metrics logs one "metrics" line carrying the context fields plus fields.
// A metric field wins over a context field with the same key.
func (l *Logger) Metrics(ctx context.Context, fields ...MetricField) {
	l.zapLogger.Info("metrics", mergeFields(ctx, fields)...)
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() {
	_ = l.zapLogger.Sync()
}

package logging

import (
	"context"

	"ari/internal/utils/id"
)

type requestIDCapable interface {
	WithRequestID(string) Logger
}

// WithRequestID returns a logger that tags log lines with a request id.
func WithRequestID(logger Logger, requestID string) Logger {
	if IsNil(logger) {
		return Nop()
	}
	if requestID == "" {
		return logger
	}
	if capable, ok := logger.(requestIDCapable); ok {
		return capable.WithRequestID(requestID)
	}
	return &requestIDLogger{logger: OrNop(logger), requestID: requestID}
}

// FromContext returns a logger tagged with the request id found in context, if any.
func FromContext(ctx context.Context, logger Logger) Logger {
	return WithRequestID(logger, id.RequestIDFromContext(ctx))
}

type requestIDLogger struct {
	logger    Logger
	requestID string
}

func (l *requestIDLogger) Debug(format string, args ...any) {
	l.logger.Debug(prefixRequestID(l.requestID, format), args...)
}

func (l *requestIDLogger) Info(format string, args ...any) {
	l.logger.Info(prefixRequestID(l.requestID, format), args...)
}

func (l *requestIDLogger) Warn(format string, args ...any) {
	l.logger.Warn(prefixRequestID(l.requestID, format), args...)
}

func (l *requestIDLogger) Error(format string, args ...any) {
	l.logger.Error(prefixRequestID(l.requestID, format), args...)
}

func prefixRequestID(requestID, format string) string {
	if requestID == "" {
		return format
	}
	return "req=" + requestID + " " + format
}

package logging

import (
	"fmt"

	"ari/internal/observability"
)

// structuredLogger adapts the slog-backed observability logger to the
// printf-style Logger contract.
type structuredLogger struct {
	base      *observability.Logger
	component string
}

// FromStructured wraps a structured logger, tagging every line with the
// component name.
func FromStructured(base *observability.Logger, component string) Logger {
	if base == nil {
		return Nop()
	}
	return &structuredLogger{base: base, component: component}
}

func (l *structuredLogger) Debug(format string, args ...any) {
	l.base.Debug(fmt.Sprintf(format, args...), "component", l.component)
}

func (l *structuredLogger) Info(format string, args ...any) {
	l.base.Info(fmt.Sprintf(format, args...), "component", l.component)
}

func (l *structuredLogger) Warn(format string, args ...any) {
	l.base.Warn(fmt.Sprintf(format, args...), "component", l.component)
}

func (l *structuredLogger) Error(format string, args ...any) {
	l.base.Error(fmt.Sprintf(format, args...), "component", l.component)
}

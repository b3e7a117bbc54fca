package logging

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"ari/internal/utils/id"
)

type captureLogger struct {
	lines []string
}

func (c *captureLogger) Debug(format string, args ...any) { c.record("DEBUG", format, args...) }
func (c *captureLogger) Info(format string, args ...any)  { c.record("INFO", format, args...) }
func (c *captureLogger) Warn(format string, args ...any)  { c.record("WARN", format, args...) }
func (c *captureLogger) Error(format string, args ...any) { c.record("ERROR", format, args...) }

func (c *captureLogger) record(level, format string, args ...any) {
	c.lines = append(c.lines, level+" "+fmt.Sprintf(format, args...))
}

func TestOrNopHandlesTypedNilPointers(t *testing.T) {
	var capture *captureLogger
	var logger Logger = capture
	if !IsNil(logger) {
		t.Fatalf("expected typed nil pointer to be detected")
	}
	safe := OrNop(logger)
	if IsNil(safe) {
		t.Fatalf("expected OrNop to return a usable logger")
	}
	safe.Info("hello %s", "world") // should not panic
}

func TestMultiFansOutToEveryLogger(t *testing.T) {
	first := &captureLogger{}
	second := &captureLogger{}

	logger := Multi(first, nil, second)
	logger.Warn("disk %d%% full", 93)

	for _, capture := range []*captureLogger{first, second} {
		if len(capture.lines) != 1 {
			t.Fatalf("expected one line, got %v", capture.lines)
		}
		if capture.lines[0] != "WARN disk 93% full" {
			t.Fatalf("unexpected line %q", capture.lines[0])
		}
	}
}

func TestWithRequestIDPrefixesLines(t *testing.T) {
	capture := &captureLogger{}

	logger := WithRequestID(capture, "req-42")
	logger.Info("generation finished in %dms", 120)

	if len(capture.lines) != 1 {
		t.Fatalf("expected one line, got %v", capture.lines)
	}
	if !strings.HasPrefix(capture.lines[0], "INFO req=req-42 ") {
		t.Fatalf("expected request id prefix, got %q", capture.lines[0])
	}
}

func TestFromContextReadsRequestID(t *testing.T) {
	capture := &captureLogger{}
	ctx := id.WithRequestID(context.Background(), "req-ctx")

	FromContext(ctx, capture).Error("provider unavailable")

	if len(capture.lines) != 1 || !strings.Contains(capture.lines[0], "req=req-ctx") {
		t.Fatalf("expected context request id in output, got %v", capture.lines)
	}
}

func TestFromContextWithoutIDLeavesLoggerUntouched(t *testing.T) {
	capture := &captureLogger{}

	logger := FromContext(context.Background(), capture)
	logger.Info("plain line")

	if len(capture.lines) != 1 || capture.lines[0] != "INFO plain line" {
		t.Fatalf("expected untagged line, got %v", capture.lines)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"WARN":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"bogus":   LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestSanitizeLogLineRedactsSecrets(t *testing.T) {
	line := `calling provider with api_key=sk-abcdefghijklmnop1234 authorization: Bearer tok123abc`
	sanitized := sanitizeLogLine(line)
	if strings.Contains(sanitized, "sk-abcdefghijklmnop1234") || strings.Contains(sanitized, "tok123abc") {
		t.Fatalf("expected secrets redacted, got %q", sanitized)
	}
	if !strings.Contains(sanitized, RedactedPlaceholder) {
		t.Fatalf("expected placeholder in %q", sanitized)
	}
}

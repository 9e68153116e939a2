package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Field is a structured logging attribute.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field  { return Field{Key: key, Value: value} }
func Int(key string, value int) Field { return Field{Key: key, Value: value} }
func Any(key string, value any) Field { return Field{Key: key, Value: value} }

// Err attaches an error under the "error" key.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Logger is the structured logger every component accepts.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	With(fields ...Field) Logger
}

type Config struct {
	Level     string // debug, info, warn, error
	Format    string // json or text
	AddSource bool
	Output    io.Writer // defaults to stdout
}

// New constructs a slog-backed Logger.
func New(cfg Config) Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	default:
		handler = slog.NewTextHandler(out, opts)
	}
	return &slogger{l: slog.New(handler)}
}

// NewFromEnv reads LOG_LEVEL and LOG_FORMAT.
func NewFromEnv() Logger {
	return New(Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	})
}

// Noop returns a logger that drops everything.
func Noop() Logger { return noopLogger{} }

type slogger struct {
	l *slog.Logger
}

func (s *slogger) With(fields ...Field) Logger {
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		args = append(args, slog.Any(f.Key, f.Value))
	}
	return &slogger{l: s.l.With(args...)}
}

func (s *slogger) Debug(ctx context.Context, msg string, fields ...Field) {
	s.l.LogAttrs(ctx, slog.LevelDebug, msg, toAttrs(fields)...)
}

func (s *slogger) Info(ctx context.Context, msg string, fields ...Field) {
	s.l.LogAttrs(ctx, slog.LevelInfo, msg, toAttrs(fields)...)
}

func (s *slogger) Warn(ctx context.Context, msg string, fields ...Field) {
	s.l.LogAttrs(ctx, slog.LevelWarn, msg, toAttrs(fields)...)
}

func (s *slogger) Error(ctx context.Context, msg string, fields ...Field) {
	s.l.LogAttrs(ctx, slog.LevelError, msg, toAttrs(fields)...)
}

type noopLogger struct{}

func (noopLogger) With(...Field) Logger                    { return noopLogger{} }
func (noopLogger) Debug(context.Context, string, ...Field) {}
func (noopLogger) Info(context.Context, string, ...Field)  {}
func (noopLogger) Warn(context.Context, string, ...Field)  {}
func (noopLogger) Error(context.Context, string, ...Field) {}

// TB is the subset of testing.TB the testing logger needs.
type TB interface {
	Logf(string, ...any)
	Helper()
}

// NewTesting returns a logger that writes through tb.Logf so output is attached to
// the test that produced it.
func NewTesting(tb TB) Logger { return &testingLogger{tb: tb} }

type testingLogger struct {
	tb   TB
	tags []Field
}

func (l *testingLogger) With(fields ...Field) Logger {
	tags := make([]Field, 0, len(l.tags)+len(fields))
	tags = append(tags, l.tags...)
	tags = append(tags, fields...)
	return &testingLogger{tb: l.tb, tags: tags}
}

func (l *testingLogger) Debug(_ context.Context, msg string, fields ...Field) {
	l.tb.Helper()
	l.tb.Logf("%s", format("DEB ", msg, l.tags, fields))
}

func (l *testingLogger) Info(_ context.Context, msg string, fields ...Field) {
	l.tb.Helper()
	l.tb.Logf("%s", format("INF ", msg, l.tags, fields))
}

func (l *testingLogger) Warn(_ context.Context, msg string, fields ...Field) {
	l.tb.Helper()
	l.tb.Logf("%s", format("WRN ", msg, l.tags, fields))
}

func (l *testingLogger) Error(_ context.Context, msg string, fields ...Field) {
	l.tb.Helper()
	l.tb.Logf("%s", format("ERR ", msg, l.tags, fields))
}

func format(lvl, msg string, all ...[]Field) string {
	var b strings.Builder
	b.WriteString(lvl)
	b.WriteString(msg)
	for _, fields := range all {
		for _, f := range fields {
			b.WriteByte(' ')
			b.WriteString(f.Key)
			b.WriteByte('=')
			b.WriteString(fmt.Sprint(f.Value))
		}
	}
	return b.String()
}

func toAttrs(fields []Field) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(fields))
	for _, f := range fields {
		attrs = append(attrs, slog.Any(f.Key, f.Value))
	}
	return attrs
}

func parseLevel(level string) slog.Leveler {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

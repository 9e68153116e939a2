package logging

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/pkg/errors"
)

func TestJSONLoggerRespectsLevel(t *testing.T) {
	c := qt.New(t)

	var buf bytes.Buffer
	log := New(Config{Level: "warn", Format: "json", Output: &buf})
	log.Info(context.Background(), "dropped")
	log.With(String("map", "demo")).Warn(context.Background(), "kept", Err(errors.New("boom")))

	out := buf.String()
	c.Assert(out, qt.Not(qt.Contains), "dropped")
	c.Assert(out, qt.Contains, `"msg":"kept"`)
	c.Assert(out, qt.Contains, `"map":"demo"`)
	c.Assert(out, qt.Contains, `"error":"boom"`)
}

type recorder struct{ lines []string }

func (r *recorder) Logf(f string, args ...any) { r.lines = append(r.lines, fmt.Sprintf(f, args...)) }
func (r *recorder) Helper()                    {}

func TestTestingLoggerFormatsFields(t *testing.T) {
	c := qt.New(t)

	rec := &recorder{}
	log := NewTesting(rec).With(String("location", "a.earth"))
	log.Error(context.Background(), "load failed", Int("attempt", 1))

	c.Assert(rec.lines, qt.DeepEquals, []string{"ERR load failed location=a.earth attempt=1"})
}

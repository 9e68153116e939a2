package observability

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/gofiber/fiber/v2"
	"github.com/khankhulgun/khanearth/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"
)

func TestCollectorCounters(t *testing.T) {
	c := qt.New(t)
	reg := prometheus.NewRegistry()
	col, err := NewCollector(reg)
	c.Assert(err, qt.IsNil)

	col.ObserveLoad("local", "ok")
	col.ObserveLoad("local", "ok")
	col.ObserveLoad("remote", "error")
	col.ObserveStore("ok")
	col.ObserveCacheCreate("redis", "error")

	c.Assert(testutil.ToFloat64(col.Loads.WithLabelValues("local", "ok")), qt.Equals, 2.0)
	c.Assert(testutil.ToFloat64(col.Loads.WithLabelValues("remote", "error")), qt.Equals, 1.0)
	c.Assert(testutil.ToFloat64(col.Stores.WithLabelValues("ok")), qt.Equals, 1.0)
	c.Assert(testutil.ToFloat64(col.CacheCreations.WithLabelValues("redis", "error")), qt.Equals, 1.0)
}

func TestCollectorReusesRegistration(t *testing.T) {
	c := qt.New(t)
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	c.Assert(err, qt.IsNil)
	second, err := NewCollector(reg)
	c.Assert(err, qt.IsNil)

	first.ObserveStore("ok")
	second.ObserveStore("ok")
	c.Assert(testutil.ToFloat64(first.Stores.WithLabelValues("ok")), qt.Equals, 2.0)
}

func TestNilCollector(t *testing.T) {
	var col *Collector
	col.ObserveLoad("local", "ok")
	col.ObserveStore("ok")
	col.ObserveCacheCreate("memory", "ok")
}

func TestMiddlewareAndHandler(t *testing.T) {
	c := qt.New(t)
	reg := prometheus.NewRegistry()
	col, err := NewCollector(reg)
	c.Assert(err, qt.IsNil)

	app := fiber.New()
	app.Use(col.Middleware())
	app.Get("/earth/:name", func(ctx *fiber.Ctx) error {
		if ctx.Params("name") == "missing" {
			return fiber.NewError(fiber.StatusNotFound, "no such earth file")
		}
		return ctx.SendString("ok")
	})

	for _, path := range []string{"/earth/demo", "/earth/missing"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		c.Assert(err, qt.IsNil)
		resp.Body.Close()
	}

	c.Assert(testutil.ToFloat64(col.HTTPRequests.WithLabelValues("GET", "/earth/:name", "200")), qt.Equals, 1.0)
	c.Assert(testutil.ToFloat64(col.HTTPRequests.WithLabelValues("GET", "/earth/:name", "404")), qt.Equals, 1.0)

	col.ObserveLoad("stream", "ok")
	rr := httptest.NewRecorder()
	col.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	c.Assert(rr.Code, qt.Equals, http.StatusOK)
	body, _ := io.ReadAll(rr.Body)
	c.Assert(string(body), qt.Contains, `earthfile_loads_total{outcome="ok",source="stream"} 1`)
	c.Assert(string(body), qt.Contains, "earthfile_http_request_duration_seconds")
}

func TestMiddlewareMethodLabels(t *testing.T) {
	c := qt.New(t)
	reg := prometheus.NewRegistry()
	col, err := NewCollector(reg)
	c.Assert(err, qt.IsNil)

	app := fiber.New()
	app.Use(col.Middleware())
	app.Put("/earth/:name", func(ctx *fiber.Ctx) error { return ctx.SendStatus(fiber.StatusCreated) })
	app.Get("/earth/:name", func(ctx *fiber.Ctx) error { return ctx.SendString("ok") })

	for _, method := range []string{http.MethodPut, http.MethodGet, http.MethodGet} {
		resp, err := app.Test(httptest.NewRequest(method, "/earth/demo", nil))
		c.Assert(err, qt.IsNil)
		resp.Body.Close()
	}

	c.Assert(testutil.ToFloat64(col.HTTPRequests.WithLabelValues("PUT", "/earth/:name", "201")), qt.Equals, 1.0)
	c.Assert(testutil.ToFloat64(col.HTTPRequests.WithLabelValues("GET", "/earth/:name", "200")), qt.Equals, 2.0)
	c.Assert(testutil.CollectAndCount(col.HTTPRequests), qt.Equals, 2)
}

func TestInitTracingDisabled(t *testing.T) {
	c := qt.New(t)
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, logging.NewTesting(t))
	c.Assert(err, qt.IsNil)
	c.Assert(shutdown(context.Background()), qt.IsNil)
}

func TestInitTracingStdout(t *testing.T) {
	c := qt.New(t)
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	var buf bytes.Buffer
	shutdown, err := InitTracing(context.Background(), TracingConfig{
		Enabled:  true,
		Exporter: "stdout",
		Writer:   &buf,
	}, logging.NewTesting(t))
	c.Assert(err, qt.IsNil)

	_, span := otel.Tracer("test").Start(context.Background(), "earthfile.ReadXML")
	span.End()
	ShutdownWithTimeout(context.Background(), shutdown, logging.NewTesting(t))
	c.Assert(buf.String(), qt.Contains, `"Name": "earthfile.ReadXML"`)
}

func TestInitTracingUnknownExporter(t *testing.T) {
	c := qt.New(t)
	_, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "carrier"}, nil)
	c.Assert(err, qt.ErrorMatches, "unsupported tracing exporter: carrier")
}

package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics for earth file loading, storing and serving.
// It satisfies earthfile.MetricsRecorder.
type Collector struct {
	gatherer prometheus.Gatherer

	Loads          *prometheus.CounterVec
	Stores         *prometheus.CounterVec
	CacheCreations *prometheus.CounterVec

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// NewCollector registers the metrics against reg, defaulting to the global registry
// when nil. Registering twice against the same registry reuses the existing vectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	loads, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "earthfile_loads_total",
		Help: "Earth file loads, labeled by source (stream, local, remote) and outcome.",
	}, []string{"source", "outcome"}), "earthfile_loads_total")
	if err != nil {
		return nil, err
	}
	stores, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "earthfile_stores_total",
		Help: "Earth file writes, labeled by outcome.",
	}, []string{"outcome"}), "earthfile_stores_total")
	if err != nil {
		return nil, err
	}
	creations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "earthfile_cache_creations_total",
		Help: "Live cache creations, labeled by cache type and outcome.",
	}, []string{"type", "outcome"}), "earthfile_cache_creations_total")
	if err != nil {
		return nil, err
	}
	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "earthfile_http_requests_total",
		Help: "Handled HTTP requests, labeled by method, route and status code.",
	}, []string{"method", "route", "code"}), "earthfile_http_requests_total")
	if err != nil {
		return nil, err
	}
	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "earthfile_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"method", "route"}), "earthfile_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:       gatherer,
		Loads:          loads,
		Stores:         stores,
		CacheCreations: creations,
		HTTPRequests:   requests,
		HTTPDurations:  durations,
	}, nil
}

func (c *Collector) ObserveLoad(source, outcome string) {
	if c == nil || c.Loads == nil {
		return
	}
	c.Loads.WithLabelValues(source, outcome).Inc()
}

func (c *Collector) ObserveStore(outcome string) {
	if c == nil || c.Stores == nil {
		return
	}
	c.Stores.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveCacheCreate(typ, outcome string) {
	if c == nil || c.CacheCreations == nil {
		return
	}
	c.CacheCreations.WithLabelValues(typ, outcome).Inc()
}

// Middleware records request counts and durations per matched route.
func (c *Collector) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()
		if c == nil {
			return err
		}

		code := ctx.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			} else {
				code = fiber.StatusInternalServerError
			}
		}
		// Label values outlive the request, whose buffers fasthttp reuses.
		method := utils.CopyString(ctx.Method())
		route := utils.CopyString(ctx.Route().Path)
		if c.HTTPRequests != nil {
			c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
		}
		if c.HTTPDurations != nil {
			c.HTTPDurations.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		}
		return err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, errors.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, errors.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

// Package earthfile loads and stores earth files: XML documents describing a map's
// coordinate system, profile, cache and layers, plus engine properties.
package earthfile

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/khankhulgun/khanearth/cache"
	"github.com/khankhulgun/khanearth/conf"
	"github.com/khankhulgun/khanearth/earth"
	"github.com/khankhulgun/khanearth/internal/logging"
	"github.com/khankhulgun/khanearth/models"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/khankhulgun/khanearth/earthfile"

var (
	ErrNoMap                     = errors.New("earthfile: no map to write")
	ErrNoMapElement              = errors.New("earthfile: document has no map element")
	ErrNotRegularFile            = errors.New("earthfile: not a regular file")
	ErrRemoteFetch               = errors.New("earthfile: remote fetch failed")
	ErrUnsupportedScheme         = errors.New("earthfile: unsupported scheme")
	ErrUnhandledCoordinateSystem = errors.New("earthfile: unhandled coordinate system")
)

// Load and store outcomes reported to a MetricsRecorder.
const (
	SourceStream = "stream"
	SourceLocal  = "local"
	SourceRemote = "remote"

	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// MetricsRecorder receives load, store and cache creation outcomes.
type MetricsRecorder interface {
	ObserveLoad(source, outcome string)
	ObserveStore(outcome string)
	ObserveCacheCreate(typ, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveLoad(string, string)        {}
func (noopRecorder) ObserveStore(string)               {}
func (noopRecorder) ObserveCacheCreate(string, string) {}

// EarthFile pairs a map with its engine properties. It is not safe for concurrent
// loads; the map it holds is.
type EarthFile struct {
	m      *earth.Map
	engine models.EngineProperties
	layout models.EngineLayout

	factory    *cache.Factory
	override   cache.Cache
	ownedCache cache.Cache
	client     *http.Client
	log        logging.Logger
	metrics    MetricsRecorder
}

type Option func(*EarthFile)

// WithCacheFactory sets the factory used to build the live cache of a loaded map.
func WithCacheFactory(f *cache.Factory) Option {
	return func(e *EarthFile) { e.factory = f }
}

// WithCacheOverride makes every loaded map use c instead of the cache it declares.
// The EarthFile never closes an override.
func WithCacheOverride(c cache.Cache) Option {
	return func(e *EarthFile) { e.override = c }
}

func WithHTTPClient(c *http.Client) Option {
	return func(e *EarthFile) { e.client = c }
}

func WithLogger(l logging.Logger) Option {
	return func(e *EarthFile) { e.log = l }
}

func WithMetricsRecorder(r MetricsRecorder) Option {
	return func(e *EarthFile) { e.metrics = r }
}

func New(opts ...Option) *EarthFile {
	e := &EarthFile{
		factory: cache.NewFactory(),
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     logging.Noop(),
		metrics: noopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewWithMap wraps an existing map for writing.
func NewWithMap(m *earth.Map, engine models.EngineProperties, opts ...Option) *EarthFile {
	e := New(opts...)
	e.m = m
	e.engine = engine
	e.layout = models.EngineLayoutDedicated
	return e
}

// Map is nil until a load succeeds.
func (e *EarthFile) Map() *earth.Map { return e.m }

func (e *EarthFile) EngineProperties() models.EngineProperties { return e.engine }

// EngineLayout reports where the engine properties of the last load were read from.
func (e *EarthFile) EngineLayout() models.EngineLayout { return e.layout }

// Close releases the live cache created for the loaded map.
func (e *EarthFile) Close() error {
	if e.ownedCache == nil {
		return nil
	}
	err := e.ownedCache.Close()
	e.ownedCache = nil
	return err
}

// ReadXML parses an earth file from r. location becomes the map's reference URI.
func (e *EarthFile) ReadXML(ctx context.Context, r io.Reader, location string) (err error) {
	ctx, span := startSpan(ctx, "earthfile.ReadXML", attribute.String("location", location))
	defer func() { endSpan(span, err) }()
	defer func() { e.metrics.ObserveLoad(SourceStream, outcome(err)) }()

	return e.readXML(ctx, r, location)
}

func (e *EarthFile) readXML(ctx context.Context, r io.Reader, location string) error {
	doc, err := conf.ReadXML(r)
	if err != nil {
		return err
	}
	root := doc.Child("map")
	if root.Key != "map" {
		return ErrNoMapElement
	}
	return e.readMap(ctx, root, location)
}

// ReadLocation loads from an http(s) URL or a local path.
func (e *EarthFile) ReadLocation(ctx context.Context, location string) (err error) {
	source := SourceLocal
	if IsRemote(location) {
		source = SourceRemote
	}
	ctx, span := startSpan(ctx, "earthfile.ReadLocation",
		attribute.String("location", location), attribute.String("source", source))
	defer func() { endSpan(span, err) }()
	defer func() { e.metrics.ObserveLoad(source, outcome(err)) }()

	if source == SourceRemote {
		body, err := e.fetch(ctx, location)
		if err != nil {
			e.log.Warn(ctx, "earth file fetch failed", logging.String("location", location), logging.Err(err))
			return err
		}
		defer body.Close()
		return e.readXML(ctx, body, location)
	}

	path, err := localPath(location)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "earthfile: open %s", location)
	}
	defer f.Close()
	return e.readXML(ctx, f, path)
}

// WriteXML serializes the current map.
func (e *EarthFile) WriteXML(w io.Writer) (err error) {
	defer func() { e.metrics.ObserveStore(outcome(err)) }()
	if e.m == nil {
		return ErrNoMap
	}
	c, err := mapToConfig(e.m.Snapshot(), e.engine)
	if err != nil {
		return err
	}
	return conf.WriteXML(w, c)
}

// WriteLocation creates (or truncates) the file at location and writes the map to it.
func (e *EarthFile) WriteLocation(location string) error {
	if e.m == nil {
		e.metrics.ObserveStore(OutcomeError)
		return ErrNoMap
	}
	f, err := os.Create(location)
	if err != nil {
		e.metrics.ObserveStore(OutcomeError)
		return errors.Wrapf(err, "earthfile: create %s", location)
	}
	if err := e.WriteXML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

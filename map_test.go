package khanearth

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/gofiber/fiber/v2"
	"github.com/khankhulgun/khanearth/catalog"
	"github.com/khankhulgun/khanearth/controllers"
	"github.com/khankhulgun/khanearth/earthfile"
	"github.com/khankhulgun/khanearth/internal/logging"
	"github.com/khankhulgun/khanearth/maplayer"
	"github.com/khankhulgun/khanearth/observability"
	"github.com/prometheus/client_golang/prometheus"
)

const demoEarth = `<map name="demo" type="round">
  <profile xmin="-180" ymin="-90" xmax="180" ymax="90" srs="+proj=longlat"/>
  <cache type="memory"><max_size>1048576</max_size></cache>
  <image name="world" driver="gdal"><url>world.tif</url></image>
  <image name="osm" driver="tms"/>
  <heightfield name="dem" driver="gdal"/>
</map>`

func newApp(c *qt.C) *fiber.App {
	log := logging.NewTesting(c.TB)
	col, err := observability.NewCollector(prometheus.NewRegistry())
	c.Assert(err, qt.IsNil)
	cat, err := catalog.New(c.TempDir(),
		catalog.WithLogger(log),
		catalog.WithEarthFileOptions(earthfile.WithLogger(log), earthfile.WithMetricsRecorder(col)),
	)
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { cat.Close() })

	app := fiber.New()
	Set(app, Deps{Catalog: cat, Logger: log, Metrics: col, MetricsPath: "/metrics"})
	return app
}

func do(c *qt.C, app *fiber.App, method, path, body string) (int, string) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	resp, err := app.Test(httptest.NewRequest(method, path, r))
	c.Assert(err, qt.IsNil)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	c.Assert(err, qt.IsNil)
	return resp.StatusCode, string(data)
}

func TestEarthRoutes(t *testing.T) {
	c := qt.New(t)
	app := newApp(c)

	code, body := do(c, app, http.MethodPut, "/earth/demo", demoEarth)
	c.Assert(code, qt.Equals, http.StatusCreated, qt.Commentf(body))
	var created struct {
		Status string                 `json:"status"`
		Data   controllers.MapSummary `json:"data"`
	}
	c.Assert(json.Unmarshal([]byte(body), &created), qt.IsNil)
	c.Assert(created.Data.Name, qt.Equals, "demo")
	c.Assert(created.Data.CoordinateSystem, qt.Equals, "geocentric")
	c.Assert(created.Data.CacheType, qt.Equals, "memory")
	c.Assert(created.Data.LiveCache, qt.IsTrue)
	c.Assert(created.Data.Layers, qt.HasLen, 3)

	code, body = do(c, app, http.MethodGet, "/earth", "")
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(body, qt.Equals, `{"data":["demo"],"status":"success"}`)

	code, body = do(c, app, http.MethodGet, "/earth/demo", "")
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(body, qt.Contains, `<map name="demo" type="geocentric">`)
	c.Assert(body, qt.Contains, `<heightfield name="dem" driver="gdal"></heightfield>`)

	code, _ = do(c, app, http.MethodGet, "/earth/missing", "")
	c.Assert(code, qt.Equals, http.StatusNotFound)
	code, _ = do(c, app, http.MethodPut, "/earth/a.b", demoEarth)
	c.Assert(code, qt.Equals, http.StatusBadRequest)
	code, body = do(c, app, http.MethodPut, "/earth/bad", "<map><image></map>")
	c.Assert(code, qt.Equals, http.StatusUnprocessableEntity)
	c.Assert(body, qt.Contains, `"message":"Invalid earth file"`)
}

func TestMapRoutes(t *testing.T) {
	c := qt.New(t)
	app := newApp(c)
	code, _ := do(c, app, http.MethodPut, "/earth/demo", demoEarth)
	c.Assert(code, qt.Equals, http.StatusCreated)

	code, body := do(c, app, http.MethodGet, "/mapserver/api/map/demo", "")
	c.Assert(code, qt.Equals, http.StatusOK)
	var summary controllers.MapSummary
	c.Assert(json.Unmarshal([]byte(body), &summary), qt.IsNil)
	c.Assert(summary.File, qt.Equals, "demo")
	c.Assert(summary.Profile.SRS, qt.Equals, "+proj=longlat")
	c.Assert(*summary.Profile.Extent, qt.Equals, [4]float64{-180, -90, 180, 90})
	c.Assert(summary.EngineLayout, qt.Equals, "legacy")

	layers := func(query string) []string {
		code, body := do(c, app, http.MethodGet, "/mapserver/api/map/demo/layers"+query, "")
		c.Assert(code, qt.Equals, http.StatusOK)
		var resp struct {
			Data []maplayer.Info `json:"data"`
		}
		c.Assert(json.Unmarshal([]byte(body), &resp), qt.IsNil)
		var names []string
		for _, l := range resp.Data {
			names = append(names, l.Name)
		}
		return names
	}
	c.Assert(layers(""), qt.DeepEquals, []string{"world", "osm", "dem"})
	c.Assert(layers("?kind=heightfield"), qt.DeepEquals, []string{"dem"})
	c.Assert(layers("?driver=gdal&kind=image"), qt.DeepEquals, []string{"world"})
	c.Assert(layers("?name=osm,dem"), qt.DeepEquals, []string{"osm", "dem"})
	c.Assert(layers("?name__like=W"), qt.DeepEquals, []string{"world"})
	c.Assert(layers("?search=none"), qt.IsNil)

	code, _ = do(c, app, http.MethodGet, "/mapserver/api/map/missing/layers", "")
	c.Assert(code, qt.Equals, http.StatusNotFound)
}

func TestTileRoutes(t *testing.T) {
	c := qt.New(t)
	app := newApp(c)
	code, _ := do(c, app, http.MethodPut, "/earth/demo", demoEarth)
	c.Assert(code, qt.Equals, http.StatusCreated)
	code, _ = do(c, app, http.MethodPut, "/earth/nocache", `<map><image name="world"/></map>`)
	c.Assert(code, qt.Equals, http.StatusCreated)

	code, _ = do(c, app, http.MethodGet, "/tiles/demo/world/1/0/0", "")
	c.Assert(code, qt.Equals, http.StatusNotFound)

	code, _ = do(c, app, http.MethodPut, "/tiles/demo/world/1/0/0", "tile-bytes")
	c.Assert(code, qt.Equals, http.StatusNoContent)

	code, body := do(c, app, http.MethodGet, "/tiles/demo/world/1/0/0", "")
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(body, qt.Equals, "tile-bytes")

	code, body = do(c, app, http.MethodGet, "/tiles/demo/world/status?zoom=1", "")
	c.Assert(code, qt.Equals, http.StatusOK)
	var status struct {
		Total  uint64 `json:"total"`
		Cached uint64 `json:"cached"`
	}
	c.Assert(json.Unmarshal([]byte(body), &status), qt.IsNil)
	c.Assert(status.Total, qt.Equals, uint64(4))
	c.Assert(status.Cached, qt.Equals, uint64(1))

	for _, path := range []string{
		"/tiles/demo/nolayer/1/0/0",
		"/tiles/missing/world/1/0/0",
		"/tiles/nocache/world/1/0/0",
		"/tiles/demo/osm/1/0/0",
	} {
		code, _ = do(c, app, http.MethodGet, path, "")
		c.Assert(code, qt.Equals, http.StatusNotFound, qt.Commentf(path))
	}
	for _, path := range []string{
		"/tiles/demo/world/1/2/0",
		"/tiles/demo/world/x/0/0",
		"/tiles/demo/world/31/0/0",
	} {
		code, _ = do(c, app, http.MethodGet, path, "")
		c.Assert(code, qt.Equals, http.StatusBadRequest, qt.Commentf(path))
	}
	code, _ = do(c, app, http.MethodGet, "/tiles/demo/world/status?zoom=12", "")
	c.Assert(code, qt.Equals, http.StatusBadRequest)
}

func TestMetricsRoute(t *testing.T) {
	c := qt.New(t)
	app := newApp(c)
	do(c, app, http.MethodPut, "/earth/demo", demoEarth)

	code, body := do(c, app, http.MethodGet, "/metrics", "")
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(body, qt.Contains, `earthfile_loads_total{outcome="ok",source="stream"} 1`)
	c.Assert(body, qt.Contains, `earthfile_cache_creations_total{outcome="ok",type="memory"} 1`)
	c.Assert(body, qt.Contains, `earthfile_http_requests_total{code="201",method="PUT",route="/earth/:name"} 1`)
}

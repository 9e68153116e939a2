// Package khanearth mounts the earth file HTTP surface on a fiber app.
package khanearth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/khankhulgun/khanearth/catalog"
	"github.com/khankhulgun/khanearth/controllers"
	"github.com/khankhulgun/khanearth/internal/logging"
	"github.com/khankhulgun/khanearth/observability"
	"github.com/khankhulgun/khanearth/tiles"
)

type Deps struct {
	Catalog *catalog.Catalog
	Logger  logging.Logger

	// Metrics is optional; when set, requests are counted and MetricsPath is served.
	Metrics     *observability.Collector
	MetricsPath string
}

func Set(app *fiber.App, deps Deps) {
	if deps.Metrics != nil {
		app.Use(deps.Metrics.Middleware())
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	ec := controllers.NewEarthController(deps.Catalog, deps.Logger)
	th := tiles.NewHandlers(deps.Catalog, deps.Logger)

	app.Get("/earth", ec.ListEarthFiles)
	app.Get("/earth/:name", ec.GetEarthFile)
	app.Put("/earth/:name", ec.PutEarthFile)

	app.Get("/tiles/:map/:layer/status", th.StatusHandler)
	app.Get("/tiles/:map/:layer/:z/:x/:y", th.TileHandler)
	app.Put("/tiles/:map/:layer/:z/:x/:y", th.SaveHandler)

	a := app.Group("/mapserver/api")
	a.Get("/map/:name", ec.GetMap)
	a.Get("/map/:name/layers", ec.GetMapLayers)
}

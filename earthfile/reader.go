package earthfile

import (
	"context"

	"github.com/khankhulgun/khanearth/cache"
	"github.com/khankhulgun/khanearth/conf"
	"github.com/khankhulgun/khanearth/earth"
	"github.com/khankhulgun/khanearth/internal/logging"
	"github.com/khankhulgun/khanearth/maplayer"
	"github.com/khankhulgun/khanearth/models"
)

const (
	defaultImageTileSize     = "256"
	defaultElevationTileSize = "16"
)

// readMap builds a map from the map element and attaches it, with its engine
// properties, to e. It only fails if nothing about the document could be used.
func (e *EarthFile) readMap(ctx context.Context, root conf.Config, location string) error {
	typ := root.Get("type")
	cs, known := models.ParseCoordinateSystemType(typ)
	if !known && typ != "" {
		e.log.Info(ctx, "unknown coordinate system type, using geocentric", logging.String("type", typ))
	}

	m := earth.NewMap(cs)
	m.SetReferenceURI(location)
	m.SetName(root.Get("name"))

	engine, layout := models.ResolveEngineProperties(root)

	if root.HasChild("profile") {
		m.SetProfileConfig(models.ProfileConfigFromConfig(root.Child("profile")))
	}

	var owned cache.Cache
	if root.HasChild("cache") {
		cc := models.CacheConfigFromConfig(root.Child("cache"))
		m.SetCacheConfig(cc)
		if e.override == nil {
			owned = e.createCache(ctx, cc)
			m.SetCache(owned)
		}
	}
	if e.override != nil {
		e.log.Info(ctx, "cache override in effect", logging.String("type", e.override.Type()))
		m.SetCache(e.override)
	}

	imageDefaults := conf.New("defaults")
	imageDefaults.AddValue("default_tile_size", defaultImageTileSize)
	for _, node := range root.ChildrenOf("image") {
		m.AddMapLayer(maplayer.ReadMapLayer(node, imageDefaults))
	}

	elevationDefaults := conf.New("defaults")
	elevationDefaults.AddValue("default_tile_size", defaultElevationTileSize)
	for _, node := range root.ChildrenOf("heightfield") {
		m.AddMapLayer(maplayer.ReadMapLayer(node, elevationDefaults))
	}

	for _, node := range root.ChildrenOf("model") {
		m.AddModelLayer(maplayer.ReadModelLayer(node))
	}

	// Only the first mask is honoured.
	if masks := root.ChildrenOf("mask"); len(masks) > 0 {
		if len(masks) > 1 {
			e.log.Warn(ctx, "ignoring extra mask layers", logging.Int("count", len(masks)-1))
		}
		m.SetTerrainMaskLayer(maplayer.ReadMaskLayer(masks[0]))
	}

	if err := e.Close(); err != nil {
		e.log.Warn(ctx, "closing previous cache", logging.Err(err))
	}
	e.m = m
	e.engine = engine
	e.layout = layout
	e.ownedCache = owned

	e.log.Debug(ctx, "earth file loaded",
		logging.String("name", m.Name()),
		logging.String("location", location),
		logging.String("cs", cs.String()),
		logging.String("engine_layout", layout.String()),
	)
	return nil
}

// createCache tolerates failure: the map is simply left without a live cache.
func (e *EarthFile) createCache(ctx context.Context, cc models.CacheConfig) cache.Cache {
	if e.factory == nil {
		return nil
	}
	c, err := e.factory.Create(cc)
	if err != nil {
		e.metrics.ObserveCacheCreate(cc.Type, OutcomeError)
		e.log.Warn(ctx, "failed to create cache", logging.String("type", cc.Type), logging.Err(err))
		return nil
	}
	e.metrics.ObserveCacheCreate(cc.Type, OutcomeOK)
	return c
}

package earthfile

import (
	"github.com/khankhulgun/khanearth/conf"
	"github.com/khankhulgun/khanearth/earth"
	"github.com/khankhulgun/khanearth/maplayer"
	"github.com/khankhulgun/khanearth/models"
	"github.com/pkg/errors"
)

// mapToConfig renders a map snapshot as a map element. An unhandled coordinate system
// yields an empty config.
func mapToConfig(s earth.Snapshot, engine models.EngineProperties) (conf.Config, error) {
	cs, ok := s.CoordinateSystemType.Canonical()
	if !ok {
		return conf.Config{}, errors.Wrapf(ErrUnhandledCoordinateSystem, "type %d", int(s.CoordinateSystemType))
	}

	c := conf.New("map")
	c.SetAttr("name", s.Name)
	c.Add(engine.ToConfig("engine_properties"))
	c.SetAttr("type", cs)

	for _, l := range s.ImageLayers {
		c.Add(l.ToConfig())
	}
	for _, l := range s.ElevationLayers {
		c.Add(l.ToConfig())
	}
	for _, l := range s.ModelLayers {
		c.Add(maplayer.Write(l, "model"))
	}
	if s.TerrainMask != nil {
		c.Add(maplayer.Write(s.TerrainMask, "mask"))
	}
	if s.CacheConfig != nil {
		c.Add(s.CacheConfig.ToConfig("cache"))
	}
	if s.Profile != nil {
		c.Add(s.Profile.ToConfig("profile"))
	}
	return c, nil
}

package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/khankhulgun/khanearth/earthfile"
	"github.com/khankhulgun/khanearth/maplayer"
)

type ProfileSummary struct {
	Named  string      `json:"named,omitempty"`
	SRS    string      `json:"srs,omitempty"`
	Extent *[4]float64 `json:"extent,omitempty"`
}

type MapSummary struct {
	Name             string          `json:"name"`
	File             string          `json:"file"`
	CoordinateSystem string          `json:"coordinate_system"`
	Reference        string          `json:"reference"`
	EngineLayout     string          `json:"engine_layout"`
	Profile          *ProfileSummary `json:"profile,omitempty"`
	CacheType        string          `json:"cache_type,omitempty"`
	LiveCache        bool            `json:"live_cache"`
	Layers           []maplayer.Info `json:"layers"`
}

// Summarize describes the map of a loaded earth file stored as file.
func Summarize(file string, ef *earthfile.EarthFile) MapSummary {
	s := ef.Map().Snapshot()
	out := MapSummary{
		Name:             s.Name,
		File:             file,
		CoordinateSystem: s.CoordinateSystemType.String(),
		Reference:        s.ReferenceURI,
		EngineLayout:     ef.EngineLayout().String(),
		LiveCache:        s.Cache != nil,
		Layers:           maplayer.Filter(s.Layers(), nil),
	}
	if s.Profile != nil {
		out.Profile = &ProfileSummary{Named: s.Profile.Named, SRS: s.Profile.SRS}
		if s.Profile.HasExtent {
			e := s.Profile.Extent
			out.Profile.Extent = &[4]float64{e.Left(), e.Bottom(), e.Right(), e.Top()}
		}
	}
	if s.CacheConfig != nil {
		out.CacheType = s.CacheConfig.Type
	}
	return out
}

// GetMap returns the JSON summary of a stored earth file.
func (ec *EarthController) GetMap(c *fiber.Ctx) error {
	name := c.Params("name")
	ef, err := ec.Catalog.Fetch(c.UserContext(), name)
	if err != nil {
		return ec.fail(c, err)
	}
	return c.JSON(Summarize(name, ef))
}

// GetMapLayers lists the layers of a stored earth file, filtered by query parameters.
func (ec *EarthController) GetMapLayers(c *fiber.Ctx) error {
	ef, err := ec.Catalog.Fetch(c.UserContext(), c.Params("name"))
	if err != nil {
		return ec.fail(c, err)
	}
	layers := maplayer.Filter(ef.Map().Snapshot().Layers(), c.Queries())
	return c.JSON(fiber.Map{
		"status": "success",
		"data":   layers,
	})
}

package models

import (
	"strconv"

	"github.com/khankhulgun/khanearth/conf"
	"github.com/paulmach/orb"
)

// ProfileConfig is a spatial reference definition: an extent plus an SRS string, or a
// well-known named profile such as "global-geodetic". It is carried, not interpreted.
type ProfileConfig struct {
	Named     string
	SRS       string
	Extent    orb.Bound
	HasExtent bool
}

// ProfileConfigFromConfig reads xmin/ymin/xmax/ymax and srs from a profile node. The
// extent is only considered set when all four bounds parse.
func ProfileConfigFromConfig(c conf.Config) ProfileConfig {
	p := ProfileConfig{
		Named: c.Value,
		SRS:   c.Get("srs"),
	}
	xmin, ok1 := c.Float("xmin")
	ymin, ok2 := c.Float("ymin")
	xmax, ok3 := c.Float("xmax")
	ymax, ok4 := c.Float("ymax")
	if ok1 && ok2 && ok3 && ok4 {
		p.Extent = orb.Bound{Min: orb.Point{xmin, ymin}, Max: orb.Point{xmax, ymax}}
		p.HasExtent = true
	}
	return p
}

// ToConfig writes the profile under key.
func (p ProfileConfig) ToConfig(key string) conf.Config {
	c := conf.New(key)
	c.Value = p.Named
	if p.HasExtent {
		c.SetAttr("xmin", formatFloat(p.Extent.Left()))
		c.SetAttr("ymin", formatFloat(p.Extent.Bottom()))
		c.SetAttr("xmax", formatFloat(p.Extent.Right()))
		c.SetAttr("ymax", formatFloat(p.Extent.Top()))
	}
	if p.SRS != "" {
		c.SetAttr("srs", p.SRS)
	}
	return c
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

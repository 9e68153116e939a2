package models

import "github.com/khankhulgun/khanearth/conf"

// DriverOptions is the opaque, driver-specific configuration attached to a layer. The
// accessors cover the few fields every driver shares; everything else is read by the
// driver itself through Config.
type DriverOptions struct {
	cfg conf.Config
}

func NewDriverOptions(c conf.Config) DriverOptions {
	return DriverOptions{cfg: c.Clone()}
}

// Config returns a copy of the underlying node.
func (o DriverOptions) Config() conf.Config {
	return o.cfg.Clone()
}

func (o DriverOptions) Get(key string) string {
	return o.cfg.Get(key)
}

// Driver is the name of the driver that interprets these options.
func (o DriverOptions) Driver() string {
	return o.cfg.Get("driver")
}

// TileSize is the explicit tile_size when set, otherwise the default_tile_size merged
// in by the layer group.
func (o DriverOptions) TileSize() int {
	if n, ok := o.cfg.Int("tile_size"); ok {
		return n
	}
	n, _ := o.cfg.Int("default_tile_size")
	return n
}

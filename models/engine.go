package models

import (
	"strconv"

	"github.com/khankhulgun/khanearth/conf"
)

// EngineLayout records where engine properties were read from.
type EngineLayout int

const (
	// EngineLayoutDedicated means a nested engine_properties element.
	EngineLayoutDedicated EngineLayout = iota
	// EngineLayoutLegacy means scalar fields placed directly on the map element.
	EngineLayoutLegacy
)

func (l EngineLayout) String() string {
	if l == EngineLayoutLegacy {
		return "legacy"
	}
	return "dedicated"
}

const engineElement = "engine_properties"

// ProxySettings routes driver network traffic through a proxy.
type ProxySettings struct {
	Host string
	Port int
}

// LoadingPolicy controls how the engine schedules tile loading.
type LoadingPolicy struct {
	Mode              string
	NumLoadingThreads *int
	NumCompileThreads *int
}

// EngineProperties is the flat configuration bag handed to the map engine. Nil and
// empty fields are unset and are not written back.
type EngineProperties struct {
	VerticalScale      *float64
	SkirtRatio         *float64
	SampleRatio        *float64
	MinTileRangeFactor *float64
	NormalizeEdges     *bool
	CombineLayers      *bool
	MaxLOD             *int
	LayeringTechnique  string
	Proxy              *ProxySettings
	LoadingPolicy      *LoadingPolicy
}

// ResolveEngineProperties picks the parse strategy once: the dedicated element when the
// map carries one, otherwise the legacy flat fields on the map element itself.
func ResolveEngineProperties(mapConf conf.Config) (EngineProperties, EngineLayout) {
	if mapConf.HasChild(engineElement) {
		return EnginePropertiesFromConfig(mapConf.Child(engineElement)), EngineLayoutDedicated
	}
	return EnginePropertiesFromConfig(mapConf), EngineLayoutLegacy
}

// EnginePropertiesFromConfig reads every known field present on c.
func EnginePropertiesFromConfig(c conf.Config) EngineProperties {
	var p EngineProperties
	p.VerticalScale = optFloat(c, "vertical_scale")
	p.SkirtRatio = optFloat(c, "skirt_ratio")
	p.SampleRatio = optFloat(c, "sample_ratio")
	p.MinTileRangeFactor = optFloat(c, "min_tile_range_factor")
	p.NormalizeEdges = optBool(c, "normalize_edges")
	p.CombineLayers = optBool(c, "combine_layers")
	p.MaxLOD = optInt(c, "max_lod")
	p.LayeringTechnique = c.Get("layering_technique")

	if c.HasChild("proxy") {
		px := c.Child("proxy")
		port, _ := px.Int("port")
		p.Proxy = &ProxySettings{Host: px.Get("host"), Port: port}
	}
	if c.HasChild("loading_policy") {
		lp := c.Child("loading_policy")
		p.LoadingPolicy = &LoadingPolicy{
			Mode:              lp.Get("mode"),
			NumLoadingThreads: optInt(lp, "loading_threads"),
			NumCompileThreads: optInt(lp, "compile_threads"),
		}
	}
	return p
}

// ToConfig writes the set fields under key.
func (p EngineProperties) ToConfig(key string) conf.Config {
	c := conf.New(key)
	addFloat(&c, "vertical_scale", p.VerticalScale)
	addFloat(&c, "skirt_ratio", p.SkirtRatio)
	addFloat(&c, "sample_ratio", p.SampleRatio)
	addFloat(&c, "min_tile_range_factor", p.MinTileRangeFactor)
	addBool(&c, "normalize_edges", p.NormalizeEdges)
	addBool(&c, "combine_layers", p.CombineLayers)
	addInt(&c, "max_lod", p.MaxLOD)
	if p.LayeringTechnique != "" {
		c.AddValue("layering_technique", p.LayeringTechnique)
	}
	if p.Proxy != nil {
		px := conf.New("proxy")
		px.SetAttr("host", p.Proxy.Host)
		px.SetAttr("port", strconv.Itoa(p.Proxy.Port))
		c.Add(px)
	}
	if p.LoadingPolicy != nil {
		lp := conf.New("loading_policy")
		if p.LoadingPolicy.Mode != "" {
			lp.SetAttr("mode", p.LoadingPolicy.Mode)
		}
		addInt(&lp, "loading_threads", p.LoadingPolicy.NumLoadingThreads)
		addInt(&lp, "compile_threads", p.LoadingPolicy.NumCompileThreads)
		c.Add(lp)
	}
	return c
}

func optFloat(c conf.Config, key string) *float64 {
	if v, ok := c.Float(key); ok {
		return &v
	}
	return nil
}

func optBool(c conf.Config, key string) *bool {
	if v, ok := c.Bool(key); ok {
		return &v
	}
	return nil
}

func optInt(c conf.Config, key string) *int {
	if v, ok := c.Int(key); ok {
		return &v
	}
	return nil
}

func addFloat(c *conf.Config, key string, v *float64) {
	if v != nil {
		c.AddValue(key, formatFloat(*v))
	}
}

func addBool(c *conf.Config, key string, v *bool) {
	if v != nil {
		c.AddValue(key, strconv.FormatBool(*v))
	}
}

func addInt(c *conf.Config, key string, v *int) {
	if v != nil {
		c.AddValue(key, strconv.Itoa(*v))
	}
}

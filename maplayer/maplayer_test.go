package maplayer

import (
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/khankhulgun/khanearth/conf"
	"github.com/khankhulgun/khanearth/models"
)

func parse(c *qt.C, doc string) conf.Config {
	root, err := conf.ReadXML(strings.NewReader(doc))
	c.Assert(err, qt.IsNil)
	return root.Children[0]
}

func imageDefaults(size string) conf.Config {
	d := conf.New("defaults")
	d.AddValue("default_tile_size", size)
	return d
}

func TestReadMapLayer(t *testing.T) {
	c := qt.New(t)
	node := parse(c, `<image name="world"><driver>gdal</driver><url>world.tif</url></image>`)

	l := ReadMapLayer(node, imageDefaults("256"))
	c.Assert(l.Name(), qt.Equals, "world")
	c.Assert(l.Kind(), qt.Equals, KindImage)
	c.Assert(l.Options().Driver(), qt.Equals, "gdal")
	c.Assert(l.Options().TileSize(), qt.Equals, 256)

	// The written form is the node as read, without the merged defaults.
	out := l.ToConfig()
	c.Assert(out.Key, qt.Equals, "image")
	c.Assert(out.Has("default_tile_size"), qt.IsFalse)
	c.Assert(out.Get("url"), qt.Equals, "world.tif")
}

func TestReadMapLayerOwnValuesWin(t *testing.T) {
	c := qt.New(t)
	node := parse(c, `<heightfield name="dem"><default_tile_size>32</default_tile_size></heightfield>`)

	l := ReadMapLayer(node, imageDefaults("16"))
	c.Assert(l.Kind(), qt.Equals, KindElevation)
	c.Assert(l.Options().TileSize(), qt.Equals, 32)
	c.Assert(l.Options().Config().ChildrenOf("default_tile_size"), qt.HasLen, 1)
}

func TestReadMapLayerExplicitTileSize(t *testing.T) {
	c := qt.New(t)
	node := parse(c, `<heightfield name="dem" tile_size="64"/>`)
	c.Assert(ReadMapLayer(node, imageDefaults("16")).Options().TileSize(), qt.Equals, 64)
}

func TestReadModelAndMask(t *testing.T) {
	c := qt.New(t)
	m := ReadModelLayer(parse(c, `<model name="buildings" driver="feature_geom"/>`))
	c.Assert(m.Name(), qt.Equals, "buildings")
	c.Assert(m.Kind(), qt.Equals, KindModel)
	c.Assert(m.Options().Driver(), qt.Equals, "feature_geom")
	c.Assert(m.Options().TileSize(), qt.Equals, 0)

	mask := ReadMaskLayer(parse(c, `<mask driver="feature"><url>boundary.shp</url></mask>`))
	c.Assert(mask.Kind(), qt.Equals, KindMask)
	c.Assert(mask.Options().Get("url"), qt.Equals, "boundary.shp")
}

func TestWrite(t *testing.T) {
	c := qt.New(t)
	m := ReadModelLayer(parse(c, `<thing name="buildings"/>`))
	c.Assert(Write(m, "").Key, qt.Equals, "model")
	c.Assert(Write(m, "custom").Key, qt.Equals, "custom")
	c.Assert(Write(m, "custom").Attr("name"), qt.Equals, "buildings")

	mask := ReadMaskLayer(parse(c, `<boundary/>`))
	c.Assert(Write(mask, "").Key, qt.Equals, "mask")

	// Deterministic
	c.Assert(Write(m, ""), qt.DeepEquals, Write(m, ""))
}

func TestNewMapLayer(t *testing.T) {
	c := qt.New(t)
	opts := conf.New("")
	opts.AddValue("driver", "tms")
	l := NewMapLayer("osm", KindElevation, models.NewDriverOptions(opts))
	out := l.ToConfig()
	c.Assert(out.Key, qt.Equals, "heightfield")
	c.Assert(out.Attr("name"), qt.Equals, "osm")
	c.Assert(out.Get("driver"), qt.Equals, "tms")

	c.Assert(NewMapLayer("x", KindModel, models.NewDriverOptions(opts)).Kind(), qt.Equals, KindImage)
}

func TestParseKind(t *testing.T) {
	c := qt.New(t)
	for in, want := range map[string]Kind{
		"image":       KindImage,
		"Elevation":   KindElevation,
		"heightfield": KindElevation,
		" model ":     KindModel,
		"mask":        KindMask,
	} {
		got, ok := ParseKind(in)
		c.Assert(ok, qt.IsTrue, qt.Commentf("%q", in))
		c.Assert(got, qt.Equals, want, qt.Commentf("%q", in))
	}
	_, ok := ParseKind("vector")
	c.Assert(ok, qt.IsFalse)
}

func testLayers(c *qt.C) []Layer {
	return []Layer{
		ReadMapLayer(parse(c, `<image name="osm" driver="tms"><url>http://tiles/osm</url></image>`), imageDefaults("256")),
		ReadMapLayer(parse(c, `<image name="world"><driver>gdal</driver></image>`), imageDefaults("256")),
		ReadMapLayer(parse(c, `<heightfield name="srtm" driver="gdal"/>`), imageDefaults("16")),
		ReadModelLayer(parse(c, `<model name="roads" driver="feature_geom"/>`)),
	}
}

func names(infos []Info) []string {
	var out []string
	for _, i := range infos {
		out = append(out, i.Name)
	}
	return out
}

func TestDescribe(t *testing.T) {
	c := qt.New(t)
	info := Describe(testLayers(c)[0])
	c.Assert(info.Name, qt.Equals, "osm")
	c.Assert(info.Kind, qt.Equals, "image")
	c.Assert(info.Driver, qt.Equals, "tms")
	c.Assert(info.TileSize, qt.Equals, 256)
	c.Assert(info.Options["url"], qt.Equals, "http://tiles/osm")
	c.Assert(info.Options["default_tile_size"], qt.Equals, "256")
}

func TestBuildFilterConditions(t *testing.T) {
	c := qt.New(t)
	got := BuildFilterConditions(map[string]string{
		"kind":       "image,elevation",
		"name__like": "Os",
		"driver":     "gdal",
		"empty":      "",
		"search":     "tiles",
	})
	c.Assert(got, qt.DeepEquals, []Condition{
		{Field: "driver", Op: OpEqual, Values: []string{"gdal"}},
		{Field: "kind", Op: OpIn, Values: []string{"image", "elevation"}},
		{Field: "name", Op: OpLike, Values: []string{"Os"}},
		{Field: "name,driver,url", Op: OpSearch, Values: []string{"tiles"}},
	})
}

func TestFilter(t *testing.T) {
	c := qt.New(t)
	layers := testLayers(c)

	tests := []struct {
		filters map[string]string
		want    []string
	}{
		{nil, []string{"osm", "world", "srtm", "roads"}},
		{map[string]string{"kind": "heightfield"}, []string{"srtm"}},
		{map[string]string{"kind": "[image,model]"}, []string{"osm", "world", "roads"}},
		{map[string]string{"driver": "gdal"}, []string{"world", "srtm"}},
		{map[string]string{"driver": "gdal", "kind": "image"}, []string{"world"}},
		{map[string]string{"name__like": "OR"}, []string{"world"}},
		{map[string]string{"name": "osm,roads"}, []string{"osm", "roads"}},
		{map[string]string{"search": "TILES"}, []string{"osm"}},
		{map[string]string{"search": "r", "search_columns": "name"}, []string{"world", "srtm", "roads"}},
		{map[string]string{"url": "http://tiles/osm"}, []string{"osm"}},
		{map[string]string{"name": "nothing"}, nil},
	}
	for _, test := range tests {
		c.Assert(names(Filter(layers, test.filters)), qt.DeepEquals, test.want, qt.Commentf("%v", test.filters))
	}
}

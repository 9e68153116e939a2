package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/khankhulgun/khanearth/cache"
	"github.com/khankhulgun/khanearth/internal/logging"
	"github.com/pkg/errors"
)

const demoEarth = `<map name="demo" type="globe">
  <image name="world" driver="gdal"><url>world.tif</url></image>
  <heightfield name="dem" driver="gdal"/>
</map>`

func newCatalog(c *qt.C, opts ...Option) *Catalog {
	cat, err := New(filepath.Join(c.TempDir(), "earth"), append([]Option{WithLogger(logging.NewTesting(c.TB))}, opts...)...)
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { cat.Close() })
	return cat
}

func TestValidName(t *testing.T) {
	c := qt.New(t)
	c.Assert(ValidName("demo"), qt.IsTrue)
	c.Assert(ValidName("demo_2-b"), qt.IsTrue)
	for _, bad := range []string{"", "../etc", "a/b", `a\b`, "demo.earth", "."} {
		c.Assert(ValidName(bad), qt.IsFalse, qt.Commentf("%q", bad))
	}
}

func TestStoreFetchList(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	cat := newCatalog(c)

	names, err := cat.List()
	c.Assert(err, qt.IsNil)
	c.Assert(names, qt.HasLen, 0)

	ef, err := cat.Store(ctx, "demo", strings.NewReader(demoEarth))
	c.Assert(err, qt.IsNil)
	c.Assert(ef.Map().Name(), qt.Equals, "demo")
	_, err = cat.Store(ctx, "alpha", strings.NewReader(`<map name="alpha"/>`))
	c.Assert(err, qt.IsNil)

	names, err = cat.List()
	c.Assert(err, qt.IsNil)
	c.Assert(names, qt.DeepEquals, []string{"alpha", "demo"})

	// Stored in normalized form.
	data, err := os.ReadFile(filepath.Join(cat.Dir(), "demo.earth"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Contains, `<?xml version="1.0" encoding="UTF-8"?>`)
	c.Assert(string(data), qt.Contains, `type="geocentric"`)

	got, err := cat.Fetch(ctx, "demo")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, ef)
	c.Assert(got.Map().ImageMapLayers(), qt.HasLen, 1)
}

func TestFetchFromDisk(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	cat := newCatalog(c)
	c.Assert(os.WriteFile(filepath.Join(cat.Dir(), "disk.earth"), []byte(demoEarth), 0o644), qt.IsNil)

	first, err := cat.Fetch(ctx, "disk")
	c.Assert(err, qt.IsNil)
	c.Assert(first.Map().Name(), qt.Equals, "demo")
	want, _ := filepath.EvalSymlinks(filepath.Join(cat.Dir(), "disk.earth"))
	c.Assert(first.Map().ReferenceURI(), qt.Equals, want)

	second, err := cat.Fetch(ctx, "disk")
	c.Assert(err, qt.IsNil)
	c.Assert(second, qt.Equals, first)

	cat.Invalidate("disk")
	third, err := cat.Fetch(ctx, "disk")
	c.Assert(err, qt.IsNil)
	c.Assert(third == first, qt.IsFalse)
}

const cachedEarth = `<map name="cached" type="globe">
  <cache type="memory"><ttl>1h</ttl></cache>
  <image name="world" driver="gdal"><url>world.tif</url></image>
</map>`

func TestFetchExpires(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	cat := newCatalog(c, WithTTL(20*time.Millisecond))
	path := filepath.Join(cat.Dir(), "ttl.earth")
	c.Assert(os.WriteFile(path, []byte(demoEarth), 0o644), qt.IsNil)

	first, err := cat.Fetch(ctx, "ttl")
	c.Assert(err, qt.IsNil)
	time.Sleep(50 * time.Millisecond)
	second, err := cat.Fetch(ctx, "ttl")
	c.Assert(err, qt.IsNil)
	c.Assert(second, qt.Equals, first)

	later := time.Now().Add(time.Hour)
	c.Assert(os.Chtimes(path, later, later), qt.IsNil)
	time.Sleep(50 * time.Millisecond)
	third, err := cat.Fetch(ctx, "ttl")
	c.Assert(err, qt.IsNil)
	c.Assert(third == first, qt.IsFalse)
}

func TestReloadKeepsHandedOutCache(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	cat := newCatalog(c, WithTTL(20*time.Millisecond))

	_, err := cat.Store(ctx, "cached", strings.NewReader(cachedEarth))
	c.Assert(err, qt.IsNil)
	cat.Invalidate("cached")

	first, err := cat.Fetch(ctx, "cached")
	c.Assert(err, qt.IsNil)
	tc := first.Map().Cache()
	c.Assert(tc, qt.Not(qt.IsNil))
	key := cache.NewKey("world", 1, 0, 1)

	// Expiry with an unchanged file.
	time.Sleep(50 * time.Millisecond)
	_, err = cat.Fetch(ctx, "cached")
	c.Assert(err, qt.IsNil)
	c.Assert(tc.Set(ctx, key, []byte("png")), qt.IsNil)
	data, ok, err := tc.Get(ctx, key)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
	c.Assert(string(data), qt.Equals, "png")

	// Reload after an explicit invalidation.
	cat.Invalidate("cached")
	second, err := cat.Fetch(ctx, "cached")
	c.Assert(err, qt.IsNil)
	c.Assert(second == first, qt.IsFalse)
	c.Assert(tc.Set(ctx, key, []byte("png2")), qt.IsNil)
	data, ok, err = tc.Get(ctx, key)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
	c.Assert(string(data), qt.Equals, "png2")

	// Storing a new document closes the one it replaces.
	third, err := cat.Store(ctx, "cached", strings.NewReader(cachedEarth))
	c.Assert(err, qt.IsNil)
	c.Assert(second.Map().Cache().Set(ctx, key, []byte("late")), qt.Not(qt.IsNil))
	c.Assert(third.Map().Cache().Set(ctx, key, []byte("png3")), qt.IsNil)
}

func TestErrors(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	cat := newCatalog(c)

	_, err := cat.Fetch(ctx, "missing")
	c.Assert(errors.Is(err, ErrNotFound), qt.IsTrue)

	_, err = cat.Fetch(ctx, "../secret")
	c.Assert(errors.Is(err, ErrInvalidName), qt.IsTrue)

	_, err = cat.Store(ctx, "a.b", strings.NewReader(demoEarth))
	c.Assert(errors.Is(err, ErrInvalidName), qt.IsTrue)

	_, err = cat.Store(ctx, "broken", strings.NewReader(`<map><image></map>`))
	c.Assert(errors.Is(err, ErrInvalidDocument), qt.IsTrue)
	_, err = cat.Store(ctx, "nomap", strings.NewReader(`<earth/>`))
	c.Assert(errors.Is(err, ErrInvalidDocument), qt.IsTrue)

	names, err := cat.List()
	c.Assert(err, qt.IsNil)
	c.Assert(names, qt.HasLen, 0)
	entries, err := os.ReadDir(cat.Dir())
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, 0)
}

func TestListSkipsOtherFiles(t *testing.T) {
	c := qt.New(t)
	cat := newCatalog(c)
	dir := cat.Dir()
	c.Assert(os.WriteFile(filepath.Join(dir, "b.earth"), []byte(demoEarth), 0o644), qt.IsNil)
	c.Assert(os.WriteFile(filepath.Join(dir, "a.earth"), []byte(demoEarth), 0o644), qt.IsNil)
	c.Assert(os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644), qt.IsNil)
	c.Assert(os.WriteFile(filepath.Join(dir, ".tmp-1.earth"), nil, 0o644), qt.IsNil)
	c.Assert(os.Mkdir(filepath.Join(dir, "sub.earth"), 0o755), qt.IsNil)

	names, err := cat.List()
	c.Assert(err, qt.IsNil)
	c.Assert(names, qt.DeepEquals, []string{"a", "b"})
}

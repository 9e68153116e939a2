package cache

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/khankhulgun/khanearth/models"
	"github.com/peterbourgon/diskv/v3"
	"github.com/pkg/errors"
)

const defaultDiskMemory = 1 << 20

type diskCache struct {
	typ   string
	store *diskv.Diskv
}

// newDiskCache lays tiles out as <path>/<layer>/<z>/<x>/<file>. It reads path
// (required) and max_memory, the size of diskv's in-memory read cache in bytes.
func newDiskCache(cfg models.CacheConfig) (Cache, error) {
	path := cfg.Options.Get("path")
	if path == "" {
		return nil, errors.New("disk cache requires a path")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}
	memory := uint64(defaultDiskMemory)
	if n, ok := cfg.Options.Int("max_memory"); ok && n >= 0 {
		memory = uint64(n)
	}

	store := diskv.New(diskv.Options{
		BasePath:     path,
		Transform:    tileDirs,
		CacheSizeMax: memory,
	})
	return &diskCache{typ: cfg.Type, store: store}, nil
}

func diskKey(k Key) string {
	layer := strings.ReplaceAll(url.PathEscape(k.Layer), "~", "%7E")
	return fmt.Sprintf("%s~%d~%d~%d", layer, k.Tile.Z, k.Tile.X, k.Tile.Y)
}

func tileDirs(key string) []string {
	parts := strings.Split(key, "~")
	return parts[:len(parts)-1]
}

func (d *diskCache) Type() string { return d.typ }

func (d *diskCache) Get(_ context.Context, key Key) ([]byte, bool, error) {
	k := diskKey(key)
	if !d.store.Has(k) {
		return nil, false, nil
	}
	data, err := d.store.Read(k)
	if err != nil {
		return nil, false, errors.Wrapf(err, "read %s", key)
	}
	return data, true, nil
}

func (d *diskCache) Set(_ context.Context, key Key, data []byte) error {
	if err := d.store.Write(diskKey(key), data); err != nil {
		return errors.Wrapf(err, "write %s", key)
	}
	return nil
}

func (d *diskCache) Close() error { return nil }

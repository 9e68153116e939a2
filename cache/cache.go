// Package cache turns cache configuration into live tile caches. Each backend is a
// driver registered with a Factory under one or more type names; earth files select a
// driver through the type attribute of their cache element.
package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/khankhulgun/khanearth/models"
	"github.com/paulmach/orb/maptile"
	"github.com/pkg/errors"
)

var (
	ErrNoType      = errors.New("cache: configuration has no type")
	ErrUnknownType = errors.New("cache: unknown type")
	ErrRejected    = errors.New("cache: write rejected")
)

// Key addresses one tile of one layer.
type Key struct {
	Layer string
	Tile  maptile.Tile
}

func NewKey(layer string, z, x, y uint32) Key {
	return Key{Layer: layer, Tile: maptile.New(x, y, maptile.Zoom(z))}
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d/%d/%d", k.Layer, k.Tile.Z, k.Tile.X, k.Tile.Y)
}

// Cache is a live tile cache.
type Cache interface {
	Type() string
	Get(ctx context.Context, key Key) ([]byte, bool, error)
	Set(ctx context.Context, key Key, data []byte) error
	Close() error
}

// Creator builds a cache from its configuration.
type Creator func(cfg models.CacheConfig) (Cache, error)

// Factory maps cache types to creators.
type Factory struct {
	mu       sync.RWMutex
	creators map[string]Creator
}

// NewFactory returns a factory with every built-in driver registered.
func NewFactory() *Factory {
	f := &Factory{creators: make(map[string]Creator)}
	f.Register("memory", newMemoryCache)
	f.Register("disk", newDiskCache)
	f.Register("filesystem", newDiskCache)
	f.Register("tms", newDiskCache)
	f.Register("redis", newRedisCache)
	f.Register("database", newDatabaseCache)
	f.Register("postgres", newDatabaseCache)
	return f
}

// Register adds or replaces the creator for a type. Types are case-insensitive.
func (f *Factory) Register(typ string, c Creator) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creators[strings.ToLower(typ)] = c
}

// Types lists the registered type names in sorted order.
func (f *Factory) Types() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.creators))
	for t := range f.creators {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Create instantiates the cache declared by cfg.
func (f *Factory) Create(cfg models.CacheConfig) (Cache, error) {
	typ := strings.ToLower(strings.TrimSpace(cfg.Type))
	if typ == "" {
		return nil, ErrNoType
	}
	f.mu.RLock()
	create, ok := f.creators[typ]
	f.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownType, "type %q", cfg.Type)
	}
	c, err := create(cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "cache: create %q", typ)
	}
	return c, nil
}

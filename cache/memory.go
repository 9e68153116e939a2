package cache

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/khankhulgun/khanearth/models"
	"github.com/pkg/errors"
)

const defaultMemoryMaxSize = 256 << 20

type memoryCache struct {
	typ   string
	store *ristretto.Cache
	ttl   time.Duration
}

// newMemoryCache reads max_size (bytes) and ttl (Go duration, 0 = no expiry).
func newMemoryCache(cfg models.CacheConfig) (Cache, error) {
	maxSize := int64(defaultMemoryMaxSize)
	if n, ok := cfg.Options.Int("max_size"); ok && n > 0 {
		maxSize = int64(n)
	}
	ttl, err := parseTTL(cfg.Options.Get("ttl"))
	if err != nil {
		return nil, err
	}

	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,
		MaxCost:     maxSize,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "ristretto")
	}
	return &memoryCache{typ: cfg.Type, store: store, ttl: ttl}, nil
}

func (m *memoryCache) Type() string { return m.typ }

func (m *memoryCache) Get(_ context.Context, key Key) ([]byte, bool, error) {
	v, found := m.store.Get(key.String())
	if !found {
		return nil, false, nil
	}
	data, ok := v.([]byte)
	return data, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key Key, data []byte) error {
	buf := append([]byte(nil), data...)
	cost := int64(len(buf))
	if cost == 0 {
		cost = 1
	}
	var ok bool
	if m.ttl > 0 {
		ok = m.store.SetWithTTL(key.String(), buf, cost, m.ttl)
	} else {
		ok = m.store.Set(key.String(), buf, cost)
	}
	if !ok {
		return errors.Wrapf(ErrRejected, "memory set %s", key)
	}
	m.store.Wait()
	return nil
}

func (m *memoryCache) Close() error {
	m.store.Close()
	return nil
}

func parseTTL(v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid ttl %q", v)
	}
	return d, nil
}

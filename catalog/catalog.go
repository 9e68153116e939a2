// Package catalog stores named earth files in a directory and keeps recently loaded
// ones parsed in memory.
package catalog

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/khankhulgun/khanearth/earthfile"
	"github.com/khankhulgun/khanearth/internal/logging"
	"github.com/pkg/errors"
)

const Ext = ".earth"

var (
	ErrInvalidName     = errors.New("catalog: invalid name")
	ErrNotFound        = errors.New("catalog: earth file not found")
	ErrInvalidDocument = errors.New("catalog: invalid earth file")
)

type Catalog struct {
	dir    string
	ttl    time.Duration
	log    logging.Logger
	efOpts []earthfile.Option

	parsed *ristretto.Cache

	// live holds the latest EarthFile per name with the file time it was loaded from.
	// Files dropped by a reload stay open in retired until Close, as callers may still
	// hold them.
	mu      sync.Mutex
	live    map[string]entry
	retired []*earthfile.EarthFile
}

type entry struct {
	ef      *earthfile.EarthFile
	modTime time.Time
}

type Option func(*Catalog)

func WithTTL(ttl time.Duration) Option {
	return func(c *Catalog) { c.ttl = ttl }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Catalog) { c.log = l }
}

// WithEarthFileOptions sets the options every loaded EarthFile is built with.
func WithEarthFileOptions(opts ...earthfile.Option) Option {
	return func(c *Catalog) { c.efOpts = append(c.efOpts, opts...) }
}

// New opens the catalog rooted at dir, creating the directory if needed.
func New(dir string, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		dir:  dir,
		ttl:  60 * time.Minute,
		log:  logging.Noop(),
		live: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "catalog: create %s", dir)
	}

	var err error
	c.parsed, err = ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 10, // earth files, each costs 1
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "catalog: cache")
	}
	return c, nil
}

func (c *Catalog) Dir() string { return c.dir }

// ValidName reports whether name can be stored: non-empty, no path separators, no dots.
func ValidName(name string) bool {
	if name == "" || strings.ContainsAny(name, `/\.`) {
		return false
	}
	return !strings.ContainsRune(name, os.PathSeparator)
}

func (c *Catalog) path(name string) (string, error) {
	if !ValidName(name) {
		return "", errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return filepath.Join(c.dir, name+Ext), nil
}

// Fetch returns the parsed earth file for name, loading it from disk on a miss.
func (c *Catalog) Fetch(ctx context.Context, name string) (*earthfile.EarthFile, error) {
	path, err := c.path(name)
	if err != nil {
		return nil, err
	}

	if cached, found := c.parsed.Get(name); found {
		if ef, ok := cached.(*earthfile.EarthFile); ok {
			return ef, nil
		}
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNotFound, "%q", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "catalog: stat %q", name)
	}

	// An expired entry whose file is unchanged is handed out again.
	c.mu.Lock()
	prev, ok := c.live[name]
	c.mu.Unlock()
	if ok && prev.modTime.Equal(info.ModTime()) {
		c.cacheParsed(name, prev.ef)
		return prev.ef, nil
	}

	ef := earthfile.New(c.efOpts...)
	if err := ef.ReadLocation(ctx, path); err != nil {
		return nil, errors.Wrapf(err, "catalog: load %q", name)
	}
	c.remember(ctx, name, entry{ef: ef, modTime: info.ModTime()}, false)
	return ef, nil
}

// Store parses r and, when it is a valid earth file, writes its normalized form as name.
func (c *Catalog) Store(ctx context.Context, name string, r io.Reader) (*earthfile.EarthFile, error) {
	path, err := c.path(name)
	if err != nil {
		return nil, err
	}

	ef := earthfile.New(c.efOpts...)
	if err := ef.ReadXML(ctx, r, path); err != nil {
		return nil, errors.Wrapf(ErrInvalidDocument, "%q: %v", name, err)
	}

	tmp, err := os.CreateTemp(c.dir, "."+name+"-*")
	if err != nil {
		ef.Close()
		return nil, errors.Wrap(err, "catalog: create temp file")
	}
	if err := ef.WriteXML(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		ef.Close()
		return nil, errors.Wrapf(err, "catalog: write %q", name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		ef.Close()
		return nil, errors.Wrapf(err, "catalog: write %q", name)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		ef.Close()
		return nil, errors.Wrapf(err, "catalog: rename %q", name)
	}

	var modTime time.Time
	if info, err := os.Stat(path); err == nil {
		modTime = info.ModTime()
	}
	c.parsed.Del(name)
	c.remember(ctx, name, entry{ef: ef, modTime: modTime}, true)
	c.log.Info(ctx, "earth file stored", logging.String("name", name), logging.String("path", path))
	return ef, nil
}

// Invalidate forces the next Fetch of name to reload it from disk. The file handed out
// so far stays usable until the catalog is closed.
func (c *Catalog) Invalidate(name string) {
	c.parsed.Del(name)
	c.parsed.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.live[name]; ok {
		c.retired = append(c.retired, e.ef)
		delete(c.live, name)
	}
}

// List returns the stored names in sorted order.
func (c *Catalog) List() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "catalog: read %s", c.dir)
	}
	names := []string{}
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), Ext)
		if ValidName(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Close releases every loaded earth file.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var first error
	closeFile := func(ef *earthfile.EarthFile) {
		if err := ef.Close(); err != nil && first == nil {
			first = err
		}
	}
	for name, e := range c.live {
		closeFile(e.ef)
		delete(c.live, name)
	}
	for _, ef := range c.retired {
		closeFile(ef)
	}
	c.retired = nil
	c.parsed.Close()
	return first
}

func (c *Catalog) cacheParsed(name string, ef *earthfile.EarthFile) {
	c.parsed.SetWithTTL(name, ef, 1, c.ttl)
	c.parsed.Wait()
}

// remember makes e the current file for name. The previous one is closed when replace
// is set (a Store), otherwise it is retired.
func (c *Catalog) remember(ctx context.Context, name string, e entry, replace bool) {
	c.cacheParsed(name, e.ef)

	c.mu.Lock()
	prev, ok := c.live[name]
	c.live[name] = e
	if ok && prev.ef != e.ef && !replace {
		c.retired = append(c.retired, prev.ef)
	}
	c.mu.Unlock()

	if ok && prev.ef != e.ef && replace {
		if err := prev.ef.Close(); err != nil {
			c.log.Warn(ctx, "closing replaced earth file", logging.String("name", name), logging.Err(err))
		}
	}
}

// Package earth holds the in-memory map assembled from an earth file.
package earth

import (
	"sync"

	"github.com/khankhulgun/khanearth/cache"
	"github.com/khankhulgun/khanearth/maplayer"
	"github.com/khankhulgun/khanearth/models"
)

// Map is safe for concurrent use. Mutators take the write lock; readers get copies.
type Map struct {
	mu sync.RWMutex

	csType       models.CoordinateSystemType
	name         string
	referenceURI string
	profile      *models.ProfileConfig
	cacheConfig  *models.CacheConfig
	cache        cache.Cache

	imageLayers     []*maplayer.MapLayer
	elevationLayers []*maplayer.MapLayer
	modelLayers     []*maplayer.ModelLayer
	terrainMask     *maplayer.MaskLayer
}

func NewMap(cs models.CoordinateSystemType) *Map {
	return &Map{csType: cs}
}

func (m *Map) CoordinateSystemType() models.CoordinateSystemType {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.csType
}

func (m *Map) Name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.name
}

func (m *Map) SetName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
}

// ReferenceURI is the location the map was loaded from.
func (m *Map) ReferenceURI() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.referenceURI
}

func (m *Map) SetReferenceURI(uri string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.referenceURI = uri
}

func (m *Map) ProfileConfig() (models.ProfileConfig, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.profile == nil {
		return models.ProfileConfig{}, false
	}
	return *m.profile, true
}

func (m *Map) SetProfileConfig(p models.ProfileConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = &p
}

func (m *Map) CacheConfig() (models.CacheConfig, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cacheConfig == nil {
		return models.CacheConfig{}, false
	}
	return *m.cacheConfig, true
}

func (m *Map) SetCacheConfig(c models.CacheConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheConfig = &c
}

// Cache is the live cache, or nil.
func (m *Map) Cache() cache.Cache {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cache
}

func (m *Map) SetCache(c cache.Cache) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = c
}

// AddMapLayer appends an image or elevation layer to the list matching its kind.
func (m *Map) AddMapLayer(l *maplayer.MapLayer) {
	if l == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.Kind() == maplayer.KindElevation {
		m.elevationLayers = append(m.elevationLayers, l)
		return
	}
	m.imageLayers = append(m.imageLayers, l)
}

func (m *Map) AddModelLayer(l *maplayer.ModelLayer) {
	if l == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelLayers = append(m.modelLayers, l)
}

// SetTerrainMaskLayer replaces the mask; nil clears it.
func (m *Map) SetTerrainMaskLayer(l *maplayer.MaskLayer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terrainMask = l
}

// RemoveMapLayer drops every image and elevation layer with the name and reports
// whether any was removed.
func (m *Map) RemoveMapLayer(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed bool
	m.imageLayers, removed = without(m.imageLayers, name, removed)
	m.elevationLayers, removed = without(m.elevationLayers, name, removed)
	return removed
}

func without(layers []*maplayer.MapLayer, name string, removed bool) ([]*maplayer.MapLayer, bool) {
	var kept []*maplayer.MapLayer
	for _, l := range layers {
		if l.Name() == name {
			removed = true
			continue
		}
		kept = append(kept, l)
	}
	return kept, removed
}

func (m *Map) ImageMapLayers() []*maplayer.MapLayer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*maplayer.MapLayer(nil), m.imageLayers...)
}

func (m *Map) ElevationMapLayers() []*maplayer.MapLayer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*maplayer.MapLayer(nil), m.elevationLayers...)
}

func (m *Map) ModelLayers() []*maplayer.ModelLayer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*maplayer.ModelLayer(nil), m.modelLayers...)
}

func (m *Map) TerrainMaskLayer() *maplayer.MaskLayer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.terrainMask
}

// Snapshot is a consistent copy of a map taken under a single read lock.
type Snapshot struct {
	CoordinateSystemType models.CoordinateSystemType
	Name                 string
	ReferenceURI         string
	Profile              *models.ProfileConfig
	CacheConfig          *models.CacheConfig
	Cache                cache.Cache
	ImageLayers          []*maplayer.MapLayer
	ElevationLayers      []*maplayer.MapLayer
	ModelLayers          []*maplayer.ModelLayer
	TerrainMask          *maplayer.MaskLayer
}

func (m *Map) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{
		CoordinateSystemType: m.csType,
		Name:                 m.name,
		ReferenceURI:         m.referenceURI,
		Cache:                m.cache,
		ImageLayers:          append([]*maplayer.MapLayer(nil), m.imageLayers...),
		ElevationLayers:      append([]*maplayer.MapLayer(nil), m.elevationLayers...),
		ModelLayers:          append([]*maplayer.ModelLayer(nil), m.modelLayers...),
		TerrainMask:          m.terrainMask,
	}
	if m.profile != nil {
		p := *m.profile
		s.Profile = &p
	}
	if m.cacheConfig != nil {
		c := models.CacheConfig{Type: m.cacheConfig.Type, Options: m.cacheConfig.Options.Clone()}
		s.CacheConfig = &c
	}
	return s
}

// Layers lists every layer in document order: images, elevations, models, then the mask.
func (s Snapshot) Layers() []maplayer.Layer {
	var out []maplayer.Layer
	for _, l := range s.ImageLayers {
		out = append(out, l)
	}
	for _, l := range s.ElevationLayers {
		out = append(out, l)
	}
	for _, l := range s.ModelLayers {
		out = append(out, l)
	}
	if s.TerrainMask != nil {
		out = append(out, s.TerrainMask)
	}
	return out
}

// FindLayer returns the first layer with the name.
func (s Snapshot) FindLayer(name string) (maplayer.Layer, bool) {
	for _, l := range s.Layers() {
		if l.Name() == name {
			return l, true
		}
	}
	return nil, false
}

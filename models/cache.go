package models

import (
	"time"

	"github.com/khankhulgun/khanearth/conf"
)

// CacheConfig is the declarative description of a cache backend: its type plus
// driver-specific fields. It is distinct from the live cache it may produce.
type CacheConfig struct {
	Type    string
	Options conf.Config
}

// CacheConfigFromConfig keeps the whole node so driver-specific fields survive a round trip.
func CacheConfigFromConfig(c conf.Config) CacheConfig {
	return CacheConfig{
		Type:    c.Get("type"),
		Options: c.Clone(),
	}
}

// ToConfig writes the cache configuration under key.
func (c CacheConfig) ToConfig(key string) conf.Config {
	out := c.Options.Clone()
	out.Key = key
	if c.Type != "" && out.Get("type") != c.Type {
		out.Remove("type")
		out.SetAttr("type", c.Type)
	}
	return out
}

// CacheTile is a tile blob stored by the database cache driver.
type CacheTile struct {
	Layer     string    `gorm:"column:layer;primaryKey" json:"layer"`
	Z         uint32    `gorm:"column:z;primaryKey;autoIncrement:false" json:"z"`
	X         uint32    `gorm:"column:x;primaryKey;autoIncrement:false" json:"x"`
	Y         uint32    `gorm:"column:y;primaryKey;autoIncrement:false" json:"y"`
	Data      []byte    `gorm:"column:data" json:"-"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (t *CacheTile) TableName() string {
	return "earth_cache.cache_tiles"
}

package cache

import (
	"strings"

	"github.com/khankhulgun/khanearth/conf"
	"github.com/khankhulgun/khanearth/models"
	"github.com/pkg/errors"
)

// ParseOverride reads a compact cache declaration, as used for the cache override, of the form
// "type;key=value;key=value", e.g. "redis;address=cache:6379;ttl=1h".
func ParseOverride(decl string) (models.CacheConfig, error) {
	parts := strings.Split(decl, ";")
	typ := strings.TrimSpace(parts[0])
	if typ == "" {
		return models.CacheConfig{}, ErrNoType
	}
	c := conf.New("cache")
	c.SetAttr("type", typ)
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return models.CacheConfig{}, errors.Errorf("cache: malformed option %q in %q", p, decl)
		}
		c.AddValue(k, strings.TrimSpace(v))
	}
	return models.CacheConfigFromConfig(c), nil
}

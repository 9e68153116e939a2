// Package config loads earthserver settings from the environment, optionally seeded
// from .env files.
package config

import (
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const Prefix = "KHANEARTH"

type Settings struct {
	Addr          string        `envconfig:"ADDR" default:":8090"`
	Dir           string        `envconfig:"DIR" default:"./public/earth"`
	CatalogTTL    time.Duration `envconfig:"CATALOG_TTL" default:"60m"`
	FetchTimeout  time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	CacheOverride string        `envconfig:"CACHE_OVERRIDE"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat     string        `envconfig:"LOG_FORMAT" default:"text"`
	MetricsPath   string        `envconfig:"METRICS_PATH" default:"/metrics"`
	Migrate       bool          `envconfig:"MIGRATE" default:"false"`
	DatabaseDSN   string        `envconfig:"DATABASE_DSN"`
	Seed          bool          `envconfig:"SEED" default:"false"`

	TracingEnabled  bool    `envconfig:"TRACING_ENABLED" default:"false"`
	TracingExporter string  `envconfig:"TRACING_EXPORTER" default:"stdout"`
	TracingEndpoint string  `envconfig:"TRACING_ENDPOINT"`
	TracingRatio    float64 `envconfig:"TRACING_SAMPLE_RATIO" default:"1"`
}

// Load reads the given .env files (missing ones are skipped; ".env" when none are
// named), then the KHANEARTH_* environment. Variables already set in the environment
// win over .env values.
func Load(envFiles ...string) (Settings, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, errors.Wrapf(err, "config: load %s", f)
		}
	}

	var s Settings
	if err := envconfig.Process(Prefix, &s); err != nil {
		return Settings{}, errors.Wrap(err, "config")
	}
	return s, nil
}

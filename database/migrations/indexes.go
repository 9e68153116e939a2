package migrations

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// MigrateIndexes creates the secondary indexes on earth_cache tables.
func MigrateIndexes(db *gorm.DB) error {
	// Per-layer scans when a layer is purged
	createLayerIndex := `
	CREATE INDEX IF NOT EXISTS "cache_tiles_layer_idx"
		ON "earth_cache"."cache_tiles" ("layer");
	`
	if err := db.Exec(createLayerIndex).Error; err != nil {
		return errors.Wrap(err, "create cache_tiles_layer_idx")
	}

	// Expiry sweeps by age
	createUpdatedIndex := `
	CREATE INDEX IF NOT EXISTS "cache_tiles_updated_at_idx"
		ON "earth_cache"."cache_tiles" ("updated_at");
	`
	if err := db.Exec(createUpdatedIndex).Error; err != nil {
		return errors.Wrap(err, "create cache_tiles_updated_at_idx")
	}
	return nil
}

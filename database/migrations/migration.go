package migrations

import (
	"github.com/khankhulgun/khanearth/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Migrate prepares the earth_cache schema used by the database tile cache.
func Migrate(db *gorm.DB) error {
	// Create the schema if it doesn't exist
	createSchema := `
	CREATE SCHEMA IF NOT EXISTS earth_cache;
	`
	if err := db.Exec(createSchema).Error; err != nil {
		return errors.Wrap(err, "create schema earth_cache")
	}
	if err := db.AutoMigrate(&models.CacheTile{}); err != nil {
		return errors.Wrap(err, "migrate cache_tiles")
	}
	return MigrateIndexes(db)
}

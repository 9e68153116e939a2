package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/khankhulgun/khanearth/conf"
	"github.com/khankhulgun/khanearth/database/migrations"
	"github.com/khankhulgun/khanearth/models"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type databaseCache struct {
	typ string
	db  *gorm.DB
}

func newDatabaseCache(cfg models.CacheConfig) (Cache, error) {
	db, err := gorm.Open(postgres.Open(postgresDSN(cfg.Options)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if err := migrations.Migrate(db); err != nil {
		closeDB(db)
		return nil, err
	}
	return &databaseCache{typ: cfg.Type, db: db}, nil
}

// postgresDSN uses dsn verbatim when present, otherwise builds a keyword/value DSN
// from host, port, user, password, dbname and sslmode. Empty fields are left out.
func postgresDSN(c conf.Config) string {
	if dsn := c.Get("dsn"); dsn != "" {
		return dsn
	}
	defaults := map[string]string{"host": "localhost", "port": "5432", "sslmode": "disable"}
	var parts []string
	for _, k := range []string{"host", "port", "user", "password", "dbname", "sslmode"} {
		v := c.Get(k)
		if v == "" {
			v = defaults[k]
		}
		if v != "" {
			parts = append(parts, fmt.Sprintf("%s=%s", k, v))
		}
	}
	return strings.Join(parts, " ")
}

func (d *databaseCache) Type() string { return d.typ }

func (d *databaseCache) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	var tile models.CacheTile
	err := d.db.WithContext(ctx).
		Where("layer = ? AND z = ? AND x = ? AND y = ?", key.Layer, uint32(key.Tile.Z), key.Tile.X, key.Tile.Y).
		Take(&tile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "select tile %s", key)
	}
	return tile.Data, true, nil
}

func (d *databaseCache) Set(ctx context.Context, key Key, data []byte) error {
	tile := models.CacheTile{
		Layer:     key.Layer,
		Z:         uint32(key.Tile.Z),
		X:         key.Tile.X,
		Y:         key.Tile.Y,
		Data:      data,
		UpdatedAt: time.Now(),
	}
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&tile).Error
	if err != nil {
		return errors.Wrapf(err, "upsert tile %s", key)
	}
	return nil
}

func (d *databaseCache) Close() error {
	return closeDB(d.db)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/khankhulgun/khanearth"
	"github.com/khankhulgun/khanearth/cache"
	"github.com/khankhulgun/khanearth/catalog"
	"github.com/khankhulgun/khanearth/config"
	"github.com/khankhulgun/khanearth/database/migrations"
	"github.com/khankhulgun/khanearth/database/seeds"
	"github.com/khankhulgun/khanearth/earthfile"
	"github.com/khankhulgun/khanearth/internal/logging"
	"github.com/khankhulgun/khanearth/observability"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	envFile := flag.String("env", ".env", "Path to a .env file seeding KHANEARTH_* settings")
	flag.Parse()

	ctx := context.Background()
	settings, err := config.Load(*envFile)
	if err != nil {
		logging.NewFromEnv().Error(ctx, "failed to load settings", logging.Err(err))
		os.Exit(1)
	}

	log := logging.New(logging.Config{Level: settings.LogLevel, Format: settings.LogFormat})

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     settings.TracingEnabled,
		ServiceName: "earthserver",
		Exporter:    settings.TracingExporter,
		Endpoint:    settings.TracingEndpoint,
		SampleRatio: settings.TracingRatio,
	}, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	collector, err := observability.NewCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.Err(err))
		os.Exit(1)
	}

	if settings.Migrate {
		if err := migrate(settings.DatabaseDSN); err != nil {
			log.Error(ctx, "migration failed", logging.Err(err))
			os.Exit(1)
		}
		log.Info(ctx, "database migrated")
	}

	factory := cache.NewFactory()
	efOpts := []earthfile.Option{
		earthfile.WithCacheFactory(factory),
		earthfile.WithLogger(log),
		earthfile.WithMetricsRecorder(collector),
		earthfile.WithHTTPClient(&http.Client{Timeout: settings.FetchTimeout}),
	}
	if settings.CacheOverride != "" {
		override, err := overrideCache(factory, settings.CacheOverride)
		if err != nil {
			log.Error(ctx, "failed to create override cache", logging.Err(err))
			os.Exit(1)
		}
		defer override.Close()
		efOpts = append(efOpts, earthfile.WithCacheOverride(override))
		log.Info(ctx, "using cache override", logging.String("type", override.Type()))
	}

	cat, err := catalog.New(settings.Dir,
		catalog.WithTTL(settings.CatalogTTL),
		catalog.WithLogger(log),
		catalog.WithEarthFileOptions(efOpts...),
	)
	if err != nil {
		log.Error(ctx, "failed to open catalog", logging.String("dir", settings.Dir), logging.Err(err))
		os.Exit(1)
	}
	defer cat.Close()

	if settings.Seed {
		added, err := seeds.Seed(ctx, cat)
		if err != nil {
			log.Error(ctx, "seeding failed", logging.Err(err))
			os.Exit(1)
		}
		log.Info(ctx, "catalog seeded", logging.Any("added", added))
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	khanearth.Set(app, khanearth.Deps{
		Catalog:     cat,
		Logger:      log,
		Metrics:     collector,
		MetricsPath: settings.MetricsPath,
	})

	log.Info(ctx, "starting earth server", logging.String("addr", settings.Addr), logging.String("dir", settings.Dir))
	go func() {
		if err := app.Listen(settings.Addr); err != nil {
			log.Error(ctx, "http server exited", logging.Err(err))
		}
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-stopCtx.Done()

	log.Info(ctx, "shutting down earth server")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Warn(ctx, "http shutdown failed", logging.Err(err))
	}
}

func overrideCache(factory *cache.Factory, decl string) (cache.Cache, error) {
	cfg, err := cache.ParseOverride(decl)
	if err != nil {
		return nil, err
	}
	return factory.Create(cfg)
}

func migrate(dsn string) error {
	if dsn == "" {
		return errNoDSN
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	return migrations.Migrate(db)
}

var errNoDSN = errors.New("KHANEARTH_MIGRATE requires KHANEARTH_DATABASE_DSN")

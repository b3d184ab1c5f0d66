package main

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"trip_activities/internal/adapters/observability"
	"trip_activities/internal/adapters/viator"
	"trip_activities/internal/app"
	"trip_activities/internal/shared"
	mysqlrepo "trip_activities/internal/storage/mysql"
)

// syncer runs one full destinations + taxonomy refresh and exits. Meant for
// cron and for seeding a fresh database before the API first starts.
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("base", cfg.ViatorBase).
		Int("workers", cfg.Workers).
		Msg("syncer starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	client, err := viator.New(cfg.ViatorBase, cfg.ViatorKey, cfg.ViatorRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider client")
	}

	destinations := app.NewDestinationsSync(client, repo, cfg.Workers)
	report, err := destinations.Sync(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("destinations sync failed")
	}
	log.Info().
		Int("fetched", report.Fetched).
		Int("updated", report.Updated).
		Int("errors", report.Errors).
		Msg("destinations synced")

	taxonomy := app.NewTaxonomyIndex(client, repo, "en")
	tagReport, err := taxonomy.Sync(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("taxonomy sync failed")
	}
	log.Info().
		Int("fetched", tagReport.Fetched).
		Int("updated", tagReport.Updated).
		Int("errors", tagReport.Errors).
		Msg("taxonomy synced")

	log.Info().Msg("sync completed")
}

package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "trip_activities/internal/adapters/http_server"
	"trip_activities/internal/adapters/observability"
	redisad "trip_activities/internal/adapters/redis"
	"trip_activities/internal/adapters/viator"
	"trip_activities/internal/app"
	"trip_activities/internal/shared"
	mysqlrepo "trip_activities/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	client, err := viator.New(cfg.ViatorBase, cfg.ViatorKey, cfg.ViatorRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider client")
	}

	resolver := app.NewLocationResolver(repo, cfg.ResolveMinConfidence, cfg.ResolveSampleLimit)
	taxonomy := app.NewTaxonomyIndex(client, repo, "en")
	destinations := app.NewDestinationsSync(client, repo, cfg.Workers)
	search := app.NewSearchService(client, resolver, taxonomy, cache, repo, cfg.SearchCacheTTL)

	// serve persisted tags before the first live sync lands
	if err := taxonomy.Warm(context.Background()); err != nil {
		log.Warn().Err(err).Msg("taxonomy warm-up failed; lookups empty until first sync")
	}
	go refreshTaxonomy(taxonomy, cfg.TaxonomyRefresh)

	// http
	srv := server.New(cfg.SearchTimeout)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Search:       search,
		Taxonomy:     taxonomy,
		Destinations: destinations,
		Cache:        cache,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

// refreshTaxonomy resyncs on a fixed interval; failures keep the previous
// snapshot serving and are retried next tick.
func refreshTaxonomy(ix *app.TaxonomyIndex, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		if _, err := ix.Sync(ctx); err != nil {
			log.Error().Err(err).Msg("scheduled taxonomy sync failed")
		}
		cancel()
	}
}

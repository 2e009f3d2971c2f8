package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "hotelmap/internal/adapters/http_server"
	"hotelmap/internal/adapters/observability"
	redisad "hotelmap/internal/adapters/redis"
	"hotelmap/internal/app"
	"hotelmap/internal/matching"
	"hotelmap/internal/shared"
	mysqlrepo "hotelmap/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

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
	matcher := matching.New(cfg.Matcher)

	importer := app.NewImportService(repo, cache, matcher, app.ImportOptions{
		CandidateLimit: cfg.CandidateLimit,
		BBoxDegrees:    cfg.CandidateBBox,
		ReviewTopN:     cfg.ReviewTopN,
		Workers:        int64(cfg.Workers),
	})
	review := app.NewReviewService(repo, cache)
	q := app.NewQueryService(repo, cache, cfg.CacheTTL)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Importer: importer, Review: review, Q: q})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

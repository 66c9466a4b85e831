package main

import (
	"fmt"
	"os"

	"github.com/fodsense/fod-gateway/internal/aiclient"
	"github.com/fodsense/fod-gateway/internal/config"
	"github.com/fodsense/fod-gateway/internal/httpserver"
	"github.com/fodsense/fod-gateway/internal/ingest"
	"github.com/fodsense/fod-gateway/internal/logger"
	"github.com/fodsense/fod-gateway/internal/store"
)

// main boots the gateway: config → logger → DB → schema → HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	// Durable storage (Postgres) behind a connection pool, shared by all
	// request handlers for the life of the process.
	db, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	defer db.Close()

	// Ensure required tables/indexes exist so `docker compose up --build` is enough.
	if err := db.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}

	ai := aiclient.New(cfg.AI.BaseURL, nil)
	rec := ingest.NewRecorder(db, log)

	router := httpserver.NewRouter(cfg, db, ai, rec, log)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Str("ai_base", cfg.AI.BaseURL).Msg("gateway listening")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}

package httpserver

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/fodsense/fod-gateway/internal/aiclient"
	"github.com/fodsense/fod-gateway/internal/auth"
	"github.com/fodsense/fod-gateway/internal/config"
	"github.com/fodsense/fod-gateway/internal/handlers"
	"github.com/fodsense/fod-gateway/internal/ingest"
	"github.com/fodsense/fod-gateway/internal/store"
)

// NewRouter wires the gateway endpoints.
// Open: health probes, inference proxy, dashboard reads.
// Optionally key-guarded: direct event ingestion.
func NewRouter(cfg *config.Config, st *store.PostgresStore, ai *aiclient.Client, rec *ingest.Recorder, log zerolog.Logger) *gin.Engine {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	// The dashboard frontend is served from another origin.
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"*"},
		ExposeHeaders:   []string{"Content-Type"},
		MaxAge:          12 * time.Hour,
	}))

	handlers.RegisterHealthRoutes(r, st, ai, log)
	handlers.RegisterInferRoutes(r, ai, rec, log)
	handlers.RegisterReadRoutes(r, st, log)

	ingestGroup := r.Group("/")
	ingestGroup.Use(auth.APIKeyMiddleware(cfg.IngestAPIKey))
	handlers.RegisterEventRoutes(ingestGroup, rec, log)

	return r
}

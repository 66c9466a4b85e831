package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Pinger validates database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// AIProber relays the AI service probe bodies.
type AIProber interface {
	Health(ctx context.Context) ([]byte, error)
	Ready(ctx context.Context) ([]byte, error)
}

// RegisterHealthRoutes registers liveness and dependency probes.
//
// GET /health          - process liveness
// GET /health/db       - database reachability
// GET /health/ai       - AI service liveness, body relayed
// GET /health/ai-ready - AI service readiness, body relayed
func RegisterHealthRoutes(r gin.IRoutes, db Pinger, ai AIProber, log zerolog.Logger) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/health/db", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			log.Error().Err(err).Msg("db health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/health/ai", func(c *gin.Context) {
		body, err := ai.Health(c.Request.Context())
		if err != nil {
			log.Error().Err(err).Msg("ai health check failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ai service unreachable"})
			return
		}
		c.Data(http.StatusOK, "application/json", body)
	})

	r.GET("/health/ai-ready", func(c *gin.Context) {
		body, err := ai.Ready(c.Request.Context())
		if err != nil {
			log.Error().Err(err).Msg("ai readiness check failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ai service unreachable"})
			return
		}
		c.Data(http.StatusOK, "application/json", body)
	})
}

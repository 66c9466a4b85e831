package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fodsense/fod-gateway/internal/ingest"
	"github.com/fodsense/fod-gateway/internal/models"
)

// Ingester persists one caller-specified event.
type Ingester interface {
	IngestEvent(ctx context.Context, req models.IngestEventRequest) (uuid.UUID, error)
}

// RegisterEventRoutes registers the direct ingestion endpoint.
//
// POST /events/ingest
// - Durable: returns success only after DB write completes
// - ts must be RFC3339; rejected before storage otherwise
// - object_class and an object_count of at least 1 are required
func RegisterEventRoutes(r gin.IRoutes, rec Ingester, log zerolog.Logger) {
	r.POST("/events/ingest", func(c *gin.Context) {
		var req models.IngestEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}

		id, err := rec.IngestEvent(c.Request.Context(), req)
		if err != nil {
			if errors.Is(err, ingest.ErrBadTimestamp) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timestamp"})
				return
			}
			if errors.Is(err, ingest.ErrInvalidEvent) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "object_class and object_count >= 1 required"})
				return
			}
			log.Error().Err(err).Msg("event ingestion failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db insert failed"})
			return
		}

		c.JSON(http.StatusOK, models.IngestEventResponse{ID: id, Status: "success"})
	})
}

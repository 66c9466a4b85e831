package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/fodsense/fod-gateway/internal/models"
)

// defaultLimit is used when the limit parameter is absent or out of range.
const (
	defaultLimit = 100
	maxLimit     = 500
)

// EventReader answers the dashboard read queries.
type EventReader interface {
	GetSummary(ctx context.Context) (models.DashboardSummary, error)
	GetRecent(ctx context.Context, limit int) ([]models.RecentEvent, error)
	QueryEvents(ctx context.Context, className string, limit int) ([]models.RecentEvent, error)
}

// parseLimit reads the limit query parameter, falling back to the default
// when it is missing, unparsable, or outside (0, 500].
func parseLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 || n > maxLimit {
		return defaultLimit
	}
	return n
}

// RegisterReadRoutes registers the dashboard serving-path endpoints.
//
// GET /events/recent?limit=N
// GET /events/query?class=...&limit=N
// GET /dashboard/summary
func RegisterReadRoutes(r gin.IRoutes, st EventReader, log zerolog.Logger) {
	r.GET("/events/recent", func(c *gin.Context) {
		events, err := st.GetRecent(c.Request.Context(), parseLimit(c))
		if err != nil {
			log.Error().Err(err).Msg("recent events query failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}
		c.JSON(http.StatusOK, events)
	})

	r.GET("/events/query", func(c *gin.Context) {
		events, err := st.QueryEvents(c.Request.Context(), c.Query("class"), parseLimit(c))
		if err != nil {
			log.Error().Err(err).Msg("events query failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}
		c.JSON(http.StatusOK, events)
	})

	r.GET("/dashboard/summary", func(c *gin.Context) {
		summary, err := st.GetSummary(c.Request.Context())
		if err != nil {
			log.Error().Err(err).Msg("summary query failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}
		c.JSON(http.StatusOK, summary)
	})
}

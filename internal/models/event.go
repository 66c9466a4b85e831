package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// IngestEventRequest is the POST /events/ingest payload.
// ts must be RFC3339; bbox and meta are stored as-is without validation.
type IngestEventRequest struct {
	Timestamp   string          `json:"ts"`
	ObjectClass string          `json:"object_class"`
	ObjectCount int32           `json:"object_count"`
	Confidence  float64         `json:"confidence"`
	Latitude    float64         `json:"latitude"`
	Longitude   float64         `json:"longitude"`
	Source      string          `json:"source"`
	SourceRef   string          `json:"source_ref"`
	Bbox        json.RawMessage `json:"bbox,omitempty"`
	Meta        json.RawMessage `json:"meta,omitempty"`
}

// IngestEventResponse is returned by POST /events/ingest.
type IngestEventResponse struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

// RecentEvent is one row of the read endpoints, with the class name
// already joined in (read clients never see a bare class id).
type RecentEvent struct {
	ID          uuid.UUID `json:"id"`
	Timestamp   time.Time `json:"ts"`
	ClassName   string    `json:"class_name"`
	ObjectCount int32     `json:"object_count"`
	Confidence  float64   `json:"confidence"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Source      string    `json:"source"`
	SourceRef   string    `json:"source_ref"`
}

// DashboardSummary aggregates the trailing 24 hours.
// AvgConf and TopClass are null when the window is empty.
type DashboardSummary struct {
	Total24h int64    `json:"total_24h"`
	AvgConf  *float64 `json:"avg_conf"`
	TopClass *string  `json:"top_fod"`
}

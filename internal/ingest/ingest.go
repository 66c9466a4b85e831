package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fodsense/fod-gateway/internal/models"
	"github.com/fodsense/fod-gateway/internal/store"
)

// ErrBadTimestamp rejects a direct ingestion whose ts is not RFC3339.
var ErrBadTimestamp = errors.New("invalid timestamp")

// ErrInvalidEvent rejects a direct ingestion missing required fields.
var ErrInvalidEvent = errors.New("invalid event")

// Defaults applied when SaveParams omit a value.
const (
	defaultSource    = "monitoring"
	defaultSourceRef = "live_feed"
)

// Store is the persistence surface the orchestrator needs.
// *store.PostgresStore satisfies it.
type Store interface {
	ResolveClass(ctx context.Context, name string) (int32, error)
	HasRecentTrack(ctx context.Context, sourceRef, trackID string) (bool, error)
	InsertEvent(ctx context.Context, rec store.EventRecord) (uuid.UUID, error)
	InsertEventNow(ctx context.Context, rec store.EventRecord) (uuid.UUID, error)
}

// Recorder turns inference results into persisted events.
type Recorder struct {
	store Store
	log   zerolog.Logger
}

func NewRecorder(st Store, log zerolog.Logger) *Recorder {
	return &Recorder{store: st, log: log}
}

// SaveResult persists the detections of one inference result according to
// the caller's save parameters. Detections are processed independently:
// duplicates and incomplete detections are skipped without failing their
// siblings, while any storage fault aborts the remaining batch.
func (r *Recorder) SaveResult(ctx context.Context, result *models.DetectResult, params models.SaveParams) error {
	if !params.Save {
		return nil
	}

	lat, lon := 0.0, 0.0
	if params.Latitude != nil {
		lat = *params.Latitude
	}
	if params.Longitude != nil {
		lon = *params.Longitude
	}
	source := params.Source
	if source == "" {
		source = defaultSource
	}
	sourceRef := params.SourceRef
	if sourceRef == "" {
		sourceRef = defaultSourceRef
	}

	for _, det := range result.Detections {
		// Tracked objects are deduplicated within a short trailing window.
		// The check is advisory; racing ingestions may both insert.
		if det.TrackID != "" {
			dup, err := r.store.HasRecentTrack(ctx, sourceRef, det.TrackID)
			if err != nil {
				return err
			}
			if dup {
				r.log.Debug().Str("source_ref", sourceRef).Str("track_id", det.TrackID).
					Msg("skipping duplicate tracked detection")
				continue
			}
		}

		// Incomplete detections carry nothing worth persisting.
		if det.Class == "" || det.Conf == nil {
			continue
		}

		classID, err := r.store.ResolveClass(ctx, det.Class)
		if err != nil {
			return err
		}

		meta, err := json.Marshal(buildMeta(result, params, det.TrackID))
		if err != nil {
			return err
		}

		if _, err := r.store.InsertEventNow(ctx, store.EventRecord{
			ClassID:    classID,
			Confidence: *det.Conf,
			Latitude:   lat,
			Longitude:  lon,
			Source:     source,
			SourceRef:  sourceRef,
			Bbox:       det.Bbox(),
			Meta:       meta,
		}); err != nil {
			return err
		}
	}

	return nil
}

// buildMeta assembles the event metadata bag. Only the enumerated keys
// are carried over, and only when present.
func buildMeta(result *models.DetectResult, params models.SaveParams, trackID string) map[string]any {
	meta := map[string]any{}
	if result.Model != "" {
		meta["model"] = result.Model
	}
	if result.ImgW != nil {
		meta["img_w"] = *result.ImgW
	}
	if result.ImgH != nil {
		meta["img_h"] = *result.ImgH
	}
	if params.Yaw != nil {
		meta["yaw"] = *params.Yaw
	}
	if trackID != "" {
		meta["track_id"] = trackID
	}
	return meta
}

// IngestEvent persists one fully-specified event supplied by the caller.
// The timestamp is validated before anything touches storage.
func (r *Recorder) IngestEvent(ctx context.Context, req models.IngestEventRequest) (uuid.UUID, error) {
	ts, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		return uuid.Nil, ErrBadTimestamp
	}

	// Events always reference a class and carry at least one object.
	if req.ObjectClass == "" || req.ObjectCount < 1 {
		return uuid.Nil, ErrInvalidEvent
	}

	classID, err := r.store.ResolveClass(ctx, req.ObjectClass)
	if err != nil {
		return uuid.Nil, err
	}

	return r.store.InsertEvent(ctx, store.EventRecord{
		Ts:          ts.UTC(),
		ClassID:     classID,
		ObjectCount: req.ObjectCount,
		Confidence:  req.Confidence,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Source:      req.Source,
		SourceRef:   req.SourceRef,
		Bbox:        req.Bbox,
		Meta:        req.Meta,
	})
}

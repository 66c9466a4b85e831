package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fodsense/fod-gateway/internal/models"
	"github.com/fodsense/fod-gateway/internal/store"
)

// fakeStore records every call so tests can assert on the exact rows the
// orchestrator would have written.
type fakeStore struct {
	classes      map[string]int32
	nextClassID  int32
	recentTracks map[string]bool // key: sourceRef + "|" + trackID
	inserted     []store.EventRecord
	insertErr    error
	dedupErr     error
	resolveErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		classes:      map[string]int32{},
		nextClassID:  1,
		recentTracks: map[string]bool{},
	}
}

func (f *fakeStore) ResolveClass(_ context.Context, name string) (int32, error) {
	if f.resolveErr != nil {
		return 0, f.resolveErr
	}
	if id, ok := f.classes[name]; ok {
		return id, nil
	}
	id := f.nextClassID
	f.nextClassID++
	f.classes[name] = id
	return id, nil
}

func (f *fakeStore) HasRecentTrack(_ context.Context, sourceRef, trackID string) (bool, error) {
	if f.dedupErr != nil {
		return false, f.dedupErr
	}
	return f.recentTracks[sourceRef+"|"+trackID], nil
}

func (f *fakeStore) InsertEvent(_ context.Context, rec store.EventRecord) (uuid.UUID, error) {
	if f.insertErr != nil {
		return uuid.Nil, f.insertErr
	}
	f.inserted = append(f.inserted, rec)
	return uuid.New(), nil
}

func (f *fakeStore) InsertEventNow(_ context.Context, rec store.EventRecord) (uuid.UUID, error) {
	return f.InsertEvent(context.Background(), rec)
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func newRecorder(st Store) *Recorder {
	return NewRecorder(st, zerolog.Nop())
}

func singleDetectionResult() *models.DetectResult {
	return &models.DetectResult{
		Detections: []models.Detection{
			{Class: "bolt", Conf: floatPtr(0.91), BboxXYWHNorm: json.RawMessage(`[0.1,0.1,0.2,0.2]`)},
		},
	}
}

func TestSaveResult_SaveFlagFalse_NoInserts(t *testing.T) {
	st := newFakeStore()
	rec := newRecorder(st)

	err := rec.SaveResult(context.Background(), singleDetectionResult(), models.SaveParams{Save: false})

	require.NoError(t, err)
	assert.Empty(t, st.inserted)
}

func TestSaveResult_DefaultsApplied(t *testing.T) {
	st := newFakeStore()
	rec := newRecorder(st)

	err := rec.SaveResult(context.Background(), singleDetectionResult(), models.SaveParams{Save: true})

	require.NoError(t, err)
	require.Len(t, st.inserted, 1)
	ev := st.inserted[0]
	assert.InDelta(t, 0.0, ev.Latitude, 1e-9)
	assert.InDelta(t, 0.0, ev.Longitude, 1e-9)
	assert.Equal(t, "monitoring", ev.Source)
	assert.Equal(t, "live_feed", ev.SourceRef)
}

func TestSaveResult_CallerParamsCarriedThrough(t *testing.T) {
	st := newFakeStore()
	rec := newRecorder(st)

	params := models.SaveParams{
		Save:      true,
		Latitude:  floatPtr(1.0),
		Longitude: floatPtr(2.0),
		Source:    "drone1",
		SourceRef: "flight7",
	}

	err := rec.SaveResult(context.Background(), singleDetectionResult(), params)

	require.NoError(t, err)
	require.Len(t, st.inserted, 1)
	ev := st.inserted[0]
	assert.Equal(t, st.classes["bolt"], ev.ClassID)
	assert.InDelta(t, 0.91, ev.Confidence, 1e-9)
	assert.InDelta(t, 1.0, ev.Latitude, 1e-9)
	assert.InDelta(t, 2.0, ev.Longitude, 1e-9)
	assert.Equal(t, "drone1", ev.Source)
	assert.Equal(t, "flight7", ev.SourceRef)
	assert.JSONEq(t, `[0.1,0.1,0.2,0.2]`, string(ev.Bbox))
}

func TestSaveResult_DuplicateTrackSkipped(t *testing.T) {
	st := newFakeStore()
	st.recentTracks["cam1|t1"] = true
	rec := newRecorder(st)

	result := &models.DetectResult{
		Detections: []models.Detection{
			{Class: "bolt", Conf: floatPtr(0.9), TrackID: "t1"},
			{Class: "bracket", Conf: floatPtr(0.8), TrackID: "t2"},
		},
	}

	err := rec.SaveResult(context.Background(), result, models.SaveParams{Save: true, SourceRef: "cam1"})

	require.NoError(t, err)
	require.Len(t, st.inserted, 1)
	assert.Equal(t, st.classes["bracket"], st.inserted[0].ClassID)
}

func TestSaveResult_IncompleteDetectionSkipped(t *testing.T) {
	st := newFakeStore()
	rec := newRecorder(st)

	result := &models.DetectResult{
		Detections: []models.Detection{
			{Class: "", Conf: nil},
			{Class: "bolt"},       // confidence missing
			{Conf: floatPtr(0.5)}, // class missing
			{Class: "bracket", Conf: floatPtr(0.7)},
		},
	}

	err := rec.SaveResult(context.Background(), result, models.SaveParams{Save: true})

	require.NoError(t, err)
	require.Len(t, st.inserted, 1)
	assert.Equal(t, st.classes["bracket"], st.inserted[0].ClassID)
}

func TestSaveResult_BboxPreference(t *testing.T) {
	st := newFakeStore()
	rec := newRecorder(st)

	result := &models.DetectResult{
		Detections: []models.Detection{
			{Class: "a", Conf: floatPtr(0.9),
				BboxXYWHNorm: json.RawMessage(`[0.1,0.2,0.3,0.4]`),
				BboxXYWH:     json.RawMessage(`[10,20,30,40]`)},
			{Class: "b", Conf: floatPtr(0.9), BboxXYWH: json.RawMessage(`[10,20,30,40]`)},
			{Class: "c", Conf: floatPtr(0.9)},
		},
	}

	err := rec.SaveResult(context.Background(), result, models.SaveParams{Save: true})

	require.NoError(t, err)
	require.Len(t, st.inserted, 3)
	assert.JSONEq(t, `[0.1,0.2,0.3,0.4]`, string(st.inserted[0].Bbox))
	assert.JSONEq(t, `[10,20,30,40]`, string(st.inserted[1].Bbox))
	assert.Nil(t, st.inserted[2].Bbox)
}

func TestSaveResult_MetaAssembly(t *testing.T) {
	st := newFakeStore()
	rec := newRecorder(st)

	result := &models.DetectResult{
		Model: "best.pt",
		ImgW:  intPtr(1920),
		ImgH:  intPtr(1080),
		Detections: []models.Detection{
			{Class: "bolt", Conf: floatPtr(0.9), TrackID: "t9"},
		},
	}

	err := rec.SaveResult(context.Background(), result, models.SaveParams{Save: true, Yaw: floatPtr(12.5)})

	require.NoError(t, err)
	require.Len(t, st.inserted, 1)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(st.inserted[0].Meta, &meta))
	assert.Equal(t, "best.pt", meta["model"])
	assert.EqualValues(t, 1920, meta["img_w"])
	assert.EqualValues(t, 1080, meta["img_h"])
	assert.EqualValues(t, 12.5, meta["yaw"])
	assert.Equal(t, "t9", meta["track_id"])
}

func TestSaveResult_MetaOmitsAbsentKeys(t *testing.T) {
	st := newFakeStore()
	rec := newRecorder(st)

	err := rec.SaveResult(context.Background(), singleDetectionResult(), models.SaveParams{Save: true})

	require.NoError(t, err)
	require.Len(t, st.inserted, 1)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(st.inserted[0].Meta, &meta))
	assert.Empty(t, meta)
}

func TestSaveResult_InsertFailureAbortsBatch(t *testing.T) {
	st := newFakeStore()
	st.insertErr = errors.New("connection reset")
	rec := newRecorder(st)

	result := &models.DetectResult{
		Detections: []models.Detection{
			{Class: "bolt", Conf: floatPtr(0.9)},
			{Class: "bracket", Conf: floatPtr(0.8)},
		},
	}

	err := rec.SaveResult(context.Background(), result, models.SaveParams{Save: true})

	require.Error(t, err)
	assert.Empty(t, st.inserted)
}

func TestSaveResult_EmptyDetections_NoInserts(t *testing.T) {
	st := newFakeStore()
	rec := newRecorder(st)

	err := rec.SaveResult(context.Background(), &models.DetectResult{}, models.SaveParams{Save: true})

	require.NoError(t, err)
	assert.Empty(t, st.inserted)
}

func TestIngestEvent_BadTimestampRejectedBeforeStorage(t *testing.T) {
	st := newFakeStore()
	rec := newRecorder(st)

	_, err := rec.IngestEvent(context.Background(), models.IngestEventRequest{
		Timestamp:   "yesterday",
		ObjectClass: "bolt",
	})

	require.ErrorIs(t, err, ErrBadTimestamp)
	assert.Empty(t, st.classes)
	assert.Empty(t, st.inserted)
}

func TestIngestEvent_RequiredFieldsValidated(t *testing.T) {
	tests := []struct {
		name string
		req  models.IngestEventRequest
	}{
		{"count_omitted", models.IngestEventRequest{
			Timestamp:   "2026-08-29T10:00:00Z",
			ObjectClass: "bolt",
		}},
		{"count_zero", models.IngestEventRequest{
			Timestamp:   "2026-08-29T10:00:00Z",
			ObjectClass: "bolt",
			ObjectCount: 0,
		}},
		{"count_negative", models.IngestEventRequest{
			Timestamp:   "2026-08-29T10:00:00Z",
			ObjectClass: "bolt",
			ObjectCount: -1,
		}},
		{"class_missing", models.IngestEventRequest{
			Timestamp:   "2026-08-29T10:00:00Z",
			ObjectCount: 1,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeStore()
			rec := newRecorder(st)

			_, err := rec.IngestEvent(context.Background(), tt.req)

			require.ErrorIs(t, err, ErrInvalidEvent)
			assert.Empty(t, st.classes)
			assert.Empty(t, st.inserted)
		})
	}
}

func TestIngestEvent_Success(t *testing.T) {
	st := newFakeStore()
	rec := newRecorder(st)

	id, err := rec.IngestEvent(context.Background(), models.IngestEventRequest{
		Timestamp:   "2026-08-29T10:00:00Z",
		ObjectClass: "bolt",
		ObjectCount: 3,
		Confidence:  0.75,
		Latitude:    51.47,
		Longitude:   -0.45,
		Source:      "runway-cam",
		SourceRef:   "inspection-12",
		Bbox:        json.RawMessage(`[1,2,3,4]`),
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	require.Len(t, st.inserted, 1)
	ev := st.inserted[0]
	assert.Equal(t, st.classes["bolt"], ev.ClassID)
	assert.EqualValues(t, 3, ev.ObjectCount)
	assert.Equal(t, "runway-cam", ev.Source)
	assert.Equal(t, "inspection-12", ev.SourceRef)
	assert.Equal(t, "2026-08-29T10:00:00Z", ev.Ts.Format("2006-01-02T15:04:05Z07:00"))
}

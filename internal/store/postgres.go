package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fodsense/fod-gateway/internal/models"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// dedupWindow bounds the trailing window of the advisory track dedup check.
const dedupWindow = "10 seconds"

// EventRecord is a fully-populated event ready for insertion.
// Bbox and Meta are opaque JSON payloads; nil means SQL NULL.
type EventRecord struct {
	Ts          time.Time
	ClassID     int32
	ObjectCount int32
	Confidence  float64
	Latitude    float64
	Longitude   float64
	Source      string
	SourceRef   string
	Bbox        json.RawMessage
	Meta        json.RawMessage
}

// PostgresStore is the durable persistence layer for detection events.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema() error {
	_, err := p.pool.Exec(context.Background(), schemaSQL)
	return err
}

// Ping is used by the DB health endpoint to validate connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// ResolveClass returns the id of the class named name, creating the class
// on first use. The upsert is atomic: concurrent first-time resolutions of
// the same name are settled by the uniqueness constraint and every caller
// gets the same id.
func (p *PostgresStore) ResolveClass(ctx context.Context, name string) (int32, error) {
	var id int32
	err := p.pool.QueryRow(ctx, `
		INSERT INTO fod_classes (name, description)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, name, "Auto-created class for: "+name).Scan(&id)
	return id, err
}

// InsertEvent persists an event with the caller-supplied timestamp and
// returns its generated id. Confidence and coordinates are stored as-is;
// range validation is not this layer's job.
func (p *PostgresStore) InsertEvent(ctx context.Context, rec EventRecord) (uuid.UUID, error) {
	var id uuid.UUID
	err := p.pool.QueryRow(ctx, `
		INSERT INTO events (ts, class_id, object_count, confidence, latitude, longitude, source, source_ref, bbox, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, rec.Ts, rec.ClassID, rec.ObjectCount, rec.Confidence, rec.Latitude, rec.Longitude,
		rec.Source, rec.SourceRef, []byte(rec.Bbox), []byte(rec.Meta)).Scan(&id)
	return id, err
}

// InsertEventNow persists a single-detection event stamped with the
// database clock. Object count is always 1 on this path.
func (p *PostgresStore) InsertEventNow(ctx context.Context, rec EventRecord) (uuid.UUID, error) {
	var id uuid.UUID
	err := p.pool.QueryRow(ctx, `
		INSERT INTO events (ts, class_id, object_count, confidence, latitude, longitude, source, source_ref, bbox, meta)
		VALUES (NOW(), $1, 1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, rec.ClassID, rec.Confidence, rec.Latitude, rec.Longitude,
		rec.Source, rec.SourceRef, []byte(rec.Bbox), []byte(rec.Meta)).Scan(&id)
	return id, err
}

// HasRecentTrack reports whether an event with the same source_ref and
// track id was recorded within the trailing dedup window. Advisory only:
// two concurrent ingestions can both pass before either commits.
func (p *PostgresStore) HasRecentTrack(ctx context.Context, sourceRef, trackID string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM events
			WHERE ts > NOW() - INTERVAL '`+dedupWindow+`'
			  AND source_ref = $1
			  AND meta->>'track_id' = $2
		)
	`, sourceRef, trackID).Scan(&exists)
	return exists, err
}

// GetSummary computes the trailing-24h dashboard aggregate: total object
// count, mean confidence, and the class with the most events. The last
// two are nil when the window is empty.
func (p *PostgresStore) GetSummary(ctx context.Context) (models.DashboardSummary, error) {
	var s models.DashboardSummary

	err := p.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(object_count), 0)::BIGINT, AVG(confidence)
		FROM events
		WHERE ts >= NOW() - INTERVAL '24 hours'
	`).Scan(&s.Total24h, &s.AvgConf)
	if err != nil {
		return s, err
	}

	err = p.pool.QueryRow(ctx, `
		SELECT fc.name FROM events e
		JOIN fod_classes fc ON e.class_id = fc.id
		WHERE e.ts >= NOW() - INTERVAL '24 hours'
		GROUP BY fc.name ORDER BY COUNT(*) DESC LIMIT 1
	`).Scan(&s.TopClass)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return s, err
	}

	return s, nil
}

const recentEventsSQL = `
	SELECT e.id, e.ts, fc.name AS class_name, e.object_count, e.confidence,
	       e.latitude, e.longitude, e.source, e.source_ref
	FROM events e
	JOIN fod_classes fc ON e.class_id = fc.id`

// GetRecent returns at most limit events, newest first, with class names
// joined in. The caller is responsible for clamping limit.
func (p *PostgresStore) GetRecent(ctx context.Context, limit int) ([]models.RecentEvent, error) {
	rows, err := p.pool.Query(ctx, recentEventsSQL+` ORDER BY e.ts DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecent(rows)
}

// QueryEvents behaves like GetRecent filtered to one class name.
// An empty className returns the unfiltered listing.
func (p *PostgresStore) QueryEvents(ctx context.Context, className string, limit int) ([]models.RecentEvent, error) {
	if className == "" {
		return p.GetRecent(ctx, limit)
	}

	rows, err := p.pool.Query(ctx, recentEventsSQL+` WHERE fc.name = $1 ORDER BY e.ts DESC LIMIT $2`, className, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecent(rows)
}

func scanRecent(rows pgx.Rows) ([]models.RecentEvent, error) {
	events := []models.RecentEvent{}
	for rows.Next() {
		var ev models.RecentEvent
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &ev.ClassName, &ev.ObjectCount, &ev.Confidence,
			&ev.Latitude, &ev.Longitude, &ev.Source, &ev.SourceRef); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

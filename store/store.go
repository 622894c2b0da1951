// Package store persists emitted alerts to SQLite and writes snapshot
// images alongside them.
package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"porchcam/alert"
)

// AlertStore is the append-only alert log. One row per emitted alert.
type AlertStore struct {
	db *sql.DB
}

// Record is one persisted alert row.
type Record struct {
	ID           string
	Camera       string
	Kind         string
	Label        string
	Confidence   float64
	TrackID      sql.NullInt64
	DwellSeconds sql.NullFloat64
	SnapshotPath string
	CreatedAt    time.Time
}

// Open opens (creating if needed) the alert database at path.
func Open(path string) (*AlertStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS alerts (
			alert_id       TEXT PRIMARY KEY,
			camera         TEXT NOT NULL,
			kind           TEXT NOT NULL,
			label          TEXT,
			confidence     DOUBLE,
			track_id       BIGINT,
			dwell_seconds  DOUBLE,
			snapshot_path  TEXT,
			created_at     TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS alerts_camera_time ON alerts(camera, created_at);
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating schema")
	}

	return &AlertStore{db: db}, nil
}

// RecordAlert writes one alert. General alerts with several objects store
// the first object's label and confidence; the notification carries the full
// list.
func (s *AlertStore) RecordAlert(camera string, a alert.Alert, snapshotPath string, now time.Time) error {
	var (
		label        string
		confidence   float64
		trackID      sql.NullInt64
		dwellSeconds sql.NullFloat64
	)

	switch a.Kind {
	case alert.KindLinger:
		if a.Linger != nil {
			label = a.Linger.Label
			trackID = sql.NullInt64{Int64: int64(a.Linger.ID), Valid: true}
			dwellSeconds = sql.NullFloat64{Float64: a.Linger.Duration.Seconds(), Valid: true}
		}
	case alert.KindGeneral:
		if len(a.Objects) > 0 {
			label = a.Objects[0].Label
			confidence = a.Objects[0].Confidence
		}
	}

	_, err := s.db.Exec(`
		INSERT INTO alerts (alert_id, camera, kind, label, confidence, track_id, dwell_seconds, snapshot_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), camera, string(a.Kind), label, confidence, trackID, dwellSeconds, snapshotPath, now.UTC())
	return errors.Wrap(err, "inserting alert")
}

// RecentAlerts returns up to limit alerts for a camera, newest first.
func (s *AlertStore) RecentAlerts(camera string, limit int) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT alert_id, camera, kind, label, confidence, track_id, dwell_seconds, snapshot_path, created_at
		FROM alerts WHERE camera = ? ORDER BY created_at DESC LIMIT ?`, camera, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying alerts")
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Camera, &r.Kind, &r.Label, &r.Confidence,
			&r.TrackID, &r.DwellSeconds, &r.SnapshotPath, &r.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning alert row")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *AlertStore) Close() error {
	return s.db.Close()
}

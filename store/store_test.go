package store

import (
	"image"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"porchcam/alert"
	"porchcam/detection"
	"porchcam/tracking"
)

func openTestStore(t *testing.T) *AlertStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "alerts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndQueryLingerAlert(t *testing.T) {
	s := openTestStore(t)
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	a := alert.Alert{
		Kind: alert.KindLinger,
		Linger: &tracking.LingerEvent{
			ID:       4,
			Duration: 6500 * time.Millisecond,
			Box:      image.Rect(100, 100, 200, 200),
			Label:    "person",
		},
	}
	require.NoError(t, s.RecordAlert("porch", a, "/tmp/snap.jpg", now))

	records, err := s.RecentAlerts("porch", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "porch", r.Camera)
	assert.Equal(t, "linger", r.Kind)
	assert.Equal(t, "person", r.Label)
	require.True(t, r.TrackID.Valid)
	assert.EqualValues(t, 4, r.TrackID.Int64)
	require.True(t, r.DwellSeconds.Valid)
	assert.InDelta(t, 6.5, r.DwellSeconds.Float64, 1e-9)
	assert.Equal(t, "/tmp/snap.jpg", r.SnapshotPath)
}

func TestRecordGeneralAlert(t *testing.T) {
	s := openTestStore(t)
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	a := alert.Alert{
		Kind: alert.KindGeneral,
		Objects: []detection.Detection{
			{Box: image.Rect(0, 0, 10, 10), Label: "dog", Confidence: 0.8},
			{Box: image.Rect(20, 20, 30, 30), Label: "cat", Confidence: 0.6},
		},
	}
	require.NoError(t, s.RecordAlert("yard", a, "", now))

	records, err := s.RecentAlerts("yard", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "general", records[0].Kind)
	assert.Equal(t, "dog", records[0].Label)
	assert.InDelta(t, 0.8, records[0].Confidence, 1e-9)
	assert.False(t, records[0].TrackID.Valid)
}

func TestRecentAlertsScopedPerCamera(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	a := alert.Alert{Kind: alert.KindGeneral, Objects: []detection.Detection{{Label: "dog", Confidence: 0.8}}}
	require.NoError(t, s.RecordAlert("porch", a, "", base))
	require.NoError(t, s.RecordAlert("yard", a, "", base.Add(time.Minute)))
	require.NoError(t, s.RecordAlert("porch", a, "", base.Add(2*time.Minute)))

	records, err := s.RecentAlerts("porch", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].CreatedAt.After(records[1].CreatedAt), "newest first")

	records, err = s.RecentAlerts("porch", 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

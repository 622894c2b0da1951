package tracking

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"porchcam/detection"
)

func det(x1, y1, x2, y2 int, label string) detection.Detection {
	return detection.Detection{Box: image.Rect(x1, y1, x2, y2), Label: label, Confidence: 0.9}
}

// detAt builds a 20x20 detection centred on (cx, cy).
func detAt(cx, cy int, label string) detection.Detection {
	return det(cx-10, cy-10, cx+10, cy+10, label)
}

func TestTrackerStationarydetectionKeepsID(t *testing.T) {
	tr := NewTracker(50, 5)
	now := time.Unix(1000, 0)

	for i := 0; i < 10; i++ {
		out := tr.Update([]detection.Detection{detAt(150, 150, "person")}, now.Add(time.Duration(i)*time.Second))
		require.Len(t, out, 1)
		assert.Equal(t, 0, out[0].ID)
		assert.Equal(t, "person", out[0].Label)
		assert.Equal(t, 0, out[0].Missing)
	}
}

func TestTrackerToleratesShortDropout(t *testing.T) {
	tr := NewTracker(50, 3)
	now := time.Unix(1000, 0)

	out := tr.Update([]detection.Detection{detAt(100, 100, "dog")}, now)
	require.Len(t, out, 1)
	require.Equal(t, 0, out[0].ID)

	// Three empty ticks: within tolerance, the track survives with its last
	// known box.
	for i := 1; i <= 3; i++ {
		out = tr.Update(nil, now.Add(time.Duration(i)*time.Second))
		require.Len(t, out, 1, "tick %d", i)
		assert.Equal(t, 0, out[0].ID)
		assert.Equal(t, i, out[0].Missing)
		assert.Equal(t, image.Rect(90, 90, 110, 110), out[0].Box)
	}

	// A nearby detection reclaims the same identity.
	out = tr.Update([]detection.Detection{detAt(110, 100, "dog")}, now.Add(4*time.Second))
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0].ID)
	assert.Equal(t, 0, out[0].Missing)
}

func TestTrackerEvictsAfterMaxMissing(t *testing.T) {
	tr := NewTracker(50, 2)
	now := time.Unix(1000, 0)

	tr.Update([]detection.Detection{detAt(100, 100, "dog")}, now)
	for i := 1; i <= 3; i++ {
		tr.Update(nil, now.Add(time.Duration(i)*time.Second))
	}
	require.Equal(t, 0, tr.Len())

	// Reappearing at the same spot is a brand new identity.
	out := tr.Update([]detection.Detection{detAt(100, 100, "dog")}, now.Add(4*time.Second))
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].ID)
}

func TestTrackerTieBreakLowestID(t *testing.T) {
	// Two tracks equidistant from a single new detection: the lower id wins,
	// reproducibly.
	for run := 0; run < 20; run++ {
		tr := NewTracker(50, 5)
		now := time.Unix(1000, 0)

		tr.Update([]detection.Detection{detAt(100, 100, "a"), detAt(140, 100, "b")}, now)

		out := tr.Update([]detection.Detection{detAt(120, 100, "c")}, now.Add(time.Second))
		require.Len(t, out, 2)
		assert.Equal(t, "c", out[0].Label, "track 0 should take the detection")
		assert.Equal(t, 0, out[0].Missing)
		assert.Equal(t, "b", out[1].Label)
		assert.Equal(t, 1, out[1].Missing)
	}
}

func TestTrackerGreedyLastDetectionWins(t *testing.T) {
	// In greedy mode matching does not reserve tracks, so two
	// detections both near track 0 will both claim it and the later one
	// keeps it. No new track is spawned for the first detection.
	tr := NewTracker(50, 5)
	now := time.Unix(1000, 0)

	tr.Update([]detection.Detection{detAt(100, 100, "a")}, now)

	out := tr.Update([]detection.Detection{detAt(95, 100, "first"), detAt(105, 100, "second")}, now.Add(time.Second))
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0].ID)
	assert.Equal(t, "second", out[0].Label)
}

func TestTrackerOptimalAssignmentSplitsContenders(t *testing.T) {
	// Same contention scenario as above, but the corrected mode matches the
	// closer detection to the track and spawns a new id for the other.
	tr := NewTracker(50, 5, WithOptimalAssignment())
	now := time.Unix(1000, 0)

	tr.Update([]detection.Detection{detAt(100, 100, "a")}, now)

	out := tr.Update([]detection.Detection{detAt(110, 100, "far"), detAt(102, 100, "near")}, now.Add(time.Second))
	require.Len(t, out, 2)
	assert.Equal(t, "near", out[0].Label, "closest detection keeps the existing id")
	assert.Equal(t, 0, out[0].ID)
	assert.Equal(t, "far", out[1].Label)
	assert.Equal(t, 1, out[1].ID)
}

func TestTrackerDistanceThresholdIsStrict(t *testing.T) {
	tr := NewTracker(50, 5)
	now := time.Unix(1000, 0)

	tr.Update([]detection.Detection{detAt(100, 100, "a")}, now)

	// Exactly at the threshold: no match, new track.
	out := tr.Update([]detection.Detection{detAt(150, 100, "b")}, now.Add(time.Second))
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Label)
	assert.Equal(t, "b", out[1].Label)

	// Just inside the threshold: match.
	tr2 := NewTracker(50, 5)
	tr2.Update([]detection.Detection{detAt(100, 100, "a")}, now)
	out = tr2.Update([]detection.Detection{detAt(149, 100, "b")}, now.Add(time.Second))
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0].ID)
	assert.Equal(t, "b", out[0].Label)
}

func TestTrackerLabelFollowsLatestDetection(t *testing.T) {
	// No confidence fusion: box, label and confidence always reflect the
	// most recent matching detection.
	tr := NewTracker(50, 5)
	now := time.Unix(1000, 0)

	tr.Update([]detection.Detection{detAt(100, 100, "cat")}, now)
	out := tr.Update([]detection.Detection{{Box: image.Rect(95, 95, 115, 115), Label: "dog", Confidence: 0.4}}, now.Add(time.Second))
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0].ID)
	assert.Equal(t, "dog", out[0].Label)
	assert.InDelta(t, 0.4, out[0].Confidence, 1e-9)
}

func TestTrackerEmptyInputIsValid(t *testing.T) {
	tr := NewTracker(50, 5)
	out := tr.Update(nil, time.Unix(1000, 0))
	assert.Empty(t, out)
	assert.Equal(t, 0, tr.Len())
}

func TestTrackerLastSeenCarriesTickTime(t *testing.T) {
	tr := NewTracker(50, 5)
	t0 := time.Unix(1000, 0)
	t1 := t0.Add(time.Second)

	tr.Update([]detection.Detection{detAt(100, 100, "a")}, t0)
	out := tr.Update(nil, t1)
	require.Len(t, out, 1)
	assert.Equal(t, t1, out[0].LastSeen)
}

func TestTrackerDegenerateBoxCentroid(t *testing.T) {
	// Boxes are not validated; centroids are computed from the coordinates
	// as given. image.Rect canonicalises a swapped box, so the centroid
	// lands in the same place either way.
	d := det(200, 200, 100, 100, "a")
	assert.Equal(t, image.Pt(150, 150), d.Centroid())
}

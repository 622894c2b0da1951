package tracking

import (
	"image"
	"math"
	"sort"
	"time"

	"porchcam/detection"
)

// TrackedObject is the read-only snapshot of one track handed to the rest of
// the pipeline. The Tracker owns the underlying state; IDs are unique for
// the lifetime of the camera and never reused.
type TrackedObject struct {
	ID         int
	Box        image.Rectangle
	Label      string
	Confidence float64
	LastSeen   time.Time
	Missing    int
}

// Centroid returns the integer centre of the track's current box.
func (t TrackedObject) Centroid() image.Point {
	return image.Pt((t.Box.Min.X+t.Box.Max.X)/2, (t.Box.Min.Y+t.Box.Max.Y)/2)
}

// track is the mutable per-identity state.
type track struct {
	centroid   image.Point
	box        image.Rectangle
	label      string
	confidence float64
	missing    int
}

// Tracker associates per-frame detections with persistent integer identities
// by centroid distance, tolerating short detection dropouts before retiring
// a track. Not safe for concurrent use; each camera owns exactly one Tracker
// and calls it from a single goroutine.
type Tracker struct {
	distThreshold    float64
	maxMissingFrames int
	// optimalAssignment switches from the default first-come-first-served
	// matching to a globally nearest pass in which a track can be claimed by
	// at most one detection per tick. See Update.
	optimalAssignment bool

	nextID int
	tracks map[int]*track
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithOptimalAssignment enables one-detection-per-track matching. The default
// greedy mode lets a later detection overwrite a track already claimed this
// tick (last writer wins), which keeps identity assignment dependent on
// detection input order.
func WithOptimalAssignment() Option {
	return func(t *Tracker) { t.optimalAssignment = true }
}

// NewTracker creates a tracker. distThreshold is the maximum centroid
// distance, in pixels, for a detection to match an existing track.
// maxMissingFrames is how many consecutive unmatched ticks a track survives.
func NewTracker(distThreshold float64, maxMissingFrames int, opts ...Option) *Tracker {
	t := &Tracker{
		distThreshold:    distThreshold,
		maxMissingFrames: maxMissingFrames,
		tracks:           make(map[int]*track),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Update consumes one frame's detections and returns the retained track set.
// It is total over any input: an empty slice simply ages every track one
// tick closer to removal.
func (t *Tracker) Update(detections []detection.Detection, now time.Time) []TrackedObject {
	var updated map[int]*track
	var claimed map[int]bool
	if t.optimalAssignment {
		updated, claimed = t.assignOptimal(detections)
	} else {
		updated, claimed = t.assignGreedy(detections)
	}

	// Age out tracks nobody claimed this tick. Tracks inside the tolerance
	// window are carried forward with their last known box and label.
	for id, tr := range t.tracks {
		if claimed[id] {
			continue
		}
		tr.missing++
		if tr.missing <= t.maxMissingFrames {
			updated[id] = tr
		}
	}

	t.tracks = updated

	out := make([]TrackedObject, 0, len(t.tracks))
	for id, tr := range t.tracks {
		out = append(out, TrackedObject{
			ID:         id,
			Box:        tr.box,
			Label:      tr.label,
			Confidence: tr.confidence,
			LastSeen:   now,
			Missing:    tr.missing,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len reports the number of live tracks.
func (t *Tracker) Len() int {
	return len(t.tracks)
}

// assignGreedy matches detections in input order against the previous tick's
// track positions. Each detection takes the nearest track under the distance
// threshold, ties broken by lowest track ID. A track already claimed this
// tick stays eligible, so two detections can contend for it and the last one
// wins its centroid slot.
func (t *Tracker) assignGreedy(detections []detection.Detection) (map[int]*track, map[int]bool) {
	updated := make(map[int]*track, len(detections))
	claimed := make(map[int]bool, len(detections))

	ids := t.sortedIDs()
	for _, det := range detections {
		c := det.Centroid()
		bestID := -1
		bestDist := t.distThreshold
		for _, id := range ids {
			d := dist(c, t.tracks[id].centroid)
			if d < bestDist {
				bestID, bestDist = id, d
			}
		}

		id := bestID
		if id < 0 {
			id = t.nextID
			t.nextID++
		}
		updated[id] = &track{
			centroid:   c,
			box:        det.Box,
			label:      det.Label,
			confidence: det.Confidence,
		}
		claimed[id] = true
	}
	return updated, claimed
}

// assignOptimal considers every (detection, track) pair under the threshold
// ordered by distance, then track ID, then detection index, and commits each
// detection and each track at most once. Unmatched detections spawn new
// tracks exactly as in greedy mode.
func (t *Tracker) assignOptimal(detections []detection.Detection) (map[int]*track, map[int]bool) {
	type pair struct {
		detIdx  int
		trackID int
		d       float64
	}

	ids := t.sortedIDs()
	var pairs []pair
	for i, det := range detections {
		c := det.Centroid()
		for _, id := range ids {
			if d := dist(c, t.tracks[id].centroid); d < t.distThreshold {
				pairs = append(pairs, pair{detIdx: i, trackID: id, d: d})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].d != pairs[j].d {
			return pairs[i].d < pairs[j].d
		}
		if pairs[i].trackID != pairs[j].trackID {
			return pairs[i].trackID < pairs[j].trackID
		}
		return pairs[i].detIdx < pairs[j].detIdx
	})

	updated := make(map[int]*track, len(detections))
	claimed := make(map[int]bool, len(detections))
	matchedDet := make(map[int]bool, len(detections))
	for _, p := range pairs {
		if matchedDet[p.detIdx] || claimed[p.trackID] {
			continue
		}
		det := detections[p.detIdx]
		updated[p.trackID] = &track{
			centroid:   det.Centroid(),
			box:        det.Box,
			label:      det.Label,
			confidence: det.Confidence,
		}
		claimed[p.trackID] = true
		matchedDet[p.detIdx] = true
	}

	for i, det := range detections {
		if matchedDet[i] {
			continue
		}
		id := t.nextID
		t.nextID++
		updated[id] = &track{
			centroid:   det.Centroid(),
			box:        det.Box,
			label:      det.Label,
			confidence: det.Confidence,
		}
		claimed[id] = true
	}
	return updated, claimed
}

func (t *Tracker) sortedIDs() []int {
	ids := make([]int, 0, len(t.tracks))
	for id := range t.tracks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func dist(a, b image.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

package tracking

import (
	"image"
	"time"

	"github.com/sirupsen/logrus"

	"porchcam/pkg/log"
)

// LingerEvent signals that a track's continuous residency inside the ROI has
// reached the configured threshold. Events are emitted on every tick the
// threshold is met; deduplication is the alert layer's concern.
type LingerEvent struct {
	ID       int
	Duration time.Duration
	Box      image.Rectangle
	Label    string
}

// residency is the per-track ROI bookkeeping. A record exists if and only if
// the track's centroid was inside the ROI on the most recent tick the track
// was observed.
type residency struct {
	enterTime time.Time
}

// LingerDetector watches tracked objects against a fixed region of interest
// and reports the ones that have stayed inside it too long. One instance per
// camera; calls are serialised by the camera's pipeline goroutine.
type LingerDetector struct {
	roi        image.Rectangle
	lingerTime time.Duration

	inROI  map[int]*residency
	logger *logrus.Entry
}

// NewLingerDetector creates a detector for the given ROI. The ROI bounds are
// inclusive on all edges.
func NewLingerDetector(roi image.Rectangle, lingerTime time.Duration) *LingerDetector {
	return &LingerDetector{
		roi:        roi,
		lingerTime: lingerTime,
		inROI:      make(map[int]*residency),
		logger:     log.WithComponent("linger"),
	}
}

// Update advances the per-track residency state machine one tick and returns
// the events due this tick. Tracks absent from the input are treated as
// outside the ROI and their residency records are dropped, so a track that
// disappears and later re-enters starts a fresh episode.
func (l *LingerDetector) Update(tracked []TrackedObject, now time.Time) []LingerEvent {
	var events []LingerEvent
	seen := make(map[int]bool, len(tracked))

	for _, obj := range tracked {
		seen[obj.ID] = true
		c := obj.Centroid()
		if !l.contains(c) {
			if _, ok := l.inROI[obj.ID]; ok {
				l.logger.Debugf("track %d left the ROI", obj.ID)
				delete(l.inROI, obj.ID)
			}
			continue
		}

		rec, ok := l.inROI[obj.ID]
		if !ok {
			l.inROI[obj.ID] = &residency{enterTime: now}
			l.logger.Debugf("track %d entered the ROI", obj.ID)
			continue
		}

		if duration := now.Sub(rec.enterTime); duration >= l.lingerTime {
			events = append(events, LingerEvent{
				ID:       obj.ID,
				Duration: duration,
				Box:      obj.Box,
				Label:    obj.Label,
			})
		}
	}

	// Tracks that vanished without an explicit exit. Their ids never come
	// back, so the records would otherwise leak.
	for id := range l.inROI {
		if !seen[id] {
			delete(l.inROI, id)
		}
	}

	return events
}

// contains tests the centroid against the ROI with inclusive edges, unlike
// image.Rectangle which excludes Max.
func (l *LingerDetector) contains(p image.Point) bool {
	return p.X >= l.roi.Min.X && p.X <= l.roi.Max.X &&
		p.Y >= l.roi.Min.Y && p.Y <= l.roi.Max.Y
}

// Package alert turns per-tick detections and linger events into the final
// rate-limited alert set handed to notification and persistence.
package alert

import (
	"time"

	"github.com/sirupsen/logrus"

	"porchcam/detection"
	"porchcam/pkg/log"
	"porchcam/tracking"
)

// Kind discriminates the alert variants.
type Kind string

const (
	// KindGeneral covers "new objects seen", rate-limited by cooldown.
	KindGeneral Kind = "general"
	// KindLinger covers a track overstaying inside the ROI.
	KindLinger Kind = "linger"
)

// Alert is emitted once and never stored by the decider. Exactly one of
// Objects (general) or Linger (linger) is populated, per Kind.
type Alert struct {
	Kind    Kind
	Objects []detection.Detection
	Linger  *tracking.LingerEvent
}

// Decider applies the cooldown and deduplication rules. Its persistent state,
// all scoped to one camera, is the timestamp of the last general alert and the
// set of tracks whose current dwell episode has already been alerted.
type Decider struct {
	generalCooldown time.Duration
	lastGeneral     time.Time
	lingerAlerted   map[int]bool
	logger          *logrus.Entry
}

// NewDecider creates a decider with the given cooldown between general
// alerts.
func NewDecider(generalCooldown time.Duration) *Decider {
	return &Decider{
		generalCooldown: generalCooldown,
		lingerAlerted:   make(map[int]bool),
		logger:          log.WithComponent("alert"),
	}
}

// Evaluate produces this tick's alerts. Linger events arrive on every tick
// the track remains over threshold, but each dwell episode alerts at most
// once: a track is re-armed only after its id stops appearing in the events,
// which the linger detector guarantees happens when the track leaves the ROI
// or is retired. A general alert fires when candidates are present and the
// cooldown since the previous general alert has elapsed.
func (d *Decider) Evaluate(general []detection.Detection, linger []tracking.LingerEvent, now time.Time) []Alert {
	var alerts []Alert

	current := make(map[int]bool, len(linger))
	for i := range linger {
		ev := linger[i]
		current[ev.ID] = true
		if d.lingerAlerted[ev.ID] {
			continue
		}
		d.lingerAlerted[ev.ID] = true
		d.logger.Infof("linger alert for track %d after %s", ev.ID, ev.Duration)
		alerts = append(alerts, Alert{Kind: KindLinger, Linger: &ev})
	}
	for id := range d.lingerAlerted {
		if !current[id] {
			delete(d.lingerAlerted, id)
		}
	}

	if len(general) > 0 && (d.lastGeneral.IsZero() || now.Sub(d.lastGeneral) >= d.generalCooldown) {
		d.logger.Infof("general alert: %d objects", len(general))
		alerts = append(alerts, Alert{Kind: KindGeneral, Objects: general})
		d.lastGeneral = now
	}

	return alerts
}

// SuppressCovered filters general-alert candidates whose label duplicates a
// person already reported by a linger event this tick. The pipeline applies
// this before calling Evaluate; the decider itself never filters.
func SuppressCovered(candidates []detection.Detection, linger []tracking.LingerEvent) []detection.Detection {
	if len(linger) == 0 {
		return candidates
	}
	out := make([]detection.Detection, 0, len(candidates))
	for _, c := range candidates {
		if c.Label == "person" {
			continue
		}
		out = append(out, c)
	}
	return out
}

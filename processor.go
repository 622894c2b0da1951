package main

import (
	"context"
	"image"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"porchcam/alert"
	"porchcam/camera"
	"porchcam/config"
	"porchcam/detection"
	"porchcam/motion"
	"porchcam/notify"
	"porchcam/overlay"
	"porchcam/pkg/log"
	"porchcam/store"
	"porchcam/tracking"
)

const (
	cameraReconnectInterval = 5 * time.Second
	noFrameBackoff          = 100 * time.Millisecond
)

// Processor runs the full pipeline for one camera: frame capture, motion
// gate, detection, tracking, dwell alerting, rendering and alert delivery.
// All of its state is camera-local and touched only by its own goroutine;
// one tick always runs to completion before the stop signal is honoured.
type Processor struct {
	cfg config.CameraConfig

	camera     *camera.Manager
	motion     *motion.Detector
	inferencer detection.Inferencer
	tracker    *tracking.Tracker
	linger     *tracking.LingerDetector // nil when no ROI is configured
	decider    *alert.Decider
	renderer   *overlay.Renderer
	notifier   *notify.Manager
	alerts     *store.AlertStore

	// lastDetections is replayed on ticks where the motion gate declines a
	// detection run, so tracks survive still frames.
	lastDetections []detection.Detection

	logger *logrus.Entry
}

// NewProcessor wires up the per-camera pipeline. cam may be nil in tests
// that drive decide directly.
func NewProcessor(
	cfg config.CameraConfig,
	cam *camera.Manager,
	inferencer detection.Inferencer,
	notifier *notify.Manager,
	alerts *store.AlertStore,
) *Processor {
	p := &Processor{
		cfg:        cfg,
		camera:     cam,
		inferencer: inferencer,
		notifier:   notifier,
		alerts:     alerts,
		decider:    alert.NewDecider(cfg.AlertCooldown()),
		logger:     log.WithCamera("processor", cfg.Name),
	}

	var trackerOpts []tracking.Option
	if cfg.Linger.OptimalAssignment {
		trackerOpts = append(trackerOpts, tracking.WithOptimalAssignment())
	}
	p.tracker = tracking.NewTracker(cfg.Linger.TrackingDistThreshold, cfg.Linger.MaxMissingFrames, trackerOpts...)

	if roi, ok := cfg.Linger.Rect(); ok && cfg.Linger.Enabled {
		p.linger = tracking.NewLingerDetector(roi, cfg.Linger.LingerTime())
		p.renderer = overlay.NewRenderer(&roi)
	} else {
		p.renderer = overlay.NewRenderer(nil)
	}

	if cfg.Motion.Enabled {
		kernel := blurKernel(cfg.Motion.BlurKernel)
		p.motion = motion.NewDetector(cfg.Motion.Threshold, kernel, cfg.Motion.MinArea, cfg.Motion.SkipFrames)
	}

	return p
}

// Run is the camera's tick loop. Cancellation is checked only between
// ticks.
func (p *Processor) Run(ctx context.Context) {
	defer p.cleanup()

	frame := gocv.NewMat()
	defer frame.Close()

	p.logger.Info("pipeline started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping")
			return
		default:
		}

		if !p.camera.ReadFrame(&frame) {
			time.Sleep(noFrameBackoff)
			continue
		}

		p.tick(&frame, time.Now())
	}
}

// tick runs the three core stages plus IO for one frame.
func (p *Processor) tick(frame *gocv.Mat, now time.Time) {
	runDetection := p.motion == nil || p.motion.Detect(*frame)
	if runDetection {
		dets, err := p.inferencer.Detect(*frame)
		if err != nil {
			p.logger.WithError(err).Error("detection failed, reusing previous detections")
		} else {
			p.lastDetections = dets
		}
	}

	tracked, events, alerts := p.decide(p.lastDetections, now)

	p.renderer.Render(frame, tracked, events)

	for _, a := range alerts {
		p.deliver(a, *frame, now)
	}
}

// decide is the stateful core of the tick: detections in, alert set out. It
// is free of any IO so tests can drive it with a fixed clock.
func (p *Processor) decide(dets []detection.Detection, now time.Time) ([]tracking.TrackedObject, []tracking.LingerEvent, []alert.Alert) {
	tracked := p.tracker.Update(dets, now)

	var events []tracking.LingerEvent
	if p.linger != nil {
		events = p.linger.Update(tracked, now)
	}

	general := alert.SuppressCovered(dets, events)
	alerts := p.decider.Evaluate(general, events, now)
	return tracked, events, alerts
}

// deliver persists and notifies one alert. Failures are logged, never
// propagated: alerting must not stall the tick loop.
func (p *Processor) deliver(a alert.Alert, frame gocv.Mat, now time.Time) {
	snapshotPath, err := store.SaveSnapshot(p.cfg.SaveDirectory, p.cfg.Name, a.Kind, frame, now)
	if err != nil {
		p.logger.WithError(err).Error("snapshot write failed")
	}

	if p.alerts != nil {
		if err := p.alerts.RecordAlert(p.cfg.Name, a, snapshotPath, now); err != nil {
			p.logger.WithError(err).Error("alert persistence failed")
		}
	}

	var jpeg []byte
	if buf, err := gocv.IMEncode(".jpg", frame); err == nil {
		jpeg = buf.GetBytes()
		defer buf.Close()
	}
	p.notifier.Send(p.cfg.Name, a, jpeg)
}

func (p *Processor) cleanup() {
	if p.camera != nil {
		p.camera.Close()
	}
	if p.motion != nil {
		p.motion.Close()
	}
}

func blurKernel(k []int) image.Point {
	if len(k) == 2 {
		return image.Pt(k[0], k[1])
	}
	return image.Pt(21, 21)
}

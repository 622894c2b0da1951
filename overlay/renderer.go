// Package overlay draws the tracking state onto frames for display and
// alert snapshots.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"porchcam/tracking"
)

var (
	roiColor    = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	trackColor  = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	lingerColor = color.RGBA{R: 0, G: 0, B: 255, A: 0}
)

// Renderer draws the ROI, tracked boxes with ids, and linger timers. It is
// stateless apart from the configured ROI; a nil ROI draws no region.
type Renderer struct {
	roi *image.Rectangle
}

// NewRenderer creates a renderer. roi may be nil when dwell alerting is
// disabled for the camera.
func NewRenderer(roi *image.Rectangle) *Renderer {
	return &Renderer{roi: roi}
}

// Render annotates the frame in place with the current tick's state.
func (r *Renderer) Render(frame *gocv.Mat, tracked []tracking.TrackedObject, events []tracking.LingerEvent) {
	if r.roi != nil {
		gocv.Rectangle(frame, *r.roi, roiColor, 2)
	}

	for _, obj := range tracked {
		gocv.Rectangle(frame, obj.Box, trackColor, 2)
		gocv.PutText(frame,
			fmt.Sprintf("ID%d %s", obj.ID, obj.Label),
			image.Pt(obj.Box.Min.X, obj.Box.Min.Y-10),
			gocv.FontHersheySimplex, 0.5, trackColor, 1)
	}

	for _, ev := range events {
		gocv.PutText(frame,
			fmt.Sprintf("Linger %.1fs", ev.Duration.Seconds()),
			image.Pt(ev.Box.Min.X, ev.Box.Max.Y+15),
			gocv.FontHersheySimplex, 0.5, lingerColor, 1)
	}
}

// Package motion implements the cheap frame-differencing gate that decides
// whether full detection should run on a frame.
package motion

import (
	"image"

	"gocv.io/x/gocv"
)

// Detector compares each frame against the previous one in blurred
// grayscale. Movement counts when any contour of the thresholded difference
// covers at least minArea pixels. The first frame never trips the gate.
type Detector struct {
	threshold  int
	blurKernel image.Point
	minArea    float64
	skipFrames int

	prevGray   gocv.Mat
	hasPrev    bool
	frameCount int
}

// NewDetector creates a motion gate. skipFrames > 1 makes the gate examine
// only every Nth frame, reporting no motion in between.
func NewDetector(threshold int, blurKernel image.Point, minArea int, skipFrames int) *Detector {
	return &Detector{
		threshold:  threshold,
		blurKernel: blurKernel,
		minArea:    float64(minArea),
		skipFrames: skipFrames,
		prevGray:   gocv.NewMat(),
	}
}

// Detect reports whether the frame shows significant movement relative to
// the previous examined frame.
func (d *Detector) Detect(frame gocv.Mat) bool {
	d.frameCount++
	if d.skipFrames > 1 && d.frameCount%d.skipFrames != 0 {
		return false
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	gocv.GaussianBlur(gray, &gray, d.blurKernel, 0, 0, gocv.BorderDefault)

	if !d.hasPrev {
		gray.CopyTo(&d.prevGray)
		d.hasPrev = true
		return false
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(d.prevGray, gray, &diff)
	gocv.Threshold(diff, &diff, float32(d.threshold), 255, gocv.ThresholdBinary)
	gray.CopyTo(&d.prevGray)

	contours := gocv.FindContours(diff, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()
	for i := 0; i < contours.Size(); i++ {
		if gocv.ContourArea(contours.At(i)) >= d.minArea {
			return true
		}
	}
	return false
}

// Close releases the retained previous frame.
func (d *Detector) Close() {
	d.prevGray.Close()
}

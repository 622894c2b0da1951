package detection

import (
	"image"

	"gocv.io/x/gocv"
)

// Detection is a single detector hit on one frame. Instances are ephemeral:
// they are produced fresh on every detector run and owned by the caller for
// the duration of one pipeline tick.
type Detection struct {
	Box        image.Rectangle
	Label      string
	Confidence float64
}

// Centroid returns the integer centre of the detection box.
func (d Detection) Centroid() image.Point {
	return image.Pt((d.Box.Min.X+d.Box.Max.X)/2, (d.Box.Min.Y+d.Box.Max.Y)/2)
}

// Inferencer is the model-facing contract. The pipeline only ever sees
// detections; which network (or fake) produced them is an implementation
// detail behind this interface.
type Inferencer interface {
	Detect(frame gocv.Mat) ([]Detection, error)
	Close() error
}

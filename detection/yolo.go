package detection

import (
	"image"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"porchcam/pkg/log"
)

// yoloInputSize is the square input resolution the network was exported with.
const yoloInputSize = 416

// YOLO runs a YOLO-family network through the OpenCV DNN module on the CPU
// backend and filters the raw output down to the configured classes and
// confidence floor.
type YOLO struct {
	mu sync.Mutex

	net        gocv.Net
	classNames []string

	// allowed is the class whitelist; empty means accept everything.
	allowed       map[string]struct{}
	minConfidence float64
}

// NewYOLO loads the network and class names from disk.
func NewYOLO(weightsPath, configPath, namesPath string, classes []string, minConfidence float64) (*YOLO, error) {
	net := gocv.ReadNet(weightsPath, configPath)
	if net.Empty() {
		return nil, errors.Errorf("failed to load network from %s and %s", weightsPath, configPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	namesBytes, err := os.ReadFile(namesPath)
	if err != nil {
		net.Close()
		return nil, errors.Wrap(err, "could not read class names")
	}

	y := &YOLO{
		net:           net,
		allowed:       make(map[string]struct{}, len(classes)),
		minConfidence: minConfidence,
	}
	for _, name := range strings.Split(string(namesBytes), "\n") {
		name = strings.TrimSpace(name)
		if name != "" {
			y.classNames = append(y.classNames, name)
		}
	}
	for _, c := range classes {
		y.allowed[c] = struct{}{}
	}

	log.WithComponent("detection").Infof("loaded %d classes from %s", len(y.classNames), namesPath)
	return y, nil
}

// Detect runs one forward pass and decodes the output rows. Rows are
// [cx, cy, w, h, objectness, class scores...] in coordinates normalised to
// the network input.
func (y *YOLO) Detect(frame gocv.Mat) ([]Detection, error) {
	y.mu.Lock()
	defer y.mu.Unlock()

	if frame.Empty() {
		return nil, nil
	}

	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(yoloInputSize, yoloInputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	y.net.SetInput(blob, "")
	output := y.net.Forward("")
	defer output.Close()

	frameW := float32(frame.Cols())
	frameH := float32(frame.Rows())

	var dets []Detection
	for i := 0; i < output.Rows(); i++ {
		row := output.RowRange(i, i+1)
		data := row.Clone()
		scores := data.ColRange(5, data.Cols())
		_, confidence, _, maxLoc := gocv.MinMaxLoc(scores)

		if label, ok := y.accepts(maxLoc.X, float64(confidence)); ok {
			centerX := data.GetFloatAt(0, 0) * frameW
			centerY := data.GetFloatAt(0, 1) * frameH
			width := data.GetFloatAt(0, 2) * frameW
			height := data.GetFloatAt(0, 3) * frameH

			left := int(centerX - width/2)
			top := int(centerY - height/2)
			dets = append(dets, Detection{
				Box:        image.Rect(left, top, left+int(width), top+int(height)),
				Label:      label,
				Confidence: float64(confidence),
			})
		}

		scores.Close()
		data.Close()
		row.Close()
	}

	return dets, nil
}

// accepts applies the confidence floor and class whitelist to one decoded
// row, returning the class label when the detection is kept.
func (y *YOLO) accepts(classID int, confidence float64) (string, bool) {
	if confidence < y.minConfidence || classID >= len(y.classNames) {
		return "", false
	}
	label := y.classNames[classID]
	if _, ok := y.allowed[label]; !ok && len(y.allowed) > 0 {
		return "", false
	}
	return label, true
}

// Close releases the network.
func (y *YOLO) Close() error {
	y.net.Close()
	return nil
}

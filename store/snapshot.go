package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"porchcam/alert"
)

// SaveSnapshot writes the annotated frame as a JPEG under dir and returns
// the file path. Filenames carry the camera, alert kind, timestamp and a
// short random suffix so alerts in the same second never collide.
func SaveSnapshot(dir, camera string, kind alert.Kind, frame gocv.Mat, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating %s", dir)
	}

	name := fmt.Sprintf("%s_%s_%s_%s.jpg",
		camera, kind, now.Format("20060102_150405"), uuid.NewString()[:8])
	path := filepath.Join(dir, name)

	if ok := gocv.IMWrite(path, frame); !ok {
		return "", errors.Errorf("writing snapshot %s", path)
	}
	return path, nil
}

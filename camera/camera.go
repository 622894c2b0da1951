// Package camera wraps a gocv video capture with reconnect handling so the
// pipeline only ever deals in single-frame reads.
package camera

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"porchcam/pkg/log"
)

// Manager owns the capture for one stream. ReadFrame returns false on any
// read failure and the manager reconnects in the background after the
// configured interval.
type Manager struct {
	url               string
	reconnectInterval time.Duration

	cap         *gocv.VideoCapture
	lastAttempt time.Time
	logger      *logrus.Entry
}

// NewManager opens the stream. A failed initial connection is not fatal; the
// manager keeps retrying from ReadFrame.
func NewManager(name, url string, reconnectInterval time.Duration) *Manager {
	m := &Manager{
		url:               url,
		reconnectInterval: reconnectInterval,
		logger:            log.WithCamera("camera", name),
	}
	if err := m.connect(); err != nil {
		m.logger.WithError(err).Warn("initial connection failed, will retry")
	}
	return m
}

func (m *Manager) connect() error {
	m.lastAttempt = time.Now()
	if m.cap != nil {
		m.cap.Close()
		m.cap = nil
	}
	m.logger.Infof("connecting to %s", m.url)
	vc, err := gocv.OpenVideoCapture(m.url)
	if err != nil {
		return errors.Wrapf(err, "opening %s", m.url)
	}
	if !vc.IsOpened() {
		vc.Close()
		return errors.Errorf("stream %s did not open", m.url)
	}
	m.cap = vc
	return nil
}

// ReadFrame reads one BGR frame into dst. It returns false when no frame is
// available this tick; the caller should back off briefly and try again.
func (m *Manager) ReadFrame(dst *gocv.Mat) bool {
	if m.cap == nil {
		if time.Since(m.lastAttempt) >= m.reconnectInterval {
			if err := m.connect(); err != nil {
				m.logger.WithError(err).Warn("reconnect failed")
			}
		}
		return false
	}

	if ok := m.cap.Read(dst); !ok || dst.Empty() {
		m.logger.Warn("frame read failed, dropping connection")
		m.cap.Close()
		m.cap = nil
		return false
	}
	return true
}

// Close releases the capture.
func (m *Manager) Close() {
	if m.cap != nil {
		m.cap.Close()
		m.cap = nil
	}
}

// Package notify delivers alerts to the configured channels. Delivery is
// fire-and-forget from the pipeline's perspective: failures are logged and
// never propagate back into the tick loop.
package notify

import (
	"fmt"
	"strings"

	"porchcam/alert"
	"porchcam/pkg/log"
)

// Handler delivers one alert for one camera. snapshot is the annotated frame
// encoded as JPEG, or nil when encoding failed upstream.
type Handler interface {
	SendAlert(cameraName string, a alert.Alert, snapshot []byte) error
}

// NoOp is the fallback handler when no delivery channel is configured: the
// alert is logged and dropped, so the pipeline always has a handler to call.
type NoOp struct{}

// SendAlert implements Handler.
func (NoOp) SendAlert(cameraName string, a alert.Alert, snapshot []byte) error {
	log.WithCamera("notify", cameraName).Infof("alert (no delivery channel): %s", Summary(a))
	return nil
}

// Manager fans an alert out to every configured handler. With nothing
// enabled it degrades to a no-op.
type Manager struct {
	handlers []Handler
}

// NewManager builds a manager over the given handlers.
func NewManager(handlers ...Handler) *Manager {
	return &Manager{handlers: handlers}
}

// Send delivers the alert through all handlers, logging per-handler errors.
func (m *Manager) Send(cameraName string, a alert.Alert, snapshot []byte) {
	for _, h := range m.handlers {
		if err := h.SendAlert(cameraName, a, snapshot); err != nil {
			log.WithCamera("notify", cameraName).WithError(err).Error("alert delivery failed")
		}
	}
}

// Summary renders the alert as a short human-readable line used in message
// bodies and subjects.
func Summary(a alert.Alert) string {
	switch a.Kind {
	case alert.KindLinger:
		if a.Linger != nil {
			return fmt.Sprintf("%s lingering for %.1fs (track %d)",
				a.Linger.Label, a.Linger.Duration.Seconds(), a.Linger.ID)
		}
		return "linger"
	case alert.KindGeneral:
		parts := make([]string, 0, len(a.Objects))
		for _, d := range a.Objects {
			parts = append(parts, fmt.Sprintf("%s (%.2f)", d.Label, d.Confidence))
		}
		return "detected: " + strings.Join(parts, ", ")
	}
	return string(a.Kind)
}

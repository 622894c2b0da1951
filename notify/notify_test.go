package notify

import (
	"image"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"porchcam/alert"
	"porchcam/config"
	"porchcam/detection"
	"porchcam/tracking"
)

func lingerAlert() alert.Alert {
	return alert.Alert{
		Kind: alert.KindLinger,
		Linger: &tracking.LingerEvent{
			ID:       3,
			Duration: 7 * time.Second,
			Box:      image.Rect(10, 10, 30, 30),
			Label:    "person",
		},
	}
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "person lingering for 7.0s (track 3)", Summary(lingerAlert()))

	general := alert.Alert{
		Kind: alert.KindGeneral,
		Objects: []detection.Detection{
			{Label: "dog", Confidence: 0.75},
			{Label: "cat", Confidence: 0.5},
		},
	}
	assert.Equal(t, "detected: dog (0.75), cat (0.50)", Summary(general))
}

func TestEmailHandlerDisabledIsNoop(t *testing.T) {
	h := NewEmailHandler(config.EmailConfig{Enabled: false})
	h.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called when disabled")
		return nil
	}
	require.NoError(t, h.SendAlert("porch", lingerAlert(), nil))
}

func TestEmailHandlerBuildsMultipartMessage(t *testing.T) {
	var gotAddr string
	var gotMsg []byte

	h := NewEmailHandler(config.EmailConfig{
		Enabled:        true,
		SMTPServer:     "smtp.example.com",
		SMTPPort:       587,
		SenderEmail:    "cam@example.com",
		RecipientEmail: "me@example.com",
	})
	h.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = msg
		assert.Equal(t, "cam@example.com", from)
		assert.Equal(t, []string{"me@example.com"}, to)
		return nil
	}

	require.NoError(t, h.SendAlert("porch", lingerAlert(), []byte{0xff, 0xd8, 0xff}))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Contains(t, string(gotMsg), "Subject: porch linger alert")
	assert.Contains(t, string(gotMsg), "Content-Type: multipart/mixed")
	assert.Contains(t, string(gotMsg), "image/jpeg")
	assert.Contains(t, string(gotMsg), "person lingering for 7.0s")
}

func TestNoOpHandler(t *testing.T) {
	require.NoError(t, NoOp{}.SendAlert("porch", lingerAlert(), nil))
}

type captureHandler struct {
	calls int
	fail  bool
}

func (c *captureHandler) SendAlert(string, alert.Alert, []byte) error {
	c.calls++
	if c.fail {
		return assert.AnError
	}
	return nil
}

func TestManagerFansOutAndSwallowsErrors(t *testing.T) {
	failing := &captureHandler{fail: true}
	ok := &captureHandler{}

	m := NewManager(failing, ok)
	m.Send("porch", lingerAlert(), nil)

	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls, "a failing handler does not stop the fan-out")
}

package notify

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"

	"github.com/pkg/errors"

	"porchcam/alert"
	"porchcam/config"
)

// EmailHandler sends alert mail over SMTP with the snapshot attached.
type EmailHandler struct {
	cfg config.EmailConfig

	// send is swappable in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailHandler creates a handler from the email configuration block.
func NewEmailHandler(cfg config.EmailConfig) *EmailHandler {
	return &EmailHandler{cfg: cfg, send: smtp.SendMail}
}

// SendAlert builds a multipart message (text body plus optional JPEG
// attachment) and submits it.
func (h *EmailHandler) SendAlert(cameraName string, a alert.Alert, snapshot []byte) error {
	if !h.cfg.Enabled {
		return nil
	}

	subject := fmt.Sprintf("%s %s alert", cameraName, a.Kind)
	body := fmt.Sprintf("Camera: %s\r\nAlert: %s\r\n", cameraName, Summary(a))

	msg, err := buildMessage(h.cfg.SenderEmail, h.cfg.RecipientEmail, subject, body, snapshot,
		fmt.Sprintf("%s_%s.jpg", cameraName, a.Kind))
	if err != nil {
		return errors.Wrap(err, "building mail")
	}

	addr := fmt.Sprintf("%s:%d", h.cfg.SMTPServer, h.cfg.SMTPPort)
	auth := smtp.PlainAuth("", h.cfg.SenderEmail, h.cfg.SenderPassword, h.cfg.SMTPServer)
	if err := h.send(addr, auth, h.cfg.SenderEmail, []string{h.cfg.RecipientEmail}, msg); err != nil {
		return errors.Wrapf(err, "sending via %s", addr)
	}
	return nil
}

func buildMessage(from, to, subject, body string, attachment []byte, filename string) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", w.Boundary())

	part, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := part.Write([]byte(body)); err != nil {
		return nil, err
	}

	if len(attachment) > 0 {
		part, err = w.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {"image/jpeg"},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", filename)},
		})
		if err != nil {
			return nil, err
		}
		enc := base64.NewEncoder(base64.StdEncoding, part)
		if _, err := enc.Write(attachment); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

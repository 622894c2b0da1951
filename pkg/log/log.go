package log

import (
	"os"
	"sync"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

// Fields is re-exported so callers don't need to import logrus directly.
type Fields = logrus.Fields

// NewLogger returns the process-wide logger, initialising it on first call.
func NewLogger() *logrus.Logger {
	once.Do(func() {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
		logger.SetOutput(os.Stderr)
		logger.SetFormatter(&formatter.Formatter{
			NoColors:        false,
			TimestampFormat: "15:04:05.000",
			HideKeys:        false,
		})
	})
	return logger
}

// SetDebug switches the logger to debug level.
func SetDebug() {
	NewLogger().SetLevel(logrus.DebugLevel)
}

// WithComponent returns an entry tagged with the component name. Every
// package logs through one of these so output stays greppable per stage.
func WithComponent(name string) *logrus.Entry {
	return NewLogger().WithField("component", name)
}

// WithCamera tags an entry with both component and camera name for the
// per-camera pipeline loops.
func WithCamera(component, camera string) *logrus.Entry {
	return NewLogger().WithFields(Fields{"component": component, "camera": camera})
}

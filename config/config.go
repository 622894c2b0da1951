// Package config loads and validates the YAML configuration file.
package config

import (
	"image"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// MotionConfig tunes the frame-differencing gate that decides whether full
// detection runs on a frame.
type MotionConfig struct {
	Enabled    bool  `yaml:"enabled"`
	MinArea    int   `yaml:"min_area"`
	Threshold  int   `yaml:"threshold"`
	BlurKernel []int `yaml:"blur_kernel"`
	SkipFrames int   `yaml:"skip_frames"`
}

// LingerConfig configures dwell-time alerting for one camera. A nil ROI
// disables the linger detector entirely.
type LingerConfig struct {
	Enabled               bool    `yaml:"enabled"`
	ROI                   []int   `yaml:"roi"`
	LingerTimeSeconds     float64 `yaml:"linger_time_seconds"`
	TrackingDistThreshold float64 `yaml:"tracking_distance_threshold"`
	MaxMissingFrames      int     `yaml:"max_missing_frames"`
	OptimalAssignment     bool    `yaml:"optimal_assignment"`
}

// LingerTime returns the dwell threshold as a duration.
func (l LingerConfig) LingerTime() time.Duration {
	return time.Duration(l.LingerTimeSeconds * float64(time.Second))
}

// Rect returns the ROI as a rectangle, or false when no ROI is configured.
func (l LingerConfig) Rect() (image.Rectangle, bool) {
	if len(l.ROI) != 4 {
		return image.Rectangle{}, false
	}
	return image.Rect(l.ROI[0], l.ROI[1], l.ROI[2], l.ROI[3]), true
}

// CameraConfig is the full per-camera configuration.
type CameraConfig struct {
	Name                 string       `yaml:"name"`
	URL                  string       `yaml:"url"`
	ConfidenceThreshold  float64      `yaml:"confidence_threshold"`
	ClassesToDetect      []string     `yaml:"classes_to_detect"`
	Motion               MotionConfig `yaml:"motion_detection"`
	Linger               LingerConfig `yaml:"linger_detection"`
	AlertCooldownSeconds float64      `yaml:"alert_cooldown_seconds"`
	SaveDirectory        string       `yaml:"save_directory"`
}

// AlertCooldown returns the general-alert cooldown as a duration.
func (c CameraConfig) AlertCooldown() time.Duration {
	return time.Duration(c.AlertCooldownSeconds * float64(time.Second))
}

// DetectionConfig holds the model files shared by all cameras.
type DetectionConfig struct {
	WeightsPath         string   `yaml:"weights_path"`
	ConfigPath          string   `yaml:"config_path"`
	NamesPath           string   `yaml:"names_path"`
	ClassesToDetect     []string `yaml:"classes_to_detect"`
	ConfidenceThreshold float64  `yaml:"confidence_threshold"`
}

// EmailConfig configures the SMTP notification handler.
type EmailConfig struct {
	Enabled        bool   `yaml:"enabled"`
	SMTPServer     string `yaml:"smtp_server"`
	SMTPPort       int    `yaml:"smtp_port"`
	SenderEmail    string `yaml:"sender_email"`
	SenderPassword string `yaml:"sender_password"`
	RecipientEmail string `yaml:"recipient_email"`
}

// AlertingConfig holds camera-independent alerting defaults.
type AlertingConfig struct {
	CooldownSeconds float64     `yaml:"cooldown_seconds"`
	SaveDirectory   string      `yaml:"save_directory"`
	DatabasePath    string      `yaml:"database_path"`
	Email           EmailConfig `yaml:"email"`
}

// Config is the root of the configuration file.
type Config struct {
	Cameras   []CameraConfig  `yaml:"cameras"`
	Detection DetectionConfig `yaml:"detection"`
	Alerting  AlertingConfig  `yaml:"alerting"`
}

// defaults mirrored by every camera entry that omits a field.
const (
	defaultConfidence    = 0.5
	defaultCooldown      = 60.0
	defaultLingerTime    = 5.0
	defaultDistThreshold = 75.0
	defaultMaxMissing    = 5
	defaultMinArea       = 5000
	defaultDiffThreshold = 25
	defaultSaveDirectory = "./detections"
	defaultDatabasePath  = "./porchcam.db"
)

// Load reads, parses and validates the configuration at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config file %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Detection.ConfidenceThreshold == 0 {
		c.Detection.ConfidenceThreshold = defaultConfidence
	}
	if len(c.Detection.ClassesToDetect) == 0 {
		c.Detection.ClassesToDetect = []string{"person"}
	}
	if c.Alerting.CooldownSeconds == 0 {
		c.Alerting.CooldownSeconds = defaultCooldown
	}
	if c.Alerting.SaveDirectory == "" {
		c.Alerting.SaveDirectory = defaultSaveDirectory
	}
	if c.Alerting.DatabasePath == "" {
		c.Alerting.DatabasePath = defaultDatabasePath
	}

	for i := range c.Cameras {
		cam := &c.Cameras[i]
		if cam.ConfidenceThreshold == 0 {
			cam.ConfidenceThreshold = c.Detection.ConfidenceThreshold
		}
		if len(cam.ClassesToDetect) == 0 {
			cam.ClassesToDetect = c.Detection.ClassesToDetect
		}
		if cam.AlertCooldownSeconds == 0 {
			cam.AlertCooldownSeconds = c.Alerting.CooldownSeconds
		}
		if cam.SaveDirectory == "" {
			cam.SaveDirectory = c.Alerting.SaveDirectory
		}
		if cam.Motion.MinArea == 0 {
			cam.Motion.MinArea = defaultMinArea
		}
		if cam.Motion.Threshold == 0 {
			cam.Motion.Threshold = defaultDiffThreshold
		}
		if len(cam.Motion.BlurKernel) == 0 {
			cam.Motion.BlurKernel = []int{21, 21}
		}
		if cam.Linger.LingerTimeSeconds == 0 {
			cam.Linger.LingerTimeSeconds = defaultLingerTime
		}
		if cam.Linger.TrackingDistThreshold == 0 {
			cam.Linger.TrackingDistThreshold = defaultDistThreshold
		}
		if cam.Linger.MaxMissingFrames == 0 {
			cam.Linger.MaxMissingFrames = defaultMaxMissing
		}
	}
}

func (c *Config) validate() error {
	if len(c.Cameras) == 0 {
		return errors.New("no cameras configured")
	}
	for i, cam := range c.Cameras {
		if cam.Name == "" {
			return errors.Errorf("camera %d has no name", i)
		}
		if cam.URL == "" {
			return errors.Errorf("camera %q has no url", cam.Name)
		}
		if n := len(cam.Linger.ROI); n != 0 && n != 4 {
			return errors.Errorf("camera %q: roi must have 4 values, got %d", cam.Name, n)
		}
		if len(cam.Motion.BlurKernel) != 2 {
			return errors.Errorf("camera %q: blur_kernel must have 2 values", cam.Name)
		}
	}
	return nil
}

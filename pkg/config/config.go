package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultFileName = "devent.yaml"

// Config captures the user-adjustable knobs for recording and analysis.
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Capture CaptureConfig `yaml:"capture"`
	Logging LoggingConfig `yaml:"logging"`

	// Source indicates where the configuration originated (defaults or a file path).
	Source string `yaml:"-"`
}

// PathsConfig controls filesystem locations used by the recorder.
type PathsConfig struct {
	DatasetsDir string `yaml:"datasets_dir"`
	StagingDir  string `yaml:"staging_dir"`
}

// CaptureConfig tunes the recording session.
type CaptureConfig struct {
	// Monitor selects the capture target; empty means the first
	// enumerated display.
	Monitor         string `yaml:"monitor"`
	FrameRate       int    `yaml:"frame_rate"`
	VideoFormat     string `yaml:"video_format"`
	DurationSeconds int    `yaml:"duration_seconds"`

	// QueueCapacity bounds the in-memory event queue between the input
	// listener and the dataset writer.
	QueueCapacity int `yaml:"queue_capacity"`

	// EnqueueTimeoutMillis is how long the listener may block on a full
	// queue before the session is failed as overloaded.
	EnqueueTimeoutMillis int `yaml:"enqueue_timeout_millis"`

	LaunchTimeoutSeconds int `yaml:"launch_timeout_seconds"`
	StopTimeoutSeconds   int `yaml:"stop_timeout_seconds"`
}

// LoggingConfig defines log verbosity and formatting.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the baseline configuration used when no overrides are supplied.
func Default() Config {
	return Config{
		Paths: PathsConfig{
			DatasetsDir: "datasets",
			StagingDir:  "staging",
		},
		Capture: CaptureConfig{
			Monitor:              "",
			FrameRate:            30,
			VideoFormat:          "mkv",
			DurationSeconds:      0,
			QueueCapacity:        1024,
			EnqueueTimeoutMillis: 2000,
			LaunchTimeoutSeconds: 5,
			StopTimeoutSeconds:   5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Source: "<defaults>",
	}
}

// Load reads configuration from disk if present, otherwise returning defaults.
// When path is empty, the loader attempts to read ./devent.yaml but tolerates
// a missing file.
func Load(path string) (Config, error) {
	cfg := Default()

	candidate := strings.TrimSpace(path)
	explicit := candidate != ""
	if !explicit {
		candidate = DefaultFileName
	}

	data, err := os.ReadFile(candidate)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if explicit {
				return cfg, fmt.Errorf("config file %q not found", candidate)
			}
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file %q: %w", candidate, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config file %q: %w", candidate, err)
	}
	cfg.Source = candidate
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate ensures essential configuration values are present and sensible.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Paths.DatasetsDir) == "" {
		return errors.New("paths.datasets_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return errors.New("paths.staging_dir must not be empty")
	}

	if _, err := NormalizeLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := NormalizeFormat(c.Logging.Format); err != nil {
		return err
	}

	if c.Capture.FrameRate <= 0 {
		return errors.New("capture.frame_rate must be positive")
	}
	if strings.TrimSpace(c.Capture.VideoFormat) == "" {
		return errors.New("capture.video_format must not be empty")
	}
	if c.Capture.DurationSeconds < 0 {
		return errors.New("capture.duration_seconds must not be negative")
	}
	if c.Capture.QueueCapacity <= 0 {
		return errors.New("capture.queue_capacity must be positive")
	}
	if c.Capture.EnqueueTimeoutMillis <= 0 {
		return errors.New("capture.enqueue_timeout_millis must be positive")
	}
	if c.Capture.LaunchTimeoutSeconds <= 0 {
		return errors.New("capture.launch_timeout_seconds must be positive")
	}
	if c.Capture.StopTimeoutSeconds <= 0 {
		return errors.New("capture.stop_timeout_seconds must be positive")
	}

	return nil
}

func (c *Config) normalize() {
	c.Paths.DatasetsDir = strings.TrimSpace(c.Paths.DatasetsDir)
	c.Paths.StagingDir = strings.TrimSpace(c.Paths.StagingDir)
	c.Capture.Monitor = strings.TrimSpace(c.Capture.Monitor)
	c.Capture.VideoFormat = strings.ToLower(strings.TrimSpace(c.Capture.VideoFormat))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

// NormalizeLogLevel validates and canonicalises a log level string.
func NormalizeLogLevel(level string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "debug", "info", "warn", "error":
		return normalized, nil
	case "":
		return "", errors.New("log level must not be empty")
	default:
		return "", fmt.Errorf("unsupported log level %q", level)
	}
}

// NormalizeFormat validates and canonicalises a log format string.
func NormalizeFormat(format string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(format))
	switch normalized {
	case "json", "console", "text":
		return normalized, nil
	case "":
		return "", errors.New("log format must not be empty")
	default:
		return "", fmt.Errorf("unsupported log format %q", format)
	}
}

// Package config provides the file and environment configuration
// surface for go-handcam commands.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CameraConfig selects and parameterizes the frame source.
type CameraConfig struct {
	// Source selects the backend: "webcam", "wscam" or "mock".
	Source string `yaml:"source"`
	// Device is the capture device index for the webcam backend.
	Device int `yaml:"device"`
	// URL is the websocket endpoint for the wscam backend.
	URL string `yaml:"url"`
	// Preset names a camera preset ("default", "lowres", "hd").
	// Width/Height/Quality override the preset when non-zero.
	Preset  string `yaml:"preset"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Quality int    `yaml:"quality"`
}

// InferenceConfig selects a model backend for one inference stage.
type InferenceConfig struct {
	// Backend is "dnn", "remote" or "mock".
	Backend string `yaml:"backend"`
	// ModelPath is the ONNX model file for the dnn backend.
	ModelPath string `yaml:"model_path"`
	// URL is the sidecar endpoint for the remote backend.
	URL string `yaml:"url"`
	// ConfidenceThresh drops results below this score (0 = backend default).
	ConfidenceThresh float64 `yaml:"confidence_thresh"`
}

// PipelineConfig holds the loop timing knobs, all in milliseconds.
type PipelineConfig struct {
	// Preset selects the base timing: "default" or "responsive".
	// The *Ms fields below override the preset when non-zero.
	Preset string `yaml:"preset"`

	FrameDelayMs   int `yaml:"frame_delay_ms"`   // steady-state pacing
	EmptyDelayMs   int `yaml:"empty_delay_ms"`   // no-hand backoff
	RetryDelayMs   int `yaml:"retry_delay_ms"`   // acquisition retry
	WarmupFrames   int `yaml:"warmup_frames"`    // discarded at startup
	WarmupDelayMs  int `yaml:"warmup_delay_ms"`  // between warm-up frames
	FastPoolBytes  int `yaml:"fast_pool_bytes"`  // fast allocator budget
	SlowPoolBytes  int `yaml:"slow_pool_bytes"`  // slow allocator budget (0 = unbounded)
}

// WebConfig controls the optional status server.
type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Config aggregates the daemon configuration.
type Config struct {
	LogLevel string          `yaml:"log_level"`
	Camera   CameraConfig    `yaml:"camera"`
	Detect   InferenceConfig `yaml:"detect"`
	Gesture  InferenceConfig `yaml:"gesture"`
	Pipeline PipelineConfig  `yaml:"pipeline"`
	Web      WebConfig       `yaml:"web"`
}

// Default returns the built-in configuration: local webcam, DNN
// inference, loop timing matching the device's steady-state cadence.
func Default() Config {
	return Config{
		LogLevel: "info",
		Camera: CameraConfig{
			Source: "webcam",
			Preset: "default",
		},
		Detect: InferenceConfig{
			Backend:   "dnn",
			ModelPath: "models/hand_detect.onnx",
		},
		Gesture: InferenceConfig{
			Backend:   "dnn",
			ModelPath: "models/hand_gesture.onnx",
		},
		Pipeline: PipelineConfig{
			FrameDelayMs:  2000,
			EmptyDelayMs:  300,
			RetryDelayMs:  100,
			WarmupFrames:  5,
			WarmupDelayMs: 50,
		},
		Web: WebConfig{
			Enabled: false,
			Addr:    ":8090",
		},
	}
}

// Load reads the YAML file at path (if non-empty) over the defaults,
// then applies HANDCAM_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("unmarshal yaml: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("HANDCAM_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("HANDCAM_CAMERA_SOURCE"); v != "" {
		c.Camera.Source = v
	}
	if v := os.Getenv("HANDCAM_CAMERA_URL"); v != "" {
		c.Camera.URL = v
	}
	if v := os.Getenv("HANDCAM_DETECT_URL"); v != "" {
		c.Detect.Backend = "remote"
		c.Detect.URL = v
	}
	if v := os.Getenv("HANDCAM_GESTURE_URL"); v != "" {
		c.Gesture.Backend = "remote"
		c.Gesture.URL = v
	}
	if v := os.Getenv("HANDCAM_WEB_ADDR"); v != "" {
		c.Web.Enabled = true
		c.Web.Addr = v
	}
}

// Validate checks cross-field consistency. Per-package configs do
// their own range validation when constructed.
func (c *Config) Validate() error {
	switch c.Camera.Source {
	case "webcam", "wscam", "mock":
	default:
		return fmt.Errorf("unknown camera source %q", c.Camera.Source)
	}
	if c.Camera.Source == "wscam" && c.Camera.URL == "" {
		return fmt.Errorf("camera source wscam requires a url")
	}
	for name, inf := range map[string]InferenceConfig{"detect": c.Detect, "gesture": c.Gesture} {
		switch inf.Backend {
		case "dnn":
			if inf.ModelPath == "" {
				return fmt.Errorf("%s: dnn backend requires model_path", name)
			}
		case "remote":
			if inf.URL == "" {
				return fmt.Errorf("%s: remote backend requires url", name)
			}
		case "mock":
		default:
			return fmt.Errorf("%s: unknown backend %q", name, inf.Backend)
		}
	}
	switch c.Pipeline.Preset {
	case "", "default", "responsive":
	default:
		return fmt.Errorf("unknown pipeline preset %q", c.Pipeline.Preset)
	}
	if c.Pipeline.WarmupFrames < 0 {
		return fmt.Errorf("warmup_frames must be >= 0")
	}
	return nil
}

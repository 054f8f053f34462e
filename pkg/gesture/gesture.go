// Package gesture provides gesture classification for localized hand
// regions.
package gesture

import (
	"github.com/teslashibe/go-handcam/pkg/detect"
	"github.com/teslashibe/go-handcam/pkg/imaging"
)

// Result is a classified gesture for one detection.
type Result struct {
	// Label is the human-readable category name.
	Label string
	// Score is the classifier confidence in [0, 1].
	Score float64
}

// Recognizer is the interface for gesture classification backends.
// The image and detections are borrowed for the duration of the call
// and must not be retained.
type Recognizer interface {
	Recognize(img *imaging.NormalizedImage, dets []detect.Detection) ([]Result, error)
	Close() error
}

// Config holds classifier configuration.
type Config struct {
	ModelPath string   // path to the ONNX model
	InputSide int      // square input edge the model expects
	Labels    []string // category names in model output order
}

// DefaultLabels is the gesture category table in model output order.
var DefaultLabels = []string{
	"one", "two", "three", "four", "five",
	"fist", "ok", "thumbs_up",
}

// DefaultConfig returns production defaults for the gesture classifier.
func DefaultConfig() Config {
	return Config{
		ModelPath: "models/hand_gesture.onnx",
		InputSide: 224,
		Labels:    DefaultLabels,
	}
}

// clamp01 keeps reported scores inside the contract range.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

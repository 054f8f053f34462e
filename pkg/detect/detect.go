// Package detect provides hand localization on normalized frames.
package detect

import (
	"github.com/teslashibe/go-handcam/pkg/imaging"
)

// Detection is a localized hand region within a normalized image.
// It is only meaningful for the frame iteration that produced it and
// must not outlive the image it references.
type Detection struct {
	X, Y       float64 // top-left corner (0-1 normalized)
	W, H       float64 // width and height (0-1 normalized)
	Confidence float64 // detection confidence (0-1)
}

// Center returns the center point of the detection.
func (d Detection) Center() (x, y float64) {
	return d.X + d.W/2, d.Y + d.H/2
}

// Area returns the area of the bounding box.
func (d Detection) Area() float64 {
	return d.W * d.H
}

// PixelRect converts the normalized box to pixel coordinates on an
// image with the given square side.
func (d Detection) PixelRect(side int) (x0, y0, w, h int) {
	return int(d.X * float64(side)), int(d.Y * float64(side)),
		int(d.W * float64(side)), int(d.H * float64(side))
}

// Detector is the interface for hand localization backends. An empty
// result slice is the normal "no hand in frame" outcome, not an error.
type Detector interface {
	Detect(img *imaging.NormalizedImage) ([]Detection, error)
	Close() error
}

// Config holds detector configuration.
type Config struct {
	ModelPath        string  // path to the ONNX model
	ConfidenceThresh float64 // minimum confidence to keep a box
	MaxDetections    int     // cap on boxes returned per frame
}

// DefaultConfig returns production defaults for the hand localizer.
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/hand_detect.onnx",
		ConfidenceThresh: 0.5,
		MaxDetections:    4,
	}
}

// SelectBest picks the most promising detection from a set, weighing
// confidence over size (0.7 / 0.3).
func SelectBest(dets []Detection) *Detection {
	if len(dets) == 0 {
		return nil
	}
	if len(dets) == 1 {
		return &dets[0]
	}

	maxArea := 0.0
	for _, d := range dets {
		if d.Area() > maxArea {
			maxArea = d.Area()
		}
	}

	bestScore := -1.0
	var best *Detection
	for i := range dets {
		score := dets[i].Confidence * 0.7
		if maxArea > 0 {
			score += (dets[i].Area() / maxArea) * 0.3
		}
		if score > bestScore {
			bestScore = score
			best = &dets[i]
		}
	}
	return best
}

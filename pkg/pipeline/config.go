package pipeline

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-handcam/pkg/imaging"
)

// Config holds the loop timing and geometry knobs.
type Config struct {
	// TargetSide is the square model input edge length.
	TargetSide int

	// FrameDelay paces the steady state to the intended frame rate.
	FrameDelay time.Duration
	// EmptyDelay is the extended backoff after a frame with no hand,
	// so an empty scene does not busy-loop the detector.
	EmptyDelay time.Duration
	// RetryDelay follows a transient failure (acquisition, allocation).
	RetryDelay time.Duration

	// WarmupFrames are acquired and discarded at startup while the
	// sensor's auto exposure and white balance settle.
	WarmupFrames int
	// WarmupDelay spaces the warm-up acquisitions.
	WarmupDelay time.Duration
}

// DefaultConfig returns the device's steady-state cadence: roughly one
// processed frame every two seconds, with short backoffs for empty
// scenes and transient failures.
func DefaultConfig() Config {
	return Config{
		TargetSide:   imaging.TargetSide,
		FrameDelay:   2000 * time.Millisecond,
		EmptyDelay:   300 * time.Millisecond,
		RetryDelay:   100 * time.Millisecond,
		WarmupFrames: 5,
		WarmupDelay:  50 * time.Millisecond,
	}
}

// ResponsiveConfig tightens the delays for interactive use. The
// backoffs stay fixed constants; they do not adapt at runtime.
func ResponsiveConfig() Config {
	cfg := DefaultConfig()
	cfg.FrameDelay = 500 * time.Millisecond
	cfg.EmptyDelay = 150 * time.Millisecond
	return cfg
}

// Validate checks parameter ranges.
func (c Config) Validate() error {
	if c.TargetSide <= 0 {
		return fmt.Errorf("pipeline: invalid target side %d", c.TargetSide)
	}
	if c.FrameDelay < 0 || c.EmptyDelay < 0 || c.RetryDelay < 0 {
		return fmt.Errorf("pipeline: delays must be non-negative")
	}
	if c.WarmupFrames < 0 {
		return fmt.Errorf("pipeline: warm-up frames must be non-negative")
	}
	return nil
}

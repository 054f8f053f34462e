package camera

import (
	"context"
	"time"

	"github.com/teslashibe/go-handcam/internal/log"
)

// Warmup acquires and immediately releases n frames, discarding them,
// so the sensor's auto exposure and white balance settle before real
// processing starts. Acquisition failures during warm-up are logged
// and skipped; warm-up only aborts when the context is canceled.
func Warmup(ctx context.Context, src Source, n int, delay time.Duration) error {
	logger := log.Component("camera")
	for i := 0; i < n; i++ {
		frame, err := src.Acquire(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("warm-up acquire failed", "frame", i, "error", err)
		} else {
			frame.Release()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	logger.Debug("warm-up complete", "frames", n)
	return nil
}

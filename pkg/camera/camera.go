// Package camera provides the frame acquisition boundary of the
// perception loop: compressed frames borrowed from a source and
// returned to it exactly once.
package camera

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-handcam/internal/log"
)

var (
	// ErrNoFrame means the source could not produce a frame right now.
	// It is transient; the caller retries after a short delay.
	ErrNoFrame = errors.New("camera: no frame available")

	// ErrClosed means the source has been shut down.
	ErrClosed = errors.New("camera: source closed")
)

// Frame is a compressed image borrowed from a Source. The pipeline
// owns it for one iteration and must call Release exactly once on
// every path before requesting the next frame.
type Frame struct {
	// Data is the compressed (JPEG) payload. Invalid after Release.
	Data []byte

	// Seq is a monotonically increasing capture sequence number.
	Seq uint64

	// Timestamp is the capture time at the source.
	Timestamp time.Time

	// ID identifies the frame in logs.
	ID uuid.UUID

	release  func(*Frame)
	released atomic.Bool
}

// Release returns the underlying buffer to the source. A second call
// is a logged no-op; the buffer must never be returned twice.
func (f *Frame) Release() {
	if f == nil {
		return
	}
	if !f.released.CompareAndSwap(false, true) {
		log.Warn("frame released twice", "frame", f.ID, "seq", f.Seq)
		return
	}
	if f.release != nil {
		f.release(f)
	}
	f.Data = nil
}

// Released reports whether the frame has been returned to its source.
func (f *Frame) Released() bool {
	return f.released.Load()
}

// newFrame builds a frame bound to a source release hook.
func newFrame(data []byte, seq uint64, release func(*Frame)) *Frame {
	return &Frame{
		Data:      data,
		Seq:       seq,
		Timestamp: time.Now(),
		ID:        uuid.New(),
		release:   release,
	}
}

// Source produces compressed frames. Acquire blocks until a frame is
// available, the context is canceled, or the source fails; failures
// are transient and never terminal for the caller.
type Source interface {
	Acquire(ctx context.Context) (*Frame, error)
	Close() error
}

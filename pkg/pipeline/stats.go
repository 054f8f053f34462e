package pipeline

import (
	"sync"
	"time"
)

// fpsAlpha weights new intervals in the frame-rate moving average.
const fpsAlpha = 0.2

// Stats tracks loop counters for logs and the status surface.
type Stats struct {
	mu sync.Mutex

	frames          uint64
	processed       uint64
	acquireFailures uint64
	decodeFailures  uint64
	allocFailures   uint64
	inferFailures   uint64
	emptyFrames     uint64
	gestures        uint64

	lastLabel     string
	lastProcessed time.Time
	fps           float64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Frames          uint64  `json:"frames"`
	Processed       uint64  `json:"processed"`
	AcquireFailures uint64  `json:"acquire_failures"`
	DecodeFailures  uint64  `json:"decode_failures"`
	AllocFailures   uint64  `json:"alloc_failures"`
	InferFailures   uint64  `json:"infer_failures"`
	EmptyFrames     uint64  `json:"empty_frames"`
	Gestures        uint64  `json:"gestures"`
	LastLabel       string  `json:"last_label,omitempty"`
	FPS             float64 `json:"fps"`
}

// NewStats creates an empty counter set.
func NewStats() *Stats {
	return &Stats{}
}

// record updates the counters for one finished iteration.
func (s *Stats) record(o outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames++
	switch o {
	case outcomeProcessed:
		s.processed++
		now := time.Now()
		if !s.lastProcessed.IsZero() {
			if dt := now.Sub(s.lastProcessed).Seconds(); dt > 0 {
				inst := 1.0 / dt
				if s.fps == 0 {
					s.fps = inst
				} else {
					s.fps = fpsAlpha*inst + (1-fpsAlpha)*s.fps
				}
			}
		}
		s.lastProcessed = now
	case outcomeNoDetection:
		s.emptyFrames++
	case outcomeRetryAcquire:
		s.acquireFailures++
	case outcomeDroppedDecode:
		s.decodeFailures++
	case outcomeDroppedAlloc:
		s.allocFailures++
	case outcomeDroppedInfer:
		s.inferFailures++
	}
}

// recordGesture counts one reported result.
func (s *Stats) recordGesture(label string) {
	s.mu.Lock()
	s.gestures++
	s.lastLabel = label
	s.mu.Unlock()
}

// Snapshot returns a copy of the counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Frames:          s.frames,
		Processed:       s.processed,
		AcquireFailures: s.acquireFailures,
		DecodeFailures:  s.decodeFailures,
		AllocFailures:   s.allocFailures,
		InferFailures:   s.inferFailures,
		EmptyFrames:     s.emptyFrames,
		Gestures:        s.gestures,
		LastLabel:       s.lastLabel,
		FPS:             s.fps,
	}
}

package pipeline

import "time"

// outcome tags how one loop iteration ended. The pacing switch in Run
// is the single place that turns an outcome into a delay; the stage
// code never sleeps.
type outcome int

const (
	// outcomeProcessed: results reported, steady-state pacing applies.
	outcomeProcessed outcome = iota
	// outcomeNoDetection: valid frame, empty scene; extended backoff.
	outcomeNoDetection
	// outcomeRetryAcquire: the source produced no frame; short retry.
	outcomeRetryAcquire
	// outcomeDroppedDecode: malformed frame dropped; next frame
	// immediately.
	outcomeDroppedDecode
	// outcomeDroppedAlloc: buffer exhaustion; short retry lets
	// in-flight buffers drain.
	outcomeDroppedAlloc
	// outcomeDroppedInfer: an inference backend failed; short retry.
	outcomeDroppedInfer
	// outcomeCanceled: the context ended; the loop exits.
	outcomeCanceled
)

func (o outcome) String() string {
	switch o {
	case outcomeProcessed:
		return "processed"
	case outcomeNoDetection:
		return "no-detection"
	case outcomeRetryAcquire:
		return "retry-acquire"
	case outcomeDroppedDecode:
		return "dropped-decode"
	case outcomeDroppedAlloc:
		return "dropped-alloc"
	case outcomeDroppedInfer:
		return "dropped-infer"
	case outcomeCanceled:
		return "canceled"
	}
	return "unknown"
}

// delayFor maps an outcome to the pause before the next iteration.
func (c Config) delayFor(o outcome) time.Duration {
	switch o {
	case outcomeProcessed:
		return c.FrameDelay
	case outcomeNoDetection:
		return c.EmptyDelay
	case outcomeRetryAcquire, outcomeDroppedAlloc, outcomeDroppedInfer:
		return c.RetryDelay
	default:
		return 0
	}
}

// Package pipeline sequences the perception loop: acquire a
// compressed frame, decode it, normalize it, localize hands, classify
// gestures, report. Every stage failure is absorbed within its
// iteration; the loop has no terminal error path and every buffer is
// returned on every exit, whichever stage fails.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/teslashibe/go-handcam/internal/log"
	"github.com/teslashibe/go-handcam/pkg/camera"
	"github.com/teslashibe/go-handcam/pkg/detect"
	"github.com/teslashibe/go-handcam/pkg/gesture"
	"github.com/teslashibe/go-handcam/pkg/imaging"
	"github.com/teslashibe/go-handcam/pkg/mempool"
)

// Pipeline owns the per-frame control flow. Construction wires the
// collaborators; Run drives them until the context ends.
type Pipeline struct {
	src        camera.Source
	decoder    imaging.Decoder
	detector   detect.Detector
	recognizer gesture.Recognizer
	alloc      mempool.Allocator
	reporter   Reporter

	cfg    Config
	stats  *Stats
	logger *slog.Logger

	frameIdx uint64
}

// New builds a pipeline. All collaborators are required except the
// reporter, which defaults to the structured log sink.
func New(src camera.Source, dec imaging.Decoder, det detect.Detector,
	rec gesture.Recognizer, alloc mempool.Allocator, rep Reporter, cfg Config) (*Pipeline, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rep == nil {
		rep = NewLogReporter()
	}
	return &Pipeline{
		src:        src,
		decoder:    dec,
		detector:   det,
		recognizer: rec,
		alloc:      alloc,
		reporter:   rep,
		cfg:        cfg,
		stats:      NewStats(),
		logger:     log.Component("pipeline"),
	}, nil
}

// Stats exposes the loop counters for the status surface.
func (p *Pipeline) Stats() *Stats {
	return p.stats
}

// Run warms up the source and processes frames until ctx ends.
// Frames are strictly sequential: one frame fully drains or is
// discarded before the next is acquired.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := camera.Warmup(ctx, p.src, p.cfg.WarmupFrames, p.cfg.WarmupDelay); err != nil {
		return err
	}

	p.logger.Info("pipeline running",
		"target", p.cfg.TargetSide,
		"frame_delay", p.cfg.FrameDelay,
	)

	for {
		o := p.step(ctx)
		if o == outcomeCanceled {
			return ctx.Err()
		}
		p.stats.record(o)

		if err := sleep(ctx, p.cfg.delayFor(o)); err != nil {
			return err
		}
	}
}

// step runs one frame through every stage and reports how it ended.
// Ownership within a step: the compressed frame goes back to the
// source as soon as decoding has been attempted; the raw image is
// freed once normalization has been attempted; the normalized image
// is freed when the step returns.
func (p *Pipeline) step(ctx context.Context) outcome {
	p.frameIdx++

	frame, err := p.src.Acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return outcomeCanceled
		}
		p.logger.Error("frame acquisition failed", "frame", p.frameIdx, "error", err)
		return outcomeRetryAcquire
	}

	raw, decErr := p.decoder.Decode(frame)
	frame.Release()

	if decErr != nil || !raw.Valid() {
		raw.Free()
		p.logger.Error("frame decode failed", "frame", p.frameIdx, "error", decErr)
		return outcomeDroppedDecode
	}

	norm, err := imaging.Normalize(raw, p.cfg.TargetSide, p.alloc)
	raw.Free()
	if err != nil {
		p.logger.Error("frame normalize failed", "frame", p.frameIdx, "error", err)
		return outcomeDroppedAlloc
	}
	defer norm.Free()

	dets, err := p.detector.Detect(norm)
	if err != nil {
		p.logger.Error("hand detection failed", "frame", p.frameIdx, "error", err)
		return outcomeDroppedInfer
	}
	if len(dets) == 0 {
		p.logger.Debug("no hand detected", "frame", p.frameIdx)
		return outcomeNoDetection
	}

	results, err := p.recognizer.Recognize(norm, dets)
	if err != nil {
		p.logger.Error("gesture classification failed", "frame", p.frameIdx, "error", err)
		return outcomeDroppedInfer
	}

	for _, res := range results {
		p.reporter.Report(p.frameIdx, res)
		p.stats.recordGesture(res.Label)
	}
	return outcomeProcessed
}

// sleep waits for d or until the context ends.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

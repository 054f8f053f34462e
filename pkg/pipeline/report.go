package pipeline

import (
	"log/slog"

	"github.com/teslashibe/go-handcam/internal/log"
	"github.com/teslashibe/go-handcam/pkg/gesture"
)

// Reporter receives classified gestures. Reporting is the loop's only
// output; results are never stored or transmitted.
type Reporter interface {
	Report(frameIndex uint64, res gesture.Result)
}

// LogReporter writes results to the structured log.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter creates the default operator-visible sink.
func NewLogReporter() *LogReporter {
	return &LogReporter{logger: log.Component("gesture")}
}

// Report logs one result.
func (r *LogReporter) Report(frameIndex uint64, res gesture.Result) {
	r.logger.Info("gesture",
		"frame", frameIndex,
		"label", res.Label,
		"score", res.Score,
	)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(frameIndex uint64, res gesture.Result)

// Report calls the wrapped function.
func (f ReporterFunc) Report(frameIndex uint64, res gesture.Result) {
	f(frameIndex, res)
}

package gesture

import (
	"sync"

	"github.com/teslashibe/go-handcam/pkg/detect"
	"github.com/teslashibe/go-handcam/pkg/imaging"
)

// Mock implements Recognizer for testing.
type Mock struct {
	// RecognizeFunc is called when Recognize is invoked. When nil,
	// Recognize returns one Result per detection.
	RecognizeFunc func(img *imaging.NormalizedImage, dets []detect.Detection) ([]Result, error)

	// Result is repeated per detection by the default RecognizeFunc.
	Result Result

	mu    sync.Mutex
	calls int
}

// Recognize returns the scripted results.
func (m *Mock) Recognize(img *imaging.NormalizedImage, dets []detect.Detection) ([]Result, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(img, dets)
	}
	results := make([]Result, 0, len(dets))
	for range dets {
		results = append(results, m.Result)
	}
	return results, nil
}

// Calls reports how many times Recognize ran.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close is a no-op.
func (m *Mock) Close() error { return nil }

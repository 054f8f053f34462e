package detect

import (
	"sync"

	"github.com/teslashibe/go-handcam/pkg/imaging"
)

// Mock implements Detector for testing.
type Mock struct {
	// DetectFunc is called when Detect is invoked. When nil, Detect
	// returns Detections.
	DetectFunc func(img *imaging.NormalizedImage) ([]Detection, error)

	// Detections is returned by the default DetectFunc.
	Detections []Detection

	mu     sync.Mutex
	calls  int
	closed bool
}

// Detect returns the scripted result.
func (m *Mock) Detect(img *imaging.NormalizedImage) ([]Detection, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.DetectFunc != nil {
		return m.DetectFunc(img)
	}
	return m.Detections, nil
}

// Calls reports how many times Detect ran.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close records shutdown.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

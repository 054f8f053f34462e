package camera

import (
	"context"
	"sync"
)

// Mock implements Source for testing.
type Mock struct {
	// AcquireFunc is called for each Acquire. When nil, Acquire
	// returns frames carrying Payload in sequence.
	AcquireFunc func(ctx context.Context) (*Frame, error)

	// Payload is the frame data handed out by the default AcquireFunc.
	Payload []byte

	mu       sync.Mutex
	seq      uint64
	acquired int
	released int
	closed   bool
}

// NewMock creates a mock source producing the given payload.
func NewMock(payload []byte) *Mock {
	return &Mock{Payload: payload}
}

// Acquire returns the next scripted frame.
func (m *Mock) Acquire(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.AcquireFunc != nil {
		f, err := m.AcquireFunc(ctx)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.acquired++
		m.mu.Unlock()
		// rebind release so the mock counts it
		f.release = func(*Frame) { m.countRelease() }
		return f, nil
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	m.seq++
	m.acquired++
	seq := m.seq
	m.mu.Unlock()

	data := make([]byte, len(m.Payload))
	copy(data, m.Payload)
	return newFrame(data, seq, func(*Frame) { m.countRelease() }), nil
}

func (m *Mock) countRelease() {
	m.mu.Lock()
	m.released++
	m.mu.Unlock()
}

// NewScriptedFrame builds a frame for AcquireFunc implementations.
func NewScriptedFrame(data []byte, seq uint64) *Frame {
	return newFrame(data, seq, nil)
}

// Acquired reports how many frames have been handed out.
func (m *Mock) Acquired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired
}

// Released reports how many frames have been returned.
func (m *Mock) Released() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

// Close marks the source closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

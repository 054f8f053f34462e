// Package mempool provides the image buffer allocators for the
// perception loop. The device has two memory tiers: a fast pool that
// is scarce and a slow pool that is abundant. Allocation always tries
// the fast tier first and falls back to the slow tier, never the
// reverse.
package mempool

import (
	"errors"
	"sync"
)

// ErrExhausted is returned when a pool cannot satisfy a request
// without exceeding its budget.
var ErrExhausted = errors.New("mempool: pool exhausted")

// Allocator hands out byte buffers with explicit ownership. Every
// buffer obtained from Alloc must be returned with Free exactly once.
type Allocator interface {
	Alloc(n int) ([]byte, error)
	Free(buf []byte)
}

// Pool is a budgeted allocator. It tracks bytes in use and refuses
// requests that would exceed the budget. A budget of zero means
// unbounded.
type Pool struct {
	name   string
	budget int

	mu    sync.Mutex
	inUse int

	// counters, guarded by mu
	allocs   uint64
	failures uint64
}

// NewPool creates a pool with the given byte budget (0 = unbounded).
func NewPool(name string, budget int) *Pool {
	return &Pool{name: name, budget: budget}
}

// Alloc returns a zeroed buffer of n bytes, or ErrExhausted.
func (p *Pool) Alloc(n int) ([]byte, error) {
	if n <= 0 {
		return nil, errors.New("mempool: non-positive size")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.budget > 0 && p.inUse+n > p.budget {
		p.failures++
		return nil, ErrExhausted
	}
	p.inUse += n
	p.allocs++
	return make([]byte, n), nil
}

// Free returns a buffer to the pool. Freeing nil is a no-op.
func (p *Pool) Free(buf []byte) {
	if buf == nil {
		return
	}
	p.mu.Lock()
	p.inUse -= cap(buf)
	if p.inUse < 0 {
		// double free or foreign buffer; clamp rather than corrupt
		p.inUse = 0
	}
	p.mu.Unlock()
}

// InUse reports the bytes currently allocated from this pool.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}

// Name returns the pool name used in stats and logs.
func (p *Pool) Name() string { return p.name }

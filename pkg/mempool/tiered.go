package mempool

import (
	"sync"
)

// Tiered allocates from a fast pool first and falls back to a slow
// pool when the fast tier is exhausted. Free routes each buffer back
// to the pool that produced it.
type Tiered struct {
	fast *Pool
	slow *Pool

	mu     sync.Mutex
	origin map[*byte]*Pool

	stats TieredStats
}

// TieredStats counts allocation outcomes across both tiers.
type TieredStats struct {
	FastAllocs uint64 `json:"fast_allocs"`
	Fallbacks  uint64 `json:"fallbacks"`
	Failures   uint64 `json:"failures"`
}

// NewTiered builds a tiered allocator over the two pools.
func NewTiered(fast, slow *Pool) *Tiered {
	return &Tiered{
		fast:   fast,
		slow:   slow,
		origin: make(map[*byte]*Pool),
	}
}

// NewDefault returns a tiered allocator with the given budgets
// (0 = unbounded) for the fast and slow tiers.
func NewDefault(fastBudget, slowBudget int) *Tiered {
	return NewTiered(NewPool("fast", fastBudget), NewPool("slow", slowBudget))
}

// Alloc tries the fast pool, then the slow pool. Both failing is an
// allocation failure the caller must absorb; it never panics.
func (t *Tiered) Alloc(n int) ([]byte, error) {
	buf, err := t.fast.Alloc(n)
	pool := t.fast
	if err != nil {
		buf, err = t.slow.Alloc(n)
		pool = t.slow
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.stats.Failures++
		return nil, err
	}
	if pool == t.fast {
		t.stats.FastAllocs++
	} else {
		t.stats.Fallbacks++
	}
	t.origin[&buf[0]] = pool
	return buf, nil
}

// Free returns the buffer to its originating pool. Freeing nil or an
// unknown buffer is a no-op.
func (t *Tiered) Free(buf []byte) {
	if len(buf) == 0 {
		return
	}
	t.mu.Lock()
	pool, ok := t.origin[&buf[0]]
	if ok {
		delete(t.origin, &buf[0])
	}
	t.mu.Unlock()
	if ok {
		pool.Free(buf)
	}
}

// Stats returns a snapshot of the allocation counters.
func (t *Tiered) Stats() TieredStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// FastInUse reports bytes currently held in the fast tier.
func (t *Tiered) FastInUse() int { return t.fast.InUse() }

// SlowInUse reports bytes currently held in the slow tier.
func (t *Tiered) SlowInUse() int { return t.slow.InUse() }

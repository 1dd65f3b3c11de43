package track

import "go.uber.org/atomic"

// counters tracks rewrite and cache activity. Counters are atomic so a
// tracker shared across goroutines reports consistently; trace recording
// itself needs no synchronization (each context is owned by one call).
type counters struct {
	rewrites    atomic.Int64
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
	leafCalls   atomic.Int64
	nestedCalls atomic.Int64
}

// Stats is a snapshot of a tracker's counters.
type Stats struct {
	// Rewrites counts instrumentation pass invocations. It stays flat
	// across repeated dispatches of the same (callee, shape).
	Rewrites    int64
	CacheHits   int64
	CacheMisses int64
	LeafCalls   int64
	NestedCalls int64
}

// Stats returns a snapshot of the tracker's counters.
func (t *Tracker) Stats() Stats {
	return Stats{
		Rewrites:    t.counters.rewrites.Load(),
		CacheHits:   t.counters.cacheHits.Load(),
		CacheMisses: t.counters.cacheMisses.Load(),
		LeafCalls:   t.counters.leafCalls.Load(),
		NestedCalls: t.counters.nestedCalls.Load(),
	}
}

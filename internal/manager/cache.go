package manager

import (
	"context"
	"time"

	"mlxd/internal/runtime"
)

// entry is one resident model in the cache.
type entry struct {
	id       string
	handle   *runtime.ModelHandle
	seq      uint64 // recency position; higher = more recently used
	lastUsed time.Time
	borrows  int  // sessions currently holding the handle
	retired  bool // removed from the map; release deferred until borrows==0
	freed    bool // native resources released (Unload called)
}

// Acquire resolves id to a resident handle, loading it on a miss. The
// returned release func must be called exactly once when the session no
// longer needs the handle; it is safe to call from any goroutine.
//
// A hit bumps the entry to most-recently-used and never touches the loader.
// A miss invokes the loader exactly once, evicting the least-recently-used
// entry first when the cache is at capacity. Loads block for seconds on a
// cold path; callers must tolerate that.
func (m *Manager) Acquire(ctx context.Context, id string) (*runtime.ModelHandle, func(), error) {
	cid := m.canonicalize(id)

	if h, release, ok := m.acquireHit(cid); ok {
		return h, release, nil
	}

	// Miss path. The loader is not assumed safe to call concurrently with
	// itself, so loads are serialized; a waiter re-checks the map in case
	// the id it wants was loaded while it queued.
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	if h, release, ok := m.acquireHit(cid); ok {
		return h, release, nil
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, nil, ErrClosed
	}
	m.mu.Unlock()

	h, err := m.loader.Load(ctx, cid)
	if err != nil {
		return nil, nil, &loadFailureError{id: cid, cause: err}
	}

	m.mu.Lock()
	victims := m.evictToFitLocked()
	e := &entry{id: cid, handle: h, borrows: 1}
	m.touchLocked(e)
	m.entries[cid] = e
	m.loadsTotal++
	resident := len(m.entries)
	m.mu.Unlock()

	cacheLoads.Inc()
	cacheResident.Set(float64(resident))
	m.publisher.Publish(Event{Name: "model_loaded", ModelID: cid, Fields: map[string]any{
		"est_size_mb": h.EstSizeMB,
		"resident":    resident,
	}})

	// Release evicted idle handles now, still under loadMu.
	for _, v := range victims {
		m.unload(v)
	}
	return h, m.releaseFunc(e), nil
}

// acquireHit handles the cache-hit fast path.
func (m *Manager) acquireHit(cid string) (*runtime.ModelHandle, func(), bool) {
	m.mu.Lock()
	e, ok := m.entries[cid]
	if !ok {
		m.mu.Unlock()
		return nil, nil, false
	}
	m.touchLocked(e)
	e.borrows++
	m.hitsTotal++
	m.mu.Unlock()
	cacheHits.Inc()
	return e.handle, m.releaseFunc(e), true
}

// touchLocked moves e to the most-recently-used position. The sequence
// counter strictly increases, so recency is a total order and LRU selection
// can never tie. Caller holds mu.
func (m *Manager) touchLocked(e *entry) {
	m.seq++
	e.seq = m.seq
	e.lastUsed = time.Now()
}

// evictToFitLocked retires least-recently-used entries until an insert
// stays within capacity. Retired entries leave the map immediately; entries
// still borrowed by a session keep their native resources until the last
// borrower releases. Returns the entries whose handles can be unloaded now.
// Caller holds mu (and loadMu).
func (m *Manager) evictToFitLocked() []*entry {
	var victims []*entry
	for len(m.entries) >= m.capacity {
		var lru *entry
		for _, e := range m.entries {
			if lru == nil || e.seq < lru.seq {
				lru = e
			}
		}
		if lru == nil {
			break
		}
		delete(m.entries, lru.id)
		lru.retired = true
		m.evictionsTotal++
		cacheEvictions.Inc()
		m.publisher.Publish(Event{Name: "model_evicted", ModelID: lru.id, Fields: map[string]any{
			"borrows": lru.borrows,
		}})
		if lru.borrows == 0 {
			lru.freed = true
			victims = append(victims, lru)
		}
	}
	return victims
}

// releaseFunc builds the once-only release closure for a borrowed entry.
func (m *Manager) releaseFunc(e *entry) func() {
	released := false
	return func() {
		m.mu.Lock()
		if released {
			m.mu.Unlock()
			return
		}
		released = true
		e.borrows--
		free := e.retired && e.borrows == 0 && !e.freed
		if free {
			e.freed = true
		}
		m.mu.Unlock()
		if free {
			m.loadMu.Lock()
			m.unload(e)
			m.loadMu.Unlock()
		}
	}
}

// unload frees the native resources behind e. Called exactly once per
// handle. Caller holds loadMu.
func (m *Manager) unload(e *entry) {
	fields := map[string]any{}
	if err := m.loader.Unload(e.handle); err != nil {
		fields["error"] = err.Error()
	}
	m.publisher.Publish(Event{Name: "model_released", ModelID: e.id, Fields: fields})
}

// Clear evicts every entry. Handles without live borrowers are released
// immediately; borrowed handles are released when their last session ends.
// Subsequent Acquire calls behave as on a cold cache.
func (m *Manager) Clear() {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	m.mu.Lock()
	var victims []*entry
	for id, e := range m.entries {
		delete(m.entries, id)
		e.retired = true
		if e.borrows == 0 {
			e.freed = true
			victims = append(victims, e)
		}
	}
	m.mu.Unlock()

	cacheResident.Set(0)
	for _, v := range victims {
		m.unload(v)
	}
	m.publisher.Publish(Event{Name: "cache_cleared", Fields: map[string]any{
		"released": len(victims),
	}})
}

// Close clears the cache and rejects further Acquire calls.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.Clear()
}

// ResidentCount returns the number of models currently in the cache.
func (m *Manager) ResidentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

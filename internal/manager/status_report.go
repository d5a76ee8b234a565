package manager

import (
	"sort"
	"time"

	"mlxd/pkg/types"
)

// Health builds the GET /health payload.
func (m *Manager) Health() types.HealthResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := "healthy"
	if m.closed {
		status = "shutting_down"
	}
	return types.HealthResponse{Status: status, CachedModels: len(m.entries)}
}

// residentSnapshot copies the per-entry fields needed for reporting while
// holding the lock, most recently used first.
type residentSnapshot struct {
	id        string
	seq       uint64
	lastUsed  time.Time
	loadedAt  time.Time
	borrows   int
	estSizeMB int
}

func (m *Manager) snapshotLocked() []residentSnapshot {
	snap := make([]residentSnapshot, 0, len(m.entries))
	for _, e := range m.entries {
		snap = append(snap, residentSnapshot{
			id:        e.id,
			seq:       e.seq,
			lastUsed:  e.lastUsed,
			loadedAt:  e.handle.LoadedAt,
			borrows:   e.borrows,
			estSizeMB: e.handle.EstSizeMB,
		})
	}
	sort.Slice(snap, func(i, j int) bool { return snap[i].seq > snap[j].seq })
	return snap
}

// ResidentModels lists the currently resident models, most recently used
// first, shaped for GET /v1/models.
func (m *Manager) ResidentModels() []types.ModelInfo {
	m.mu.Lock()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	out := make([]types.ModelInfo, 0, len(snap))
	for _, s := range snap {
		out = append(out, types.ModelInfo{
			ID:      s.id,
			Object:  "model",
			Created: s.loadedAt.Unix(),
			OwnedBy: "mlx",
		})
	}
	return out
}

// Status builds a detailed status response for GET /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.Lock()
	resp := types.StatusResponse{
		Capacity:       m.capacity,
		LoadsTotal:     m.loadsTotal,
		EvictionsTotal: m.evictionsTotal,
		HitsTotal:      m.hitsTotal,
		UptimeSeconds:  int64(time.Since(m.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	resp.Resident = make([]types.ResidentModel, 0, len(snap))
	for _, s := range snap {
		resp.Resident = append(resp.Resident, types.ResidentModel{
			ID:        s.id,
			LastUsed:  s.lastUsed.Unix(),
			Borrows:   s.borrows,
			EstSizeMB: s.estSizeMB,
		})
	}
	return resp
}

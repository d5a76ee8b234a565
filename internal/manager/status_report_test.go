package manager

import (
	"context"
	"testing"
)

func TestHealthReflectsResidentCount(t *testing.T) {
	rt := newFakeRuntime("hi")
	m := newTestManager(t, rt, 3)

	if h := m.Health(); h.Status != "healthy" || h.CachedModels != 0 {
		t.Fatalf("cold health = %+v", h)
	}

	_, release, err := m.Acquire(context.Background(), "/m/a")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	release()
	if h := m.Health(); h.CachedModels != 1 {
		t.Fatalf("health after load = %+v", h)
	}

	m.Clear()
	if h := m.Health(); h.CachedModels != 0 {
		t.Fatalf("health after clear = %+v", h)
	}
}

func TestStatusCounters(t *testing.T) {
	rt := newFakeRuntime("hi")
	m := newTestManager(t, rt, 1)
	ctx := context.Background()

	for _, id := range []string{"/m/a", "/m/a", "/m/b"} {
		_, release, err := m.Acquire(ctx, id)
		if err != nil {
			t.Fatalf("acquire %s: %v", id, err)
		}
		release()
	}

	st := m.Status()
	if st.Capacity != 1 {
		t.Fatalf("capacity = %d", st.Capacity)
	}
	if st.LoadsTotal != 2 || st.HitsTotal != 1 || st.EvictionsTotal != 1 {
		t.Fatalf("counters = loads:%d hits:%d evictions:%d", st.LoadsTotal, st.HitsTotal, st.EvictionsTotal)
	}
	if len(st.Resident) != 1 || st.Resident[0].ID != "/m/b" {
		t.Fatalf("resident = %+v", st.Resident)
	}
}

func TestReadyUntilClosed(t *testing.T) {
	rt := newFakeRuntime("hi")
	m := newTestManager(t, rt, 3)
	if !m.Ready() {
		t.Fatalf("expected ready")
	}
	m.Close()
	if m.Ready() {
		t.Fatalf("expected not ready after close")
	}
	if h := m.Health(); h.Status != "shutting_down" {
		t.Fatalf("health = %+v", h)
	}
}

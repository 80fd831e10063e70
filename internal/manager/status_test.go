package manager

import (
	"testing"
	"time"
)

func TestStatus_ReportsHandles(t *testing.T) {
	env := newTestEnv(t)
	st := env.m.Status()
	if st.State != string(StateLoading) || len(st.Models) != 0 {
		t.Fatalf("initial status: %+v", st)
	}
	mustRegister(t, env, "zeta")
	mustRegister(t, env, "alpha")
	st = env.m.Status()
	if len(st.Models) != 2 || st.Models[0].Name != "alpha" {
		t.Fatalf("models: %+v", st.Models)
	}
	if st.LoadsTotal != 2 {
		t.Fatalf("loads total: %d", st.LoadsTotal)
	}
	if st.Models[0].Path != "/weights/alpha.gguf" || st.Models[0].Type != TypeCausalLM {
		t.Fatalf("handle fields: %+v", st.Models[0])
	}
	if st.ServerTimeUnix < time.Now().Add(-time.Minute).Unix() {
		t.Fatalf("server time: %d", st.ServerTimeUnix)
	}
}

func TestStatus_DoesNotWaitOnGeneration(t *testing.T) {
	env := newTestEnv(t)
	mustRegister(t, env, "opt")
	h := env.m.handle("opt")
	h.mu.Lock()
	defer h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = env.m.Status()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("status blocked on handle lock")
	}
}

func TestAvailableModels(t *testing.T) {
	m := New(Config{Runtime: &fakeRuntime{}})
	list, err := m.AvailableModels()
	if err != nil || len(list) != 0 {
		t.Fatalf("no models dir: %v %v", list, err)
	}
}

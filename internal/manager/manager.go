package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"frequency/internal/registry"
	"frequency/pkg/types"
)

// Manager keeps one resident Handle per loaded model and mirrors model and
// adapter metadata into the Store.
type Manager struct {
	mu      sync.RWMutex
	state   State
	err     string
	handles map[string]*Handle

	store        Store
	runtime      Runtime
	resolver     Resolver
	fetcher      Fetcher
	modelsDir    string
	adapterCache string
	restoreLimit int
	publisher    EventPublisher
	log          zerolog.Logger

	startTime   time.Time
	loads       atomic.Uint64
	generations atomic.Uint64
}

// Ready reports whether startup restore has finished.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateReady
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// recordErr keeps the last error for status reporting.
func (m *Manager) recordErr(err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	m.err = err.Error()
	m.mu.Unlock()
}

// handle returns the resident handle for name, or nil.
func (m *Manager) handle(name string) *Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handles[name]
}

// Loaded reports whether a handle for name is resident.
func (m *Manager) Loaded(name string) bool { return m.handle(name) != nil }

// install publishes h under its name. With replace unset an existing handle
// wins and h is closed; otherwise the previous handle is closed.
func (m *Manager) install(h *Handle, replace bool) bool {
	m.mu.Lock()
	old := m.handles[h.Name]
	if old != nil && !replace {
		m.mu.Unlock()
		_ = h.close()
		return false
	}
	m.handles[h.Name] = h
	n := len(m.handles)
	m.mu.Unlock()
	loadedModels.Set(float64(n))
	if old != nil {
		if err := old.close(); err != nil {
			m.log.Warn().Err(err).Str("model", h.Name).Msg("close replaced handle")
		}
	}
	m.publisher.Publish(Event{Name: "model_loaded", Model: h.Name, Fields: map[string]any{"path": h.Path, "replaced": old != nil}})
	return true
}

// evict drops and closes the handle for name. It reports whether one existed.
func (m *Manager) evict(name string) bool {
	m.mu.Lock()
	h := m.handles[name]
	delete(m.handles, name)
	n := len(m.handles)
	m.mu.Unlock()
	if h == nil {
		return false
	}
	loadedModels.Set(float64(n))
	if err := h.close(); err != nil {
		m.log.Warn().Err(err).Str("model", name).Msg("close evicted handle")
	}
	m.publisher.Publish(Event{Name: "model_evicted", Model: name})
	return true
}

// Close evicts every resident handle.
func (m *Manager) Close() error {
	m.mu.RLock()
	names := make([]string, 0, len(m.handles))
	for name := range m.handles {
		names = append(names, name)
	}
	m.mu.RUnlock()
	for _, name := range names {
		m.evict(name)
	}
	return nil
}

// AvailableModels lists *.gguf files under the configured models directory.
func (m *Manager) AvailableModels() ([]types.AvailableModel, error) {
	if m.modelsDir == "" {
		return []types.AvailableModel{}, nil
	}
	return registry.LoadDir(m.modelsDir)
}

package manager

import (
	"sort"
	"sync"
	"time"

	"frequency/pkg/types"
)

// State is the overall manager state.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Handle is a resident model: tokenizer, weights and the adapters loaded into them.
type Handle struct {
	Name      string
	Type      string
	Path      string
	CUDA      bool
	Tokenizer Tokenizer
	Weights   Weights
	LoadedAt  time.Time

	// mu serializes adapter changes and generation on the weights.
	mu sync.Mutex
	// meta guards the fields below. Writers hold mu and meta; status
	// readers take only meta so they never wait on a generation.
	meta     sync.Mutex
	closed   bool
	adapters map[string]string // adapter name -> local path
	active   string
	lastUsed time.Time
}

func newHandle(spec LoadSpec, tok Tokenizer, w Weights) *Handle {
	now := time.Now()
	return &Handle{
		Name:      spec.Name,
		Type:      spec.Type,
		Path:      spec.Path,
		CUDA:      spec.CUDA,
		Tokenizer: tok,
		Weights:   w,
		LoadedAt:  now,
		adapters:  make(map[string]string),
		lastUsed:  now,
	}
}

// adapterNames returns the sorted adapter names. Caller holds h.mu or h.meta.
func (h *Handle) adapterNames() []string {
	out := make([]string, 0, len(h.adapters))
	for name := range h.adapters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// close releases the weights once. Further operations observe closed.
func (h *Handle) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.meta.Lock()
	h.closed = true
	h.meta.Unlock()
	if h.Weights == nil {
		return nil
	}
	return h.Weights.Close()
}

func (h *Handle) setAdapter(name, path string) {
	h.meta.Lock()
	h.adapters[name] = path
	h.meta.Unlock()
}

func (h *Handle) removeAdapter(name string) {
	h.meta.Lock()
	delete(h.adapters, name)
	if h.active == name {
		h.active = ""
	}
	h.meta.Unlock()
}

func (h *Handle) setActive(name string) {
	h.meta.Lock()
	h.active = name
	h.meta.Unlock()
}

func (h *Handle) touch() {
	h.meta.Lock()
	h.lastUsed = time.Now()
	h.meta.Unlock()
}

// status reports the handle without waiting on an in-flight generation.
func (h *Handle) status() types.LoadedModelStatus {
	h.meta.Lock()
	defer h.meta.Unlock()
	return types.LoadedModelStatus{
		Name:          h.Name,
		Type:          h.Type,
		Path:          h.Path,
		CUDA:          h.CUDA,
		Adapters:      h.adapterNames(),
		ActiveAdapter: h.active,
		LoadedAt:      h.LoadedAt.Unix(),
		LastUsed:      h.lastUsed.Unix(),
	}
}

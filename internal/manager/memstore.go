package manager

import (
	"context"
	"sort"
	"sync"

	"frequency/internal/store"
	"frequency/pkg/types"
)

// MemoryStore is a Store kept in process memory. It mirrors the database
// store: unknown adapter names are dropped from links and deleting an
// adapter unlinks it from every model.
type MemoryStore struct {
	mu       sync.RWMutex
	models   map[string]types.Model
	adapters map[string]types.Adapter
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		models:   make(map[string]types.Model),
		adapters: make(map[string]types.Adapter),
	}
}

func (s *MemoryStore) SaveModel(_ context.Context, m types.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.Adapters = s.knownAdapters(m.Adapters)
	s.models[m.Name] = m
	return nil
}

func (s *MemoryStore) SetModelAdapters(_ context.Context, model string, adapters []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.models[model]
	if !ok {
		return store.ErrNotFound
	}
	m.Adapters = s.knownAdapters(adapters)
	s.models[model] = m
	return nil
}

// knownAdapters filters names to registered adapters, sorted. Caller holds s.mu.
func (s *MemoryStore) knownAdapters(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := s.adapters[n]; !ok {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (s *MemoryStore) FindModel(_ context.Context, name string) (types.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[name]
	if !ok {
		return types.Model{}, store.ErrNotFound
	}
	m.Adapters = append([]string(nil), m.Adapters...)
	return m, nil
}

func (s *MemoryStore) ListModels(_ context.Context) ([]types.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Model, 0, len(s.models))
	for _, m := range s.models {
		m.Adapters = append([]string(nil), m.Adapters...)
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) DeleteModel(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.models[name]; !ok {
		return store.ErrNotFound
	}
	delete(s.models, name)
	return nil
}

func (s *MemoryStore) SaveAdapter(_ context.Context, a types.Adapter) error {
	s.mu.Lock()
	s.adapters[a.Name] = a
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) FindAdapter(_ context.Context, name string) (types.Adapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.adapters[name]
	if !ok {
		return types.Adapter{}, store.ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) ListAdapters(_ context.Context) ([]types.Adapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Adapter, 0, len(s.adapters))
	for _, a := range s.adapters {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) DeleteAdapter(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.adapters[name]; !ok {
		return store.ErrNotFound
	}
	delete(s.adapters, name)
	for key, m := range s.models {
		kept := m.Adapters[:0:0]
		for _, n := range m.Adapters {
			if n != name {
				kept = append(kept, n)
			}
		}
		m.Adapters = kept
		s.models[key] = m
	}
	return nil
}

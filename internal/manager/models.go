package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"frequency/internal/store"
	"frequency/pkg/types"
)

// TypeCausalLM is the only supported generation strategy and the default type.
const TypeCausalLM = "AutoModelForCausalLM"

var supportedTypes = map[string]struct{}{
	TypeCausalLM: {},
}

// RegisterModel loads the weights for repo and records the model under name.
// A model already registered under name is replaced: the new handle takes
// over, the old one is closed, and previously persisted adapters are loaded
// into the new handle when their weights still resolve.
func (m *Manager) RegisterModel(ctx context.Context, name, repo, typ string, cuda bool) (types.Model, error) {
	name = strings.TrimSpace(name)
	repo = strings.TrimSpace(repo)
	if name == "" {
		return types.Model{}, ErrInvalidArgument("model name is required")
	}
	if !validName(name) {
		return types.Model{}, ErrInvalidArgument(fmt.Sprintf("invalid model name %q", name))
	}
	if repo == "" {
		return types.Model{}, ErrInvalidArgument("hf_repo is required")
	}
	if typ == "" {
		typ = TypeCausalLM
	}
	if _, ok := supportedTypes[typ]; !ok {
		return types.Model{}, ErrUnsupportedModelType(typ)
	}

	path, err := m.resolver.Resolve(ctx, repo)
	if err != nil {
		m.recordErr(err)
		return types.Model{}, fmt.Errorf("resolve %s: %w", repo, err)
	}
	h, err := m.load(ctx, LoadSpec{Name: name, Type: typ, Path: path, CUDA: cuda})
	if err != nil {
		return types.Model{}, err
	}

	rec := types.Model{Name: name, Type: typ, HFRepo: repo, CUDA: cuda, Adapters: []string{}}
	prev, err := m.store.FindModel(ctx, name)
	switch {
	case err == nil:
		rec.Adapters = m.reattach(ctx, h, prev.Adapters)
	case !errors.Is(err, store.ErrNotFound):
		_ = h.close()
		return types.Model{}, fmt.Errorf("lookup model %s: %w", name, err)
	}
	if err := m.store.SaveModel(ctx, rec); err != nil {
		_ = h.close()
		m.recordErr(err)
		return types.Model{}, err
	}
	m.install(h, true)
	m.log.Info().Str("model", name).Str("path", path).Int("adapters", len(rec.Adapters)).Msg("model registered")
	return rec, nil
}

// load brings weights into memory and wraps them in a detached Handle.
func (m *Manager) load(ctx context.Context, spec LoadSpec) (*Handle, error) {
	start := time.Now()
	tok, w, err := m.runtime.Load(ctx, spec)
	modelLoads.WithLabelValues(result(err)).Inc()
	if err != nil {
		m.recordErr(err)
		m.log.Error().Err(err).Str("model", spec.Name).Str("path", spec.Path).Msg("load failed")
		return nil, fmt.Errorf("load %s: %w", spec.Name, err)
	}
	modelLoadDuration.Observe(time.Since(start).Seconds())
	m.loads.Add(1)
	return newHandle(spec, tok, w), nil
}

// reattach loads the named adapters into a handle that is not yet installed
// and returns the names that succeeded.
func (m *Manager) reattach(ctx context.Context, h *Handle, names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		a, err := m.store.FindAdapter(ctx, name)
		if err != nil {
			m.log.Warn().Err(err).Str("model", h.Name).Str("adapter", name).Msg("skip adapter: no record")
			continue
		}
		path, err := m.AdapterPath(ctx, a)
		if err == nil {
			err = h.Weights.LoadAdapter(a.Name, path)
		}
		if err != nil {
			m.log.Warn().Err(err).Str("model", h.Name).Str("adapter", name).Msg("skip adapter: load failed")
			continue
		}
		h.setAdapter(a.Name, path)
		out = append(out, a.Name)
	}
	return out
}

// FindModel returns the persisted record for name.
func (m *Manager) FindModel(ctx context.Context, name string) (types.Model, error) {
	rec, err := m.store.FindModel(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return types.Model{}, ErrModelNotFound(name)
	}
	return rec, err
}

// ListModels returns every persisted model record ordered by name.
func (m *Manager) ListModels(ctx context.Context) ([]types.Model, error) {
	return m.store.ListModels(ctx)
}

// DeleteModel evicts the handle for name and removes its record and adapter
// links. Adapter records themselves are kept.
func (m *Manager) DeleteModel(ctx context.Context, name string) error {
	evicted := m.evict(name)
	err := m.store.DeleteModel(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		if evicted {
			return nil
		}
		return ErrModelNotFound(name)
	}
	if err != nil {
		return err
	}
	m.log.Info().Str("model", name).Bool("evicted", evicted).Msg("model deleted")
	return nil
}

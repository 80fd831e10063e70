package manager

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"frequency/internal/common/fsutil"
	"frequency/internal/objstore"
	"frequency/internal/store"
	"frequency/pkg/types"
)

// RegisterAdapter validates and records adapter metadata. Adapters with a
// gs:// URI are fetched into the adapter cache first.
func (m *Manager) RegisterAdapter(ctx context.Context, a types.Adapter) (types.Adapter, error) {
	a.Name = strings.TrimSpace(a.Name)
	a.Model = strings.TrimSpace(a.Model)
	a.URI = strings.TrimSpace(a.URI)
	a.HFRepo = strings.TrimSpace(a.HFRepo)
	switch {
	case a.Name == "":
		return types.Adapter{}, ErrInvalidArgument("adapter name is required")
	case !validName(a.Name):
		return types.Adapter{}, ErrInvalidArgument(fmt.Sprintf("invalid adapter name %q", a.Name))
	case a.Model == "":
		return types.Adapter{}, ErrInvalidArgument("adapter model is required")
	case a.HFRepo == "" && a.URI == "":
		return types.Adapter{}, ErrInvalidArgument("one of hf_repo or uri is required")
	}
	if objstore.IsRemote(a.URI) {
		if _, _, err := objstore.ParseGCSURI(a.URI); err != nil {
			return types.Adapter{}, ErrInvalidStorageURI(a.URI)
		}
		if err := m.fetch(ctx, a); err != nil {
			return types.Adapter{}, err
		}
	}
	if err := m.store.SaveAdapter(ctx, a); err != nil {
		m.recordErr(err)
		return types.Adapter{}, err
	}
	m.log.Info().Str("adapter", a.Name).Str("model", a.Model).Msg("adapter registered")
	return a, nil
}

// LoadAdapter registers a and attaches it to the model it names.
func (m *Manager) LoadAdapter(ctx context.Context, a types.Adapter) (types.Adapter, error) {
	rec, err := m.RegisterAdapter(ctx, a)
	if err != nil {
		return types.Adapter{}, err
	}
	if err := m.AttachAdapter(ctx, rec.Model, rec); err != nil {
		return types.Adapter{}, err
	}
	return rec, nil
}

// AttachAdapter loads adapter weights into the resident handle of model and
// persists the link.
func (m *Manager) AttachAdapter(ctx context.Context, model string, a types.Adapter) (err error) {
	defer func() { adapterOps.WithLabelValues("attach", result(err)).Inc() }()
	h := m.handle(model)
	if h == nil {
		return ErrModelNotLoaded(model)
	}
	path, err := m.AdapterPath(ctx, a)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrModelNotLoaded(model)
	}
	if err := h.Weights.LoadAdapter(a.Name, path); err != nil {
		h.mu.Unlock()
		m.recordErr(err)
		return fmt.Errorf("load adapter %s: %w", a.Name, err)
	}
	h.setAdapter(a.Name, path)
	names := h.adapterNames()
	h.mu.Unlock()

	if err := m.store.SetModelAdapters(ctx, model, names); err != nil {
		return fmt.Errorf("link adapter %s: %w", a.Name, err)
	}
	m.publisher.Publish(Event{Name: "adapter_attached", Model: model, Fields: map[string]any{"adapter": a.Name}})
	return nil
}

// DetachAdapter unloads adapter from the resident handle of model and removes
// the persisted link. A handle whose active adapter is removed falls back to
// the base model.
func (m *Manager) DetachAdapter(ctx context.Context, model, adapter string) (err error) {
	defer func() { adapterOps.WithLabelValues("detach", result(err)).Inc() }()
	h := m.handle(model)
	if h == nil {
		return ErrModelNotLoaded(model)
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrModelNotLoaded(model)
	}
	if _, ok := h.adapters[adapter]; !ok {
		h.mu.Unlock()
		return ErrAdapterNotAttached(model, adapter)
	}
	if err := h.Weights.UnloadAdapter(adapter); err != nil {
		h.mu.Unlock()
		return fmt.Errorf("unload adapter %s: %w", adapter, err)
	}
	h.removeAdapter(adapter)
	names := h.adapterNames()
	h.mu.Unlock()

	if err := m.store.SetModelAdapters(ctx, model, names); err != nil {
		return fmt.Errorf("unlink adapter %s: %w", adapter, err)
	}
	m.publisher.Publish(Event{Name: "adapter_detached", Model: model, Fields: map[string]any{"adapter": adapter}})
	return nil
}

// FindAdapter returns the persisted record for name.
func (m *Manager) FindAdapter(ctx context.Context, name string) (types.Adapter, error) {
	a, err := m.store.FindAdapter(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return types.Adapter{}, ErrAdapterNotFound(name)
	}
	return a, err
}

func (m *Manager) ListAdapters(ctx context.Context) ([]types.Adapter, error) {
	return m.store.ListAdapters(ctx)
}

// DeleteAdapter removes the adapter record and its model links. Weights
// already loaded into resident handles stay until detached or evicted.
func (m *Manager) DeleteAdapter(ctx context.Context, name string) error {
	err := m.store.DeleteAdapter(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return ErrAdapterNotFound(name)
	}
	return err
}

// AdapterPath returns the local weights path for a, fetching remote weights
// into the cache when they are missing.
func (m *Manager) AdapterPath(ctx context.Context, a types.Adapter) (string, error) {
	switch {
	case objstore.IsRemote(a.URI):
		dest, err := m.cachePath(a.Name)
		if err != nil {
			return "", err
		}
		if fsutil.PathExists(dest) {
			return dest, nil
		}
		if err := m.fetch(ctx, a); err != nil {
			return "", err
		}
		return dest, nil
	case a.URI != "":
		p, err := fsutil.ExpandHome(a.URI)
		if err != nil {
			return "", err
		}
		if !fsutil.PathExists(p) {
			return "", fmt.Errorf("adapter %s: no file at %s", a.Name, p)
		}
		return p, nil
	default:
		return m.resolver.Resolve(ctx, a.HFRepo)
	}
}

func (m *Manager) cachePath(name string) (string, error) {
	if !validName(name) {
		return "", ErrInvalidArgument(fmt.Sprintf("invalid adapter name %q", name))
	}
	base, err := fsutil.ExpandHome(m.adapterCache)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, name), nil
}

// validName reports whether name is usable as a single path element and a
// single URL path segment.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

func (m *Manager) fetch(ctx context.Context, a types.Adapter) error {
	if m.fetcher == nil {
		return ErrDependencyUnavailable("object storage fetcher not configured")
	}
	dest, err := m.cachePath(a.Name)
	if err != nil {
		return err
	}
	if err := m.fetcher.Fetch(ctx, a.URI, dest); err != nil {
		m.recordErr(err)
		return fmt.Errorf("fetch adapter %s: %w", a.Name, err)
	}
	return nil
}

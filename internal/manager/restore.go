package manager

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"frequency/internal/store"
	"frequency/pkg/types"
)

// Restore loads every persisted model and re-attaches its persisted adapters.
// Individual failures are logged and kept as the last error; they do not stop
// the remaining models. The manager is Ready once Restore returns, unless the
// model list itself could not be read.
func (m *Manager) Restore(ctx context.Context) error {
	m.setState(StateLoading)
	records, err := m.store.ListModels(ctx)
	if err != nil {
		m.recordErr(err)
		m.setState(StateError)
		return fmt.Errorf("list models: %w", err)
	}

	start := time.Now()
	var failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(m.restoreLimit)
	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			if err := m.restoreModel(ctx, rec); err != nil {
				failed.Add(1)
				m.recordErr(err)
				m.log.Error().Err(err).Str("model", rec.Name).Msg("restore failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	m.setState(StateReady)
	m.log.Info().
		Int("models", len(records)).
		Int32("failed", failed.Load()).
		Dur("took", time.Since(start)).
		Msg("restore complete")
	return nil
}

func (m *Manager) restoreModel(ctx context.Context, rec types.Model) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.Loaded(rec.Name) {
		return nil
	}
	typ := rec.Type
	if typ == "" {
		typ = TypeCausalLM
	}
	path, err := m.resolver.Resolve(ctx, rec.HFRepo)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", rec.HFRepo, err)
	}
	h, err := m.load(ctx, LoadSpec{Name: rec.Name, Type: typ, Path: path, CUDA: rec.CUDA})
	if err != nil {
		return err
	}
	attached := m.reattach(ctx, h, rec.Adapters)
	// A model deleted while its weights were loading stays deleted.
	if _, err := m.store.FindModel(ctx, rec.Name); err != nil {
		_ = h.close()
		if errors.Is(err, store.ErrNotFound) {
			m.log.Info().Str("model", rec.Name).Msg("model deleted during restore, dropping handle")
			return nil
		}
		return fmt.Errorf("recheck %s: %w", rec.Name, err)
	}
	// A model registered while restore was running keeps its newer handle.
	if !m.install(h, false) {
		return nil
	}
	if len(attached) != len(rec.Adapters) {
		m.log.Warn().Str("model", rec.Name).Strs("persisted", rec.Adapters).Strs("attached", attached).Msg("some adapters were not restored")
	}
	return nil
}

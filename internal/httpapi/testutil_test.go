package httpapi

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"frequency/internal/manager"
	"frequency/pkg/types"
)

// mockService is an in-memory Service. Generate echoes the query back one
// word at a time.
type mockService struct {
	mu       sync.Mutex
	ready    bool
	status   types.StatusResponse
	models   map[string]types.Model
	adapters map[string]types.Adapter
	loaded   map[string]bool
	avail    []types.AvailableModel

	genErr      error
	genErrAfter int // fail after this many tokens when genErr is set
	lastGen     manager.GenerateRequest
}

func newMockService() *mockService {
	return &mockService{
		ready:    true,
		models:   make(map[string]types.Model),
		adapters: make(map[string]types.Adapter),
		loaded:   make(map[string]bool),
	}
}

func (m *mockService) Ready() bool                  { return m.ready }
func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) AvailableModels() ([]types.AvailableModel, error) {
	return m.avail, nil
}

func (m *mockService) RegisterModel(_ context.Context, name, repo, typ string, cuda bool) (types.Model, error) {
	if typ == "" {
		typ = manager.TypeCausalLM
	}
	if typ != manager.TypeCausalLM {
		return types.Model{}, manager.ErrUnsupportedModelType(typ)
	}
	if repo == "no-llama" {
		return types.Model{}, manager.ErrDependencyUnavailable("llama support not built")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := types.Model{Name: name, Type: typ, HFRepo: repo, CUDA: cuda, Adapters: []string{}}
	m.models[name] = rec
	m.loaded[name] = true
	return rec, nil
}

func (m *mockService) FindModel(_ context.Context, name string) (types.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.models[name]
	if !ok {
		return types.Model{}, manager.ErrModelNotFound(name)
	}
	return rec, nil
}

func (m *mockService) ListModels(context.Context) ([]types.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Model
	for _, rec := range m.models {
		out = append(out, rec)
	}
	return out, nil
}

func (m *mockService) DeleteModel(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.models[name]; !ok {
		return manager.ErrModelNotFound(name)
	}
	delete(m.models, name)
	delete(m.loaded, name)
	return nil
}

func (m *mockService) LoadAdapter(_ context.Context, a types.Adapter) (types.Adapter, error) {
	if strings.HasPrefix(a.URI, "s3://") {
		return types.Adapter{}, manager.ErrInvalidStorageURI(a.URI)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded[a.Model] {
		return types.Adapter{}, manager.ErrModelNotLoaded(a.Model)
	}
	m.adapters[a.Name] = a
	rec := m.models[a.Model]
	rec.Adapters = append(rec.Adapters, a.Name)
	m.models[a.Model] = rec
	return a, nil
}

func (m *mockService) DetachAdapter(_ context.Context, model, adapter string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded[model] {
		return manager.ErrModelNotLoaded(model)
	}
	rec := m.models[model]
	for i, n := range rec.Adapters {
		if n == adapter {
			rec.Adapters = append(rec.Adapters[:i], rec.Adapters[i+1:]...)
			m.models[model] = rec
			return nil
		}
	}
	return manager.ErrAdapterNotAttached(model, adapter)
}

func (m *mockService) FindAdapter(_ context.Context, name string) (types.Adapter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.adapters[name]
	if !ok {
		return types.Adapter{}, manager.ErrAdapterNotFound(name)
	}
	return a, nil
}

func (m *mockService) ListAdapters(context.Context) ([]types.Adapter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Adapter
	for _, a := range m.adapters {
		out = append(out, a)
	}
	return out, nil
}

func (m *mockService) DeleteAdapter(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.adapters[name]; !ok {
		return manager.ErrAdapterNotFound(name)
	}
	delete(m.adapters, name)
	return nil
}

func (m *mockService) Generate(ctx context.Context, req manager.GenerateRequest, onToken func(string) error) (manager.GenerateResult, error) {
	m.mu.Lock()
	m.lastGen = req
	loaded := m.loaded[req.Model]
	genErr, after := m.genErr, m.genErrAfter
	m.mu.Unlock()
	if !loaded {
		return manager.GenerateResult{}, manager.ErrModelNotLoaded(req.Model)
	}
	if len(req.Adapters) > 1 {
		return manager.GenerateResult{}, manager.ErrMultipleAdapters(len(req.Adapters))
	}
	words := strings.Fields(req.Query)
	for i, w := range words {
		if genErr != nil && i == after {
			return manager.GenerateResult{}, genErr
		}
		if err := ctx.Err(); err != nil {
			return manager.GenerateResult{}, err
		}
		if onToken != nil {
			if err := onToken(w); err != nil {
				return manager.GenerateResult{}, err
			}
		}
	}
	if genErr != nil {
		return manager.GenerateResult{}, genErr
	}
	text := strings.Join(words, " ")
	adapter := ""
	if len(req.Adapters) == 1 {
		adapter = req.Adapters[0]
	}
	history := append(append([]types.ChatTurn(nil), req.History...), types.ChatTurn{Query: req.Query, Response: text})
	return manager.GenerateResult{
		Text:         text,
		History:      history,
		Adapter:      adapter,
		FinishReason: "stop",
		Usage:        types.Usage{PromptTokens: len(words), CompletionTokens: len(words), TotalTokens: 2 * len(words)},
	}, nil
}

// withLoadedModel registers name directly in the mock.
func (m *mockService) withLoadedModel(name string) *mockService {
	m.models[name] = types.Model{Name: name, Type: manager.TypeCausalLM, HFRepo: name + ".gguf", Adapters: []string{}}
	m.loaded[name] = true
	return m
}

func newBufferLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(zerolog.DebugLevel)
}

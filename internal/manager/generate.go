package manager

import (
	"context"
	"strings"
	"time"

	"frequency/pkg/types"
)

// GenerateRequest is a chat turn addressed to a loaded model.
type GenerateRequest struct {
	Model    string
	Query    string
	History  []types.ChatTurn
	Adapters []string
	Params   InferParams
}

// GenerateResult is the decoded completion plus the updated history.
type GenerateResult struct {
	Text         string
	History      []types.ChatTurn
	Adapter      string
	FinishReason string
	Usage        types.Usage
}

// NewGenerateRequest maps an HTTP chat payload onto a GenerateRequest for model.
func NewGenerateRequest(model string, req types.ChatRequest) GenerateRequest {
	return GenerateRequest{
		Model:    model,
		Query:    req.Query,
		History:  req.History,
		Adapters: req.Adapters,
		Params:   paramsFromRequest(req),
	}
}

// Generate runs one chat turn on the resident handle of req.Model. At most one
// adapter may be requested; it must already be attached. onToken, when set,
// receives each decoded piece as it is produced.
func (m *Manager) Generate(ctx context.Context, req GenerateRequest, onToken func(string) error) (res GenerateResult, err error) {
	if strings.TrimSpace(req.Query) == "" {
		return GenerateResult{}, ErrInvalidArgument("query is required")
	}
	h := m.handle(req.Model)
	if h == nil {
		return GenerateResult{}, ErrModelNotLoaded(req.Model)
	}
	if len(req.Adapters) > 1 {
		return GenerateResult{}, ErrMultipleAdapters(len(req.Adapters))
	}
	adapter := ""
	if len(req.Adapters) == 1 {
		adapter = strings.TrimSpace(req.Adapters[0])
	}

	start := time.Now()
	defer func() {
		generations.WithLabelValues(req.Model, result(err)).Inc()
		if err == nil {
			generationDuration.WithLabelValues(req.Model).Observe(time.Since(start).Seconds())
		}
	}()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return GenerateResult{}, ErrModelNotLoaded(req.Model)
	}
	if adapter != "" {
		if _, ok := h.adapters[adapter]; !ok {
			return GenerateResult{}, ErrAdapterNotAttached(req.Model, adapter)
		}
	}
	if h.active != adapter {
		if err := h.Weights.ActivateAdapter(adapter); err != nil {
			m.recordErr(err)
			return GenerateResult{}, err
		}
		h.setActive(adapter)
	}

	prompt := renderPrompt(req.History, req.Query)
	promptTokens := 0
	if h.Tokenizer != nil {
		if toks, terr := h.Tokenizer.Tokenize(prompt); terr == nil {
			promptTokens = len(toks)
		} else {
			m.log.Debug().Err(terr).Str("model", req.Model).Msg("tokenize prompt")
		}
	}

	var text strings.Builder
	pieces := 0
	final, err := h.Weights.Generate(ctx, prompt, req.Params, func(tok string) error {
		text.WriteString(tok)
		pieces++
		if onToken != nil {
			return onToken(tok)
		}
		return nil
	})
	if err != nil {
		m.log.Warn().Err(err).Str("model", req.Model).Str("adapter", adapter).Msg("generate failed")
		return GenerateResult{}, err
	}
	h.touch()

	out := final.Content
	if out == "" {
		out = text.String()
	}
	out = strings.TrimSpace(out)
	usage := final.Usage
	if usage.TotalTokens == 0 {
		usage.PromptTokens = promptTokens
		usage.CompletionTokens = pieces
		usage.TotalTokens = promptTokens + pieces
	}
	finish := final.FinishReason
	if finish == "" {
		finish = "stop"
	}
	history := make([]types.ChatTurn, 0, len(req.History)+1)
	history = append(history, req.History...)
	history = append(history, types.ChatTurn{Query: req.Query, Response: out})

	m.generations.Add(1)
	m.publisher.Publish(Event{Name: "generate_done", Model: req.Model, Fields: map[string]any{
		"adapter":           adapter,
		"completion_tokens": usage.CompletionTokens,
		"duration_ms":       time.Since(start).Milliseconds(),
	}})
	return GenerateResult{
		Text:         out,
		History:      history,
		Adapter:      adapter,
		FinishReason: finish,
		Usage:        usage,
	}, nil
}

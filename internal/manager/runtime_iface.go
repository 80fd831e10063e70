package manager

import (
	"context"

	"frequency/pkg/types"
)

// LoadSpec describes the weights a Runtime should bring into memory.
type LoadSpec struct {
	Name string
	Type string
	// Local path of the weights file.
	Path string
	CUDA bool
}

// Runtime loads model weights and produces a tokenizer/weights pair.
type Runtime interface {
	Load(ctx context.Context, spec LoadSpec) (Tokenizer, Weights, error)
}

// Tokenizer encodes text into model tokens.
type Tokenizer interface {
	Tokenize(text string) ([]int32, error)
}

// Weights is a loaded model capable of hosting adapters and generating text.
// Callers serialize access; implementations need not be safe for concurrent use.
type Weights interface {
	// LoadAdapter registers adapter weights under name without activating them.
	LoadAdapter(name, path string) error
	UnloadAdapter(name string) error
	// ActivateAdapter selects the adapter used by subsequent generations.
	// An empty name selects the base model.
	ActivateAdapter(name string) error
	Generate(ctx context.Context, prompt string, params InferParams, onToken func(string) error) (FinalResult, error)
	Close() error
}

// InferParams carries sampling parameters for a single generation.
type InferParams struct {
	Temperature   float32
	TopP          float32
	TopK          int
	MaxTokens     int
	Stop          []string
	Seed          int
	RepeatPenalty float32
}

// FinalResult is produced at the end of a generation.
type FinalResult struct {
	Content      string
	Usage        types.Usage
	FinishReason string
}

func paramsFromRequest(req types.ChatRequest) InferParams {
	return InferParams{
		Temperature: float32(req.Temperature),
		TopP:        float32(req.TopP),
		TopK:        req.TopK,
		MaxTokens:   req.MaxTokens,
		Stop:        req.Stop,
		Seed:        int(req.Seed),
	}
}

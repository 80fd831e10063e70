package types

// LoadModelRequest is the payload of POST /v1/models.
type LoadModelRequest struct {
	// example: opt
	Name string `json:"name" example:"opt"`
	// Generation strategy tag. Defaults to AutoModelForCausalLM.
	// example: AutoModelForCausalLM
	Type string `json:"type,omitempty" example:"AutoModelForCausalLM"`
	// example: hf://TheBloke/opt-350m-GGUF/opt-350m.Q4_K_M.gguf
	HFRepo string `json:"hf_repo" example:"hf://TheBloke/opt-350m-GGUF/opt-350m.Q4_K_M.gguf"`
	// example: false
	CUDA bool `json:"cuda,omitempty" example:"false"`
}

// ChatRequest is the payload of POST /v1/models/{name}/chat.
type ChatRequest struct {
	// Required query text.
	// example: Hello
	Query string `json:"query" example:"Hello"`
	// Prior turns of the conversation, oldest first.
	History []ChatTurn `json:"history,omitempty"`
	// Adapters to activate for this request. At most one is supported.
	// example: ["adapter_1"]
	Adapters []string `json:"adapters,omitempty" example:"adapter_1"`
	// If true, stream results as NDJSON tokens.
	Stream bool `json:"stream,omitempty"`
	// example: 128
	MaxTokens int `json:"max_tokens,omitempty" example:"128"`
	// example: 0.7
	Temperature float64 `json:"temperature,omitempty" example:"0.7"`
	// example: 0.9
	TopP float64 `json:"top_p,omitempty" example:"0.9"`
	// example: 40
	TopK int `json:"top_k,omitempty" example:"40"`
	Stop []string `json:"stop,omitempty"`
	// example: 42
	Seed int64 `json:"seed,omitempty" example:"42"`
}

// ChatResponse is returned by POST /v1/models/{name}/chat.
type ChatResponse struct {
	// example: chatcmpl-3f1c0d7e-5a3b-4a55-9a8e-1f0d6c1e2b3a
	ID string `json:"id,omitempty"`
	// Decoded completion text.
	Text string `json:"text"`
	// History including the new turn.
	History []ChatTurn `json:"history"`
	// Adapter that was active during generation, if any.
	Adapter      string `json:"adapter,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        Usage  `json:"usage"`
}

// Usage contains token accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ModelsResponse wraps the list of models returned by GET /v1/models.
type ModelsResponse struct {
	Models []Model `json:"models"`
}

// AdaptersResponse wraps the list of adapters returned by GET /v1/adapters.
type AdaptersResponse struct {
	Adapters []Adapter `json:"adapters"`
}

// AvailableModelsResponse wraps GET /v1/models/available.
type AvailableModelsResponse struct {
	Models []AvailableModel `json:"models"`
}

// InfoResponse is returned by GET /v1.
type InfoResponse struct {
	// example: 0.1.0
	Version string `json:"version" example:"0.1.0"`
}

// HealthResponse is returned by GET /v1/health.
type HealthResponse struct {
	// example: ok
	Status string `json:"status" example:"ok"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// LoadedModelStatus summarizes a resident model handle for /v1/status.
type LoadedModelStatus struct {
	// example: opt
	Name string `json:"name" example:"opt"`
	Type string `json:"type"`
	// Local weights path the handle was loaded from.
	Path string `json:"path"`
	CUDA bool   `json:"cuda"`
	// Adapters loaded into the handle.
	Adapters []string `json:"adapters"`
	// Adapter active for the last generation; empty means the base model.
	ActiveAdapter string `json:"active_adapter,omitempty"`
	// example: 1700000000
	LoadedAt int64 `json:"loaded_at_unix" example:"1700000000"`
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix" example:"1700000000"`
}

// StatusResponse is returned by GET /v1/status.
type StatusResponse struct {
	// Overall manager state (loading, ready, error).
	// example: ready
	State  string              `json:"state" example:"ready"`
	Models []LoadedModelStatus `json:"models"`
	// Last error observed by the manager (if any).
	LastError string `json:"last_error,omitempty"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// example: 3
	LoadsTotal uint64 `json:"loads_total" example:"3"`
	// example: 12
	GenerationsTotal uint64 `json:"generations_total" example:"12"`
}

// ChatStreamLine is one NDJSON line of a streamed chat, or one websocket
// message. Token lines carry Token; the last line has Done set and the full
// result; a failure after streaming began is reported in Error.
type ChatStreamLine struct {
	ID           string     `json:"id"`
	Token        string     `json:"token,omitempty"`
	Done         bool       `json:"done,omitempty"`
	Text         string     `json:"text,omitempty"`
	History      []ChatTurn `json:"history,omitempty"`
	Adapter      string     `json:"adapter,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Usage        *Usage     `json:"usage,omitempty"`
	Error        string     `json:"error,omitempty"`
	Code         int        `json:"code,omitempty"`
}

// GatewayResponse is returned by GET /.
type GatewayResponse struct {
	// example: frequency gateway
	Message string `json:"message" example:"frequency gateway"`
}

package types

// Model is the persisted metadata of a registered model.
type Model struct {
	// Unique model name used to address it in requests.
	// example: opt
	Name string `json:"name" example:"opt"`
	// Generation strategy tag.
	// example: AutoModelForCausalLM
	Type string `json:"type" example:"AutoModelForCausalLM"`
	// Source repo identifier: a local path, a bare name under the models dir, or hf://owner/repo/file.gguf.
	// example: hf://TheBloke/opt-350m-GGUF/opt-350m.Q4_K_M.gguf
	HFRepo string `json:"hf_repo" example:"hf://TheBloke/opt-350m-GGUF/opt-350m.Q4_K_M.gguf"`
	// Offload layers to the GPU when loading.
	// example: false
	CUDA bool `json:"cuda" example:"false"`
	// Names of adapters currently attached to the model.
	Adapters []string `json:"adapters"`
}

// Adapter is the persisted metadata of a LoRA-style adapter.
type Adapter struct {
	// Unique adapter name.
	// example: adapter_1
	Name string `json:"name" example:"adapter_1"`
	// Name of the model the adapter applies to.
	// example: opt
	Model string `json:"model" example:"opt"`
	// Source repo identifier of the adapter weights.
	// example: /data/lora/opt-350m-lora.bin
	HFRepo string `json:"hf_repo,omitempty" example:"/data/lora/opt-350m-lora.bin"`
	// Remote object storage URI (gs://bucket/key) of the adapter weights.
	// example: gs://my-bucket/adapters/opt-lora.bin
	URI string `json:"uri,omitempty" example:"gs://my-bucket/adapters/opt-lora.bin"`
}

// ChatTurn is one exchange of a chat history.
type ChatTurn struct {
	Query    string `json:"query"`
	Response string `json:"response"`
}

// AvailableModel is a model file discovered on disk.
type AvailableModel struct {
	// Stable identifier (the file name).
	// example: tinyllama.Q4_K_M.gguf
	ID string `json:"id" example:"tinyllama.Q4_K_M.gguf"`
	// Human-friendly name.
	Name string `json:"name"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/llm/tinyllama.Q4_K_M.gguf
	Path string `json:"path" example:"/home/user/models/llm/tinyllama.Q4_K_M.gguf"`
}

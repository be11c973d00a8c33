package types

// ChatCompletionRequest is the payload for POST /v1/chat/completions.
type ChatCompletionRequest struct {
	// Ordered chat messages, oldest first.
	Messages []ChatMessage `json:"messages"`
	// Sampling temperature (higher = more random). Omitted means the server default.
	// example: 0.2
	Temperature float64 `json:"temperature,omitempty" example:"0.2"`
	// Maximum number of new tokens to generate.
	// example: 1024
	MaxTokens int `json:"max_tokens,omitempty" example:"1024"`
}

// ChatCompletionResponse wraps the extracted completion text.
type ChatCompletionResponse struct {
	// Plain-text assistant completion.
	// example: Dear team, ...
	Content string `json:"content" example:"Dear team, ..."`
}

// StartRequest asks the supervisor to start serving a model.
type StartRequest struct {
	// Registry id or absolute path of a .gguf model file.
	// example: qwen2.5-3b-instruct-q4_k_m.gguf
	Model string `json:"model" example:"qwen2.5-3b-instruct-q4_k_m.gguf"`
	// Context window size override; 0 uses the configured default.
	// example: 4096
	CtxSize int `json:"ctx_size,omitempty" example:"4096"`
	// Thread count override; 0 lets the runtime advisor decide.
	// example: 6
	Threads int `json:"threads,omitempty" example:"6"`
	// GPU layer count override; 0 lets the runtime advisor decide.
	// example: 32
	GPULayers int `json:"gpu_layers,omitempty" example:"32"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// True when at least one server binary exists on this machine.
	// example: true
	Available bool `json:"available" example:"true"`
	// True when a child server process is running.
	// example: true
	Running bool `json:"running" example:"true"`
	// True when the running process is passing health checks.
	// example: true
	Ready bool `json:"ready" example:"true"`
	// True after repeated consecutive health probe failures.
	// example: false
	Degraded bool `json:"degraded" example:"false"`
	// Loopback port the child server is bound to, 0 when stopped.
	// example: 8600
	Port int `json:"port,omitempty" example:"8600"`
	// Absolute path of the served model file.
	ModelPath string `json:"model_path,omitempty"`
	// Base name of the served model file.
	// example: qwen2.5-3b-instruct-q4_k_m.gguf
	ModelName string `json:"model_name,omitempty" example:"qwen2.5-3b-instruct-q4_k_m.gguf"`
	// Active backend id: vulkan, metal, cpu or embedded.
	// example: vulkan
	Backend string `json:"backend,omitempty" example:"vulkan"`
	// True when the active backend is GPU accelerated.
	// example: true
	GPUAccelerated bool `json:"gpu_accelerated" example:"true"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of model files found in the models directory.
	Models []Model `json:"models"`
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

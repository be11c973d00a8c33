package types

// Model represents a discoverable model file on disk.
type Model struct {
	// Stable identifier, derived from the file name.
	// example: qwen2.5-3b-instruct-q4_k_m.gguf
	ID string `json:"id" example:"qwen2.5-3b-instruct-q4_k_m.gguf"`
	// Human-friendly name.
	// example: qwen2.5-3b-instruct-q4_k_m.gguf
	Name string `json:"name" example:"qwen2.5-3b-instruct-q4_k_m.gguf"`
	// Absolute path to the model file.
	// example: /home/user/models/qwen2.5-3b-instruct-q4_k_m.gguf
	Path string `json:"path" example:"/home/user/models/qwen2.5-3b-instruct-q4_k_m.gguf"`
	// File size in bytes.
	// example: 2147483648
	SizeBytes int64 `json:"size_bytes,omitempty" example:"2147483648"`
}

// ChatMessage is a single turn in a chat completion request.
type ChatMessage struct {
	// Role of the author: system, user or assistant.
	// example: user
	Role string `json:"role" example:"user"`
	// Message text.
	// example: Rewrite this transcript as a formal email.
	Content string `json:"content" example:"Rewrite this transcript as a formal email."`
}

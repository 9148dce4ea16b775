package llm

// ChatRequest is the body POSTed to the backend's /api/chat endpoint.
type ChatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	Stream    *bool     `json:"stream,omitempty"` // Ollama streams unless told otherwise
	KeepAlive string    `json:"keep_alive,omitempty"`
	Options   *Options  `json:"options,omitempty"`
}

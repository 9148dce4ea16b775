package gateway

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Prompt              string        `json:"prompt"`
	Image               *ImageInput   `json:"image,omitempty"`
	ConversationHistory []HistoryItem `json:"conversationHistory,omitempty"`
}

// ImageInput is the current turn's image. Type is "base64" for a data URL in
// Data, or "url" for an address to fetch.
type ImageInput struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// HistoryItem is one earlier turn supplied by the caller.
type HistoryItem struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// GenerateResponse is the body of a successful generation.
type GenerateResponse struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Usage reports the backend token counts for one generation.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

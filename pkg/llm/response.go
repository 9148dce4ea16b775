package llm

// ChatResponse is a complete, non-streamed reply from /api/chat. Only the
// message and the two counters are relied on; the rest is kept loose so
// backends that format them differently still decode.
type ChatResponse struct {
	Model     string  `json:"model"`
	CreatedAt string  `json:"created_at"`
	Message   Message `json:"message"`
	Done      bool    `json:"done"`

	TotalDuration   int64 `json:"total_duration,omitempty"`
	PromptEvalCount int   `json:"prompt_eval_count,omitempty"` // Tokens in prompt
	EvalCount       int   `json:"eval_count,omitempty"`        // Generated tokens
}

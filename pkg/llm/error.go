// Package llm holds the Ollama-compatible chat wire types exchanged with the
// vision model backend.
package llm

// ErrorResponse is the body Ollama returns alongside a non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

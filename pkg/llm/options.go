package llm

// Options contains the subset of model parameters the gateway forwards.
type Options struct {
	NumPredict  *int     `json:"num_predict,omitempty"` // Max tokens to generate
	Temperature *float64 `json:"temperature,omitempty"`
}

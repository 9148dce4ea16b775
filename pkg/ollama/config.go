package ollama

import (
	"errors"
	"time"
)

const (
	DefaultURL     = "http://localhost:11434"
	DefaultModel   = "llava"
	DefaultTimeout = 120 * time.Second
)

// Config describes the backend the Client talks to.
type Config struct {
	// URL is the Ollama base URL, without the /api/chat suffix.
	URL   string `toml:"url"`
	Model string `toml:"model"`

	// Timeout bounds a whole completion call, including reading the reply.
	Timeout time.Duration `toml:"timeout"`

	KeepAlive   string   `toml:"keep_alive"`
	NumPredict  int      `toml:"num_predict"`
	Temperature *float64 `toml:"temperature"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		URL:     DefaultURL,
		Model:   DefaultModel,
		Timeout: DefaultTimeout,
	}
}

// Validate checks that the config can be used to reach a backend.
func (c Config) Validate() error {
	var errs []error
	if c.URL == "" {
		errs = append(errs, errors.New("ollama.url must be set"))
	}
	if c.Model == "" {
		errs = append(errs, errors.New("ollama.model must be set"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("ollama.timeout must be > 0"))
	}
	if c.NumPredict < 0 {
		errs = append(errs, errors.New("ollama.num_predict must be >= 0"))
	}
	return errors.Join(errs...)
}

package gateway

// Config is the HTTP server configuration.
type Config struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string `toml:"listen"`

	// BodyLimitMB caps request bodies. Inline images count against it.
	BodyLimitMB int `toml:"body_limit_mb"`

	// CORSOrigins is a comma-separated allow list, or "*".
	CORSOrigins string `toml:"cors_origins"`

	// Metrics mounts the Prometheus handler at /metrics.
	Metrics bool `toml:"metrics"`
}

const (
	DefaultListenAddr  = ":8080"
	DefaultBodyLimitMB = 20
)

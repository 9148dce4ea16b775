// Package config loads visiongate settings from a TOML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/papercomputeco/visiongate/gateway"
	"github.com/papercomputeco/visiongate/pkg/imagesrc"
	"github.com/papercomputeco/visiongate/pkg/ollama"
)

// EnvPrefix prefixes every environment override. Nested keys map to
// VISIONGATE_<TABLE>_<KEY>, e.g. VISIONGATE_IMAGES_MAX_BYTES.
const EnvPrefix = "VISIONGATE"

// envAliases are the short names kept for the most common overrides.
var envAliases = map[string]string{
	"server.listen":        "VISIONGATE_LISTEN",
	"server.cors_origins":  "VISIONGATE_CORS_ORIGINS",
	"server.metrics":       "VISIONGATE_METRICS",
	"images.fetch_timeout": "VISIONGATE_IMAGES_FETCH_TIMEOUT",
	"log.debug":            "VISIONGATE_DEBUG",
	"log.json":             "VISIONGATE_LOG_JSON",
}

// Config is the complete runtime configuration.
type Config struct {
	Server gateway.Config  `toml:"server"`
	Ollama ollama.Config   `toml:"ollama"`
	Images imagesrc.Config `toml:"images"`
	Log    LogConfig       `toml:"log"`
}

// LogConfig selects the log level and encoding.
type LogConfig struct {
	Debug bool `toml:"debug"`
	JSON  bool `toml:"json"`
}

// Default returns a Config with every default filled in.
func Default() Config {
	return Config{
		Server: gateway.Config{
			ListenAddr:  gateway.DefaultListenAddr,
			BodyLimitMB: gateway.DefaultBodyLimitMB,
			CORSOrigins: "*",
		},
		Ollama: ollama.DefaultConfig(),
		Images: imagesrc.Config{
			FetchTimeout: imagesrc.DefaultFetchTimeout,
			MaxBytes:     imagesrc.DefaultMaxBytes,
			UserAgent:    imagesrc.DefaultUserAgent,
		},
	}
}

// Load layers the defaults, the TOML file at path (when non-empty) and
// VISIONGATE_* environment variables, in that order. Unknown keys in the file
// are an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		var raw map[string]any
		if _, err := toml.DecodeFile(path, &raw); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := v.MergeConfigMap(raw); err != nil {
			return nil, fmt.Errorf("merge config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, env, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_"))); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg, decoderOptions); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decoderOptions(dc *mapstructure.DecoderConfig) {
	dc.TagName = "toml"
	dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// setDefaults registers every key so AutomaticEnv can see it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.listen", d.Server.ListenAddr)
	v.SetDefault("server.body_limit_mb", d.Server.BodyLimitMB)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.metrics", d.Server.Metrics)

	v.SetDefault("ollama.url", d.Ollama.URL)
	v.SetDefault("ollama.model", d.Ollama.Model)
	v.SetDefault("ollama.timeout", d.Ollama.Timeout)
	v.SetDefault("ollama.keep_alive", d.Ollama.KeepAlive)
	v.SetDefault("ollama.num_predict", d.Ollama.NumPredict)

	v.SetDefault("images.fetch_timeout", d.Images.FetchTimeout)
	v.SetDefault("images.max_bytes", d.Images.MaxBytes)
	v.SetDefault("images.user_agent", d.Images.UserAgent)

	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.json", d.Log.JSON)
}

// Validate reports every setting that would prevent the server from starting.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen must be set"))
	}
	if c.Server.BodyLimitMB <= 0 {
		errs = append(errs, errors.New("server.body_limit_mb must be > 0"))
	}
	if c.Images.FetchTimeout <= 0 {
		errs = append(errs, errors.New("images.fetch_timeout must be > 0"))
	}
	if c.Images.MaxBytes <= 0 {
		errs = append(errs, errors.New("images.max_bytes must be > 0"))
	}
	if err := c.Ollama.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

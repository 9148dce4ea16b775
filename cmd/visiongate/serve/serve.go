package servecmder

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/visiongate/gateway"
	"github.com/papercomputeco/visiongate/pkg/config"
	"github.com/papercomputeco/visiongate/pkg/imagesrc"
	"github.com/papercomputeco/visiongate/pkg/logger"
	"github.com/papercomputeco/visiongate/pkg/ollama"
)

const serveLongDesc string = `Run the generation gateway.

Settings are read from an optional TOML file, then VISIONGATE_*
environment variables, then flags.

Examples:
  visiongate serve
  visiongate serve --config /etc/visiongate.toml
  visiongate serve --ollama http://gpu-box:11434 --model qwen2.5vl:7b --debug
  visiongate serve --config visiongate.toml --watch`

const serveShortDesc string = "Run the generation gateway"

const shutdownTimeout = 10 * time.Second

type serveCommander struct {
	configPath string
	listen     string
	ollamaURL  string
	model      string
	debug      bool
	watch      bool
}

func NewServeCmd() *cobra.Command {
	return (&serveCommander{}).command()
}

func (cmder *serveCommander) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cmder.loadConfig(cmd)
			if err != nil {
				return err
			}
			return cmder.run(cmd.Context(), cfg, cmd.Flags().Changed("debug"))
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to a TOML config file")
	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", gateway.DefaultListenAddr, "Address to listen on")
	cmd.Flags().StringVar(&cmder.ollamaURL, "ollama", ollama.DefaultURL, "Ollama base URL")
	cmd.Flags().StringVarP(&cmder.model, "model", "m", ollama.DefaultModel, "Vision model name")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&cmder.watch, "watch", false, "Reload the log level when the config file changes")

	return cmd
}

// loadConfig layers explicitly set flags over the file and environment.
func (cmder *serveCommander) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmder.configPath)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.Server.ListenAddr = cmder.listen
	}
	if flags.Changed("ollama") {
		cfg.Ollama.URL = cmder.ollamaURL
	}
	if flags.Changed("model") {
		cfg.Ollama.Model = cmder.model
	}
	if flags.Changed("debug") {
		cfg.Log.Debug = cmder.debug
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cmder *serveCommander) run(ctx context.Context, cfg *config.Config, debugPinned bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	level := logger.Level(cfg.Log.Debug)
	log := logger.NewLeveledLogger(level, cfg.Log.JSON)
	defer func() { _ = log.Sync() }()

	log.Info("visiongate starting",
		zap.String("listen", cfg.Server.ListenAddr),
		zap.String("ollama", cfg.Ollama.URL),
		zap.String("model", cfg.Ollama.Model),
		zap.Duration("backend_timeout", cfg.Ollama.Timeout),
		zap.Bool("debug", cfg.Log.Debug),
	)

	gw := gateway.New(
		cfg.Server,
		imagesrc.NewFetcher(cfg.Images, log),
		ollama.NewClient(cfg.Ollama, log),
		log,
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cmder.watch {
		if err := cmder.watchConfig(ctx, level, debugPinned, log); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- gw.Run()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		if err := gw.Shutdown(shutdownTimeout); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("gateway server failed: %w", err)
		}
		return nil
	}
}

// watchConfig applies [log] debug from the config file as it changes. Only the
// log level is live; other settings need a restart. An explicit --debug flag
// pins the level.
func (cmder *serveCommander) watchConfig(ctx context.Context, level zap.AtomicLevel, debugPinned bool, log *zap.Logger) error {
	if cmder.configPath == "" {
		return errors.New("--watch requires --config")
	}

	return config.Watch(ctx, cmder.configPath, log, func(cfg *config.Config) {
		if debugPinned {
			return
		}
		next := logger.Level(cfg.Log.Debug).Level()
		if next == level.Level() {
			return
		}
		level.SetLevel(next)
		log.Info("log level changed", zap.Stringer("level", next))
	})
}

package mcpcmder

import (
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/papercomputeco/visiongate/gateway"
	"github.com/papercomputeco/visiongate/pkg/config"
	"github.com/papercomputeco/visiongate/pkg/imagesrc"
	"github.com/papercomputeco/visiongate/pkg/logger"
	"github.com/papercomputeco/visiongate/pkg/ollama"
)

const mcpLongDesc string = `Expose the generation pipeline as an MCP server over stdio.

The server offers one tool, "generate", taking a prompt, an optional image
(inline data URL or http(s) address) and optional earlier turns. It talks to
Ollama directly; no HTTP gateway needs to be running. Logs go to stderr.

Examples:
  visiongate mcp
  visiongate mcp --config /etc/visiongate.toml`

const mcpShortDesc string = "Serve the generate tool over MCP stdio"

const (
	serverName    = "visiongate"
	serverVersion = "0.1.0"
	toolName      = "generate"
)

type mcpCommander struct {
	configPath string
}

func NewMCPCmd() *cobra.Command {
	cmder := &mcpCommander{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: mcpShortDesc,
		Long:  mcpLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to a TOML config file")

	return cmd
}

func (c *mcpCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	log := logger.NewLoggerTo(zapcore.Lock(os.Stderr), logger.Level(cfg.Log.Debug), cfg.Log.JSON)
	defer func() { _ = log.Sync() }()

	gw := gateway.New(
		cfg.Server,
		imagesrc.NewFetcher(cfg.Images, log),
		ollama.NewClient(cfg.Ollama, log),
		log,
	)

	log.Info("serving MCP over stdio",
		zap.String("ollama", cfg.Ollama.URL),
		zap.String("model", cfg.Ollama.Model),
	)
	return newServer(gw, log).Run(ctx, &mcp.StdioTransport{})
}

type generateInput struct {
	Prompt    string                `json:"prompt" jsonschema:"question or instruction for the vision model"`
	ImageURL  string                `json:"image_url,omitempty" jsonschema:"http(s) address of an image to attach"`
	ImageData string                `json:"image_data,omitempty" jsonschema:"inline image as a data:image/...;base64,... URL"`
	History   []gateway.HistoryItem `json:"history,omitempty" jsonschema:"earlier turns, oldest first"`
}

type generateTool struct {
	gw     *gateway.Gateway
	logger *zap.Logger
}

func newServer(gw *gateway.Gateway, log *zap.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	tool := &generateTool{gw: gw, logger: log}
	mcp.AddTool(server, &mcp.Tool{
		Name:        toolName,
		Description: "Ask a vision model about a prompt and an optional image. Returns the model's reply text.",
	}, tool.handle)

	return server
}

// handle reports pipeline failures as tool errors carrying the same code and
// message an HTTP caller would see.
func (t *generateTool) handle(ctx context.Context, _ *mcp.CallToolRequest, in generateInput) (*mcp.CallToolResult, any, error) {
	if in.ImageURL != "" && in.ImageData != "" {
		return errorResult(gateway.CodeBadRequest, "set only one of image_url and image_data"), nil, nil
	}

	req := &gateway.GenerateRequest{
		Prompt:              in.Prompt,
		ConversationHistory: in.History,
	}
	switch {
	case in.ImageData != "":
		req.Image = &gateway.ImageInput{Type: string(imagesrc.KindInline), Data: in.ImageData}
	case in.ImageURL != "":
		req.Image = &gateway.ImageInput{Type: string(imagesrc.KindRemote), Data: in.ImageURL}
	}

	resp, err := t.gw.Generate(ctx, req)
	if err != nil {
		env := gateway.Envelope(err)
		t.logger.Warn("generate tool failed", zap.String("code", env.Error.Code), zap.Error(err))
		return errorResult(env.Error.Code, env.Error.Message), nil, nil
	}

	t.logger.Info("generate tool complete",
		zap.String("id", resp.ID),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: resp.Content}},
	}, nil, nil
}

func errorResult(code, message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: code + ": " + message}},
	}
}

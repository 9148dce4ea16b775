// Package gateway serves the multimodal generation API. It validates requests,
// drives image resolution and the backend completion, and maps every failure
// onto a fixed set of client-facing error codes.
package gateway

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/papercomputeco/visiongate/pkg/conversation"
	"github.com/papercomputeco/visiongate/pkg/imagesrc"
	"github.com/papercomputeco/visiongate/pkg/ollama"
)

// outcomeOK labels successful generations; failures carry their error code.
const outcomeOK = "ok"

// Completer produces a completion for a normalized conversation.
// *ollama.Client implements it.
type Completer interface {
	Complete(ctx context.Context, messages []conversation.Message, images []imagesrc.RawImage) (*ollama.Result, error)
}

// Gateway is the HTTP front of the generation pipeline. It keeps no
// conversation state between requests; callers send the full history each time.
type Gateway struct {
	config    Config
	resolver  imagesrc.Resolver
	completer Completer
	logger    *zap.Logger
	server    *fiber.App

	registry    *prometheus.Registry
	generations *prometheus.CounterVec
}

// New creates a Gateway and registers its routes.
func New(config Config, resolver imagesrc.Resolver, completer Completer, logger *zap.Logger) *Gateway {
	if config.BodyLimitMB <= 0 {
		config.BodyLimitMB = DefaultBodyLimitMB
	}

	g := &Gateway{
		config:    config,
		resolver:  resolver,
		completer: completer,
		logger:    logger,
		registry:  prometheus.NewRegistry(),
	}
	g.generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "visiongate",
			Name:      "generate_requests_total",
			Help:      "Generate requests served over HTTP, by outcome code.",
		},
		[]string{"outcome"},
	)
	g.registry.MustRegister(g.generations)

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             config.BodyLimitMB << 20,
		ErrorHandler:          g.handleFiberError,
	})

	app.Use(recover.New())
	if config.CORSOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: config.CORSOrigins,
			AllowMethods: strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions}, ","),
		}))
	}

	app.Post("/api/generate", g.handleGenerate)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	if config.Metrics {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(g.registry, promhttp.HandlerOpts{})))
	}

	g.server = app
	return g
}

// App exposes the underlying fiber app, mainly for tests.
func (g *Gateway) App() *fiber.App {
	return g.server
}

// Run starts the server on the configured listen address.
func (g *Gateway) Run() error {
	g.logger.Info("starting gateway", zap.String("listen", g.config.ListenAddr))
	return g.server.Listen(g.config.ListenAddr)
}

// RunWithListener serves on an existing listener.
func (g *Gateway) RunWithListener(ln net.Listener) error {
	g.logger.Info("starting gateway", zap.String("listen", ln.Addr().String()))
	return g.server.Listener(ln)
}

// Shutdown stops accepting requests and waits for in-flight ones up to timeout.
func (g *Gateway) Shutdown(timeout time.Duration) error {
	return g.server.ShutdownWithTimeout(timeout)
}

// handleFiberError renders errors that escape handlers (routing misses, body
// limit, recovered panics) in the standard envelope.
func (g *Gateway) handleFiberError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		return c.Status(fe.Code).JSON(ErrorEnvelope{Error: ErrorBody{
			Message: fe.Message,
			Code:    CodeBadRequest,
		}})
	}

	g.logger.Error("unhandled error",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(envelopeFor(KindInternal, err))
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

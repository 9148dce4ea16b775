package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/visiongate/pkg/conversation"
	"github.com/papercomputeco/visiongate/pkg/imagesrc"
	"github.com/papercomputeco/visiongate/pkg/llm"
)

// handleGenerate runs one generation. Every failure is classified here and
// nowhere else.
func (g *Gateway) handleGenerate(c *fiber.Ctx) error {
	startTime := time.Now()

	var req GenerateRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return g.writeError(c, &ValidationError{Field: "body", Reason: "invalid JSON", Err: err})
	}

	g.logger.Debug("received generate request",
		zap.Int("history_count", len(req.ConversationHistory)),
		zap.Bool("has_image", req.Image != nil),
		zap.String("prompt_preview", truncate(req.Prompt, 50)),
	)

	// Caller disconnects do not cancel backend work; UserContext is not tied
	// to the connection.
	resp, err := g.Generate(c.UserContext(), &req)
	if err != nil {
		return g.writeError(c, err)
	}
	g.generations.WithLabelValues(outcomeOK).Inc()

	g.logger.Info("generation complete",
		zap.String("id", resp.ID),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("duration", time.Since(startTime)),
	)

	return c.JSON(resp)
}

// Generate validates req, resolves its images and asks the backend for one
// completion. Errors are returned unclassified; use Classify or Envelope.
func (g *Gateway) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	history := make([]conversation.Turn, 0, len(req.ConversationHistory))
	for _, item := range req.ConversationHistory {
		history = append(history, conversation.Turn{
			Role:     item.Role,
			Content:  item.Content,
			ImageURL: item.ImageURL,
		})
	}

	var current *imagesrc.Reference
	if req.Image != nil {
		ref := imagesrc.Reference{Kind: imagesrc.Kind(req.Image.Type), Data: req.Image.Data}
		current = &ref
	}

	messages, images, err := conversation.Normalize(ctx, g.resolver, history, req.Prompt, current)
	if err != nil {
		return nil, err
	}

	result, err := g.completer.Complete(ctx, messages, images)
	if err != nil {
		return nil, err
	}

	return &GenerateResponse{
		ID:      uuid.NewString(),
		Content: result.Content,
		Usage: Usage{
			PromptTokens:     result.PromptTokens,
			CompletionTokens: result.CompletionTokens,
			TotalTokens:      result.PromptTokens + result.CompletionTokens,
		},
	}, nil
}

func (r *GenerateRequest) validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return &ValidationError{Field: "prompt", Reason: "must be a non-empty string"}
	}

	if r.Image != nil {
		switch imagesrc.Kind(r.Image.Type) {
		case imagesrc.KindInline, imagesrc.KindRemote:
		default:
			return &ValidationError{
				Field:  "image.type",
				Reason: fmt.Sprintf("must be %q or %q", imagesrc.KindInline, imagesrc.KindRemote),
			}
		}
		if strings.TrimSpace(r.Image.Data) == "" {
			return &ValidationError{Field: "image.data", Reason: "must be a non-empty string"}
		}
	}

	for i, item := range r.ConversationHistory {
		if item.Role != llm.RoleUser && item.Role != llm.RoleAssistant {
			return &ValidationError{
				Field:  fmt.Sprintf("conversationHistory[%d].role", i),
				Reason: fmt.Sprintf("must be %q or %q", llm.RoleUser, llm.RoleAssistant),
			}
		}
	}

	return nil
}

// writeError classifies err and writes the matching status and envelope.
func (g *Gateway) writeError(c *fiber.Ctx, err error) error {
	kind := Classify(err)
	g.generations.WithLabelValues(kind.Code()).Inc()

	fields := []zap.Field{zap.String("code", kind.Code()), zap.Error(err)}
	switch kind {
	case KindImageFetch, KindBadRequest:
		g.logger.Warn("generate request rejected", fields...)
	default:
		g.logger.Error("generate request failed", fields...)
	}

	return c.Status(kind.Status()).JSON(envelopeFor(kind, err))
}

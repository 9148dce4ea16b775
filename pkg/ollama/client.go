// Package ollama sends normalized conversations to an Ollama-compatible vision
// model and extracts the reply.
package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/visiongate/pkg/conversation"
	"github.com/papercomputeco/visiongate/pkg/imagesrc"
	"github.com/papercomputeco/visiongate/pkg/llm"
)

// Result is the text and token usage of one completion.
type Result struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// Client calls the backend's /api/chat endpoint. It holds no per-request
// state and is safe for concurrent use.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Client. Zero URL, model and timeout take their defaults.
func NewClient(config Config, logger *zap.Logger) *Client {
	defaults := DefaultConfig()
	if config.URL == "" {
		config.URL = defaults.URL
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	config.URL = strings.TrimRight(config.URL, "/")

	return &Client{
		config: config,
		logger: logger,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Complete sends messages to the backend in one non-streaming request. When
// images is non-empty the whole bag is attached to the last user message.
func (c *Client) Complete(ctx context.Context, messages []conversation.Message, images []imagesrc.RawImage) (*Result, error) {
	msgs := attachImages(toBackendMessages(messages), images)

	stream := false
	req := llm.ChatRequest{
		Model:     c.config.Model,
		Messages:  msgs,
		Stream:    &stream,
		KeepAlive: c.config.KeepAlive,
		Options:   c.options(),
	}

	resp, err := c.post(ctx, &req, len(images))
	if err != nil {
		return nil, err
	}

	return &Result{
		Content:          resp.Message.Content,
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
	}, nil
}

func (c *Client) options() *llm.Options {
	if c.config.NumPredict == 0 && c.config.Temperature == nil {
		return nil
	}
	opts := &llm.Options{Temperature: c.config.Temperature}
	if c.config.NumPredict > 0 {
		n := c.config.NumPredict
		opts.NumPredict = &n
	}
	return opts
}

func (c *Client) post(ctx context.Context, req *llm.ChatRequest, imageCount int) (*llm.ChatResponse, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	upstreamURL := c.config.URL + "/api/chat"
	c.logger.Debug("forwarding request to backend",
		zap.String("url", upstreamURL),
		zap.String("model", req.Model),
		zap.Int("message_count", len(req.Messages)),
		zap.Int("image_count", imageCount),
		zap.Int("body_size", len(reqBody)),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, upstreamURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &BackendError{Err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &BackendError{Err: fmt.Errorf("read response: %w", err)}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &BackendError{
			StatusCode: httpResp.StatusCode,
			Message:    backendMessage(body),
		}
	}

	var resp llm.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &BackendError{Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	return &resp, nil
}

// backendMessage prefers Ollama's {"error": ...} body and falls back to the raw text.
func backendMessage(body []byte) string {
	var errResp llm.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return errResp.Error
	}
	return strings.TrimSpace(string(body))
}

func toBackendMessages(messages []conversation.Message) []llm.Message {
	msgs := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Text})
	}
	return msgs
}

// attachImages encodes every image and sets them, in order, on the last user
// message. Without a user message the images are dropped.
func attachImages(msgs []llm.Message, images []imagesrc.RawImage) []llm.Message {
	if len(images) == 0 {
		return msgs
	}

	idx := lastUserIndex(msgs)
	if idx < 0 {
		return msgs
	}

	encoded := make([]string, 0, len(images))
	for _, img := range images {
		encoded = append(encoded, base64.StdEncoding.EncodeToString(img.Data))
	}
	msgs[idx].Images = encoded

	return msgs
}

// lastUserIndex scans backward for the most recent user message, returning -1
// if there is none.
func lastUserIndex(msgs []llm.Message) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == llm.RoleUser {
			return i
		}
	}
	return -1
}

package imagesrc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultFetchTimeout = 30 * time.Second
	DefaultMaxBytes     = 20 << 20 // 20MiB
	DefaultUserAgent    = "visiongate/1.0"
)

// Config tunes remote image retrieval.
type Config struct {
	FetchTimeout time.Duration `toml:"fetch_timeout"`
	MaxBytes     int64         `toml:"max_bytes"`
	UserAgent    string        `toml:"user_agent"`
}

// Fetcher resolves references, fetching remote ones over HTTP. It issues at
// most one round trip per image and never retries.
type Fetcher struct {
	httpClient *http.Client
	maxBytes   int64
	userAgent  string
	logger     *zap.Logger
}

// NewFetcher creates a Fetcher, filling zero config values with defaults.
func NewFetcher(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	return &Fetcher{
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
		maxBytes:   cfg.MaxBytes,
		userAgent:  cfg.UserAgent,
		logger:     logger,
	}
}

// Resolve decodes inline references and fetches remote ones.
func (f *Fetcher) Resolve(ctx context.Context, ref Reference) (RawImage, error) {
	switch ref.Kind {
	case KindInline:
		return DecodeInline(ref.Data)
	case KindRemote:
		return f.FetchRemote(ctx, ref.Data)
	default:
		return RawImage{}, &FormatError{Reason: fmt.Sprintf("unknown image kind %q", ref.Kind)}
	}
}

// FetchRemote GETs address and returns the body as-is. The content type is not
// checked against the inline whitelist; the backend decides what it accepts.
// An empty body is a fetch failure, never an empty image.
func (f *Fetcher) FetchRemote(ctx context.Context, address string) (RawImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return RawImage{}, &FetchError{URL: address, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return RawImage{}, &FetchError{URL: address, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return RawImage{}, &FetchError{URL: address, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return RawImage{}, &FetchError{URL: address, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > f.maxBytes {
		return RawImage{}, &FetchError{URL: address, Err: ErrTooLarge}
	}
	if len(body) == 0 {
		return RawImage{}, &FetchError{URL: address, Err: ErrEmpty}
	}

	f.logger.Debug("fetched remote image",
		zap.String("url", address),
		zap.String("content_type", resp.Header.Get("Content-Type")),
		zap.Int("size", len(body)),
	)

	return RawImage{Data: body, MIMEType: resp.Header.Get("Content-Type")}, nil
}

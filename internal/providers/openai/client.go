// Package openai adapts the OpenAI API (via github.com/sashabaranov/go-openai)
// to the text, image, and speech provider contracts. Every call rotates through
// the configured credential set and retries transient failures per key.
package openai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gopenai "github.com/sashabaranov/go-openai"

	"shortforge/internal/metrics"
	"shortforge/internal/retry"
)

const providerName = "openai"

type base struct {
	keys       string
	baseURL    string
	httpClient *http.Client
	policy     retry.Policy
	logger     *slog.Logger
	provider   string
}

// Option customizes an adapter.
type Option func(*base)

// WithHTTPClient overrides the HTTP client handed to go-openai.
func WithHTTPClient(client *http.Client) Option {
	return func(b *base) {
		if client != nil {
			b.httpClient = client
		}
	}
}

// WithRetryPolicy overrides the per-credential retry policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(b *base) { b.policy = policy }
}

// WithLogger sets the logger used for rotation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(b *base) { b.logger = logger }
}

func newBase(keys, baseURL, provider string, opts []Option) base {
	b := base{
		keys:       strings.TrimSpace(keys),
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		policy:     retry.Policy{Attempts: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second},
		provider:   provider,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b base) client(key string) *gopenai.Client {
	cfg := gopenai.DefaultConfig(key)
	if b.baseURL != "" {
		cfg.BaseURL = b.baseURL
	}
	cfg.HTTPClient = b.httpClient
	return gopenai.NewClientWithConfig(cfg)
}

// invoke runs op under credential rotation with per-key backoff and records metrics.
func invoke[T any](ctx context.Context, b base, operation string, op func(ctx context.Context, client *gopenai.Client) (T, error)) (T, error) {
	started := time.Now()
	value, err := retry.WithRotation(ctx, b.keys, func(ctx context.Context, key string) (T, error) {
		client := b.client(key)
		return retry.Backoff(ctx, b.policy, func(ctx context.Context) (T, error) {
			v, err := op(ctx, client)
			if err != nil {
				return v, normalizeError(operation, err)
			}
			return v, nil
		})
	}, retry.WithProvider(b.provider+" "+operation), retry.WithLogger(b.logger))
	metrics.ObserveProviderCall(b.provider, operation, started, err)
	return value, err
}

// normalizeError maps go-openai error types onto retry.ProviderError so the
// HTTP status drives classification.
func normalizeError(operation string, err error) error {
	var apiErr *gopenai.APIError
	if errors.As(err, &apiErr) {
		return &retry.ProviderError{
			Provider:   providerName,
			Operation:  operation,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
	}
	var reqErr *gopenai.RequestError
	if errors.As(err, &reqErr) {
		return &retry.ProviderError{
			Provider:   providerName,
			Operation:  operation,
			StatusCode: reqErr.HTTPStatusCode,
			Err:        err,
		}
	}
	var provErr *retry.ProviderError
	if errors.As(err, &provErr) {
		return err
	}
	return &retry.ProviderError{Provider: providerName, Operation: operation, Err: err}
}

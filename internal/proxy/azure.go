// Package proxy talks to Azure OpenAI chat deployments.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

const (
	defaultTimeout    = 60 * time.Second
	defaultAPIVersion = "2024-10-21"
)

// ErrEmptyResponse is returned when a completion carries no choices.
var ErrEmptyResponse = errors.New("completion returned no choices")

// Options configures a Client.
type Options struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	Timeout    time.Duration
	MaxRetries int
	// CacheSize bounds the response cache. Zero or less disables it.
	CacheSize int
}

// Client sends chat completions to Azure OpenAI. Identical requests are
// served from an in-memory LRU cache. It is safe for concurrent use.
type Client struct {
	client *openai.Client
	cache  *lru.Cache[string, string]
}

// NewClient creates a client for the Azure resource at opts.Endpoint. The
// model named in each request is used as the deployment name.
func NewClient(opts Options) (*Client, error) {
	if opts.Endpoint == "" || opts.APIKey == "" {
		return nil, errors.New("azure endpoint and api key are required")
	}
	if opts.APIVersion == "" {
		opts.APIVersion = defaultAPIVersion
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	client := openai.NewClient(
		azure.WithEndpoint(strings.TrimRight(opts.Endpoint, "/"), opts.APIVersion),
		azure.WithAPIKey(opts.APIKey),
		option.WithRequestTimeout(opts.Timeout),
		option.WithMaxRetries(max(opts.MaxRetries, 0)),
	)

	c := &Client{client: &client}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, string](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating response cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// Complete sends req and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	key := req.cacheKey()
	if c.cache != nil {
		if out, ok := c.cache.Get(key); ok {
			return out, nil
		}
	}

	var msgs []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	msgs = append(msgs, openai.UserMessage(req.User))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: msgs,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("azure chat completion (%s): %w", req.Model, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	out := resp.Choices[0].Message.Content
	if c.cache != nil {
		c.cache.Add(key, out)
	}
	return out, nil
}

// CacheLen reports how many responses are cached.
func (c *Client) CacheLen() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Len()
}

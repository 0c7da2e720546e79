package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voice-qa-server/internal/observability"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var ErrEmptyEmbedding = errors.New("openai returned no embeddings")

type completeFunc func(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)

type embedFunc func(ctx context.Context, params openai.EmbeddingNewParams) (*openai.CreateEmbeddingResponse, error)

// Client wraps the OpenAI SDK for chat completions and embeddings.
type Client struct {
	complete       completeFunc
	embed          embedFunc
	embeddingModel string
	logger         *observability.Logger
}

func NewClient(apiKey, embeddingModel string, logger *observability.Logger) *Client {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(2),
	)
	return &Client{
		complete: func(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
			return client.Chat.Completions.New(ctx, params)
		},
		embed: func(ctx context.Context, params openai.EmbeddingNewParams) (*openai.CreateEmbeddingResponse, error) {
			return client.Embeddings.New(ctx, params)
		},
		embeddingModel: embeddingModel,
		logger:         logger,
	}
}

// Complete runs one chat completion request.
func (c *Client) Complete(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	start := time.Now()
	resp, err := c.complete(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	c.logger.Metrics(ctx,
		observability.MetricField{Key: "openai_model", Value: resp.Model},
		observability.MetricField{Key: "openai_total_tokens", Value: resp.Usage.TotalTokens},
		observability.MetricField{Key: "openai_latency_ms", Value: time.Since(start).Milliseconds()},
	)
	return resp, nil
}

// Embed returns one embedding per text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := c.embed(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d for %d inputs", ErrEmptyEmbedding, len(resp.Data), len(texts))
	}

	out := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"voice-qa-server/internal/knowledge"
	"voice-qa-server/internal/observability"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
)

var ErrEmptyResponse = errors.New("gemini returned no text")

type generateFunc func(ctx context.Context, prompt string) (string, error)

// GeminiAgent retrieves from every tool and asks Gemini to answer from the
// retrieved passages in a single call.
type GeminiAgent struct {
	generate generateFunc
	tools    []knowledge.Tool
	logger   *observability.Logger
	close    func() error
}

func NewGeminiAgent(ctx context.Context, apiKey, model string, tools []knowledge.Tool, logger *observability.Logger) (*GeminiAgent, error) {
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	m := c.GenerativeModel(model)

	return &GeminiAgent{
		generate: func(ctx context.Context, prompt string) (string, error) {
			resp, err := m.GenerateContent(ctx, genai.Text(prompt))
			if err != nil {
				return "", fmt.Errorf("failed to generate answer: %w", err)
			}
			return responseText(resp)
		},
		tools:  tools,
		logger: logger,
		close:  c.Close,
	}, nil
}

func (g *GeminiAgent) Chat(ctx context.Context, question string) (string, error) {
	passages := make([]string, len(g.tools))
	group, gctx := errgroup.WithContext(ctx)
	for i, tool := range g.tools {
		group.Go(func() error {
			text, err := tool.Engine.Context(gctx, question)
			if err != nil {
				return fmt.Errorf("tool %s failed: %w", tool.Name, err)
			}
			passages[i] = text
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return "", err
	}

	answer, err := g.generate(ctx, groundedPrompt(question, g.tools, passages))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func (g *GeminiAgent) Close() error {
	if g.close == nil {
		return nil
	}
	return g.close()
}

func groundedPrompt(question string, tools []knowledge.Tool, passages []string) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")
	for i, tool := range tools {
		fmt.Fprintf(&b, "Source %s (%s):\n%s\n\n", tool.Name, tool.Description, passages[i])
	}
	fmt.Fprintf(&b, "Question: %s\nAnswer:", question)
	return b.String()
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}

// Package agent implements the question-answering agents that consult the
// knowledge tools through a hosted language model.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"voice-qa-server/internal/knowledge"
	"voice-qa-server/internal/observability"

	"github.com/openai/openai-go"
)

var (
	ErrMaxTurns  = errors.New("agent exceeded max turns")
	ErrNoChoices = errors.New("model returned no choices")
)

const systemPrompt = `You answer questions about Rapamycin asked over the phone.
Use the tools to look up what the source papers say before answering.
Answer in a few plain sentences suitable for reading aloud. If the papers do not cover the question, say so.`

// Completer runs one chat completion request.
type Completer interface {
	Complete(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

type toolArgs struct {
	Input string `json:"input"`
}

// ToolAgent lets an OpenAI chat model call the knowledge tools until it
// produces a final answer or runs out of turns.
type ToolAgent struct {
	completer Completer
	tools     map[string]knowledge.Tool
	params    []openai.ChatCompletionToolParam
	model     string
	maxTurns  int
	logger    *observability.Logger
}

func NewToolAgent(completer Completer, tools []knowledge.Tool, model string, maxTurns int, logger *observability.Logger) *ToolAgent {
	if maxTurns <= 0 {
		maxTurns = 10
	}
	byName := make(map[string]knowledge.Tool, len(tools))
	params := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		byName[t.Name] = t
		params = append(params, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters: openai.FunctionParameters{
					"type": "object",
					"properties": map[string]any{
						"input": map[string]string{
							"type":        "string",
							"description": "Search query for the paper",
						},
					},
					"required": []string{"input"},
				},
			},
		})
	}
	return &ToolAgent{
		completer: completer,
		tools:     byName,
		params:    params,
		model:     model,
		maxTurns:  maxTurns,
		logger:    logger,
	}
}

// Chat answers question. Each model response counts as one turn.
func (a *ToolAgent) Chat(ctx context.Context, question string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(question),
	}

	for turn := 1; turn <= a.maxTurns; turn++ {
		resp, err := a.completer.Complete(ctx, openai.ChatCompletionNewParams{
			Messages: messages,
			Model:    openai.ChatModel(a.model),
			Tools:    a.params,
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", ErrNoChoices
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			return strings.TrimSpace(msg.Content), nil
		}

		messages = append(messages, msg.ToParam())
		for _, call := range msg.ToolCalls {
			out, err := a.callTool(ctx, call.Function.Name, call.Function.Arguments)
			if err != nil {
				return "", err
			}
			messages = append(messages, openai.ToolMessage(out, call.ID))
		}
		a.logger.Debug(observability.WithFields(ctx,
			observability.Field{Key: "turn", Value: turn},
			observability.Field{Key: "tool_calls", Value: len(msg.ToolCalls)},
		), "agent called tools")
	}
	return "", fmt.Errorf("%w (%d)", ErrMaxTurns, a.maxTurns)
}

// callTool runs one tool call. Mistakes by the model (unknown tool, bad
// arguments) are reported back to it as tool output; retrieval failures
// abort the chat.
func (a *ToolAgent) callTool(ctx context.Context, name, arguments string) (string, error) {
	tool, ok := a.tools[name]
	if !ok {
		return fmt.Sprintf("unknown tool %q", name), nil
	}
	var args toolArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil || strings.TrimSpace(args.Input) == "" {
		return `arguments must be a JSON object with a non-empty "input" string`, nil
	}

	out, err := tool.Engine.Context(ctx, args.Input)
	if err != nil {
		return "", fmt.Errorf("tool %s failed: %w", name, err)
	}
	return out, nil
}

package processor

//go:generate go run go.uber.org/mock/mockgen@latest -source=processor.go -destination=mocks_test.go -package=processor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"voice-qa-server/internal/answer"
	"voice-qa-server/internal/observability"
	"voice-qa-server/internal/store"
	voiceProcessor "voice-qa-server/internal/voicecall/processor"
)

var (
	ErrEmptyQuestion     = errors.New("empty question")
	ErrAnswerUnavailable = errors.New("answer unavailable")
	ErrTurnLogDisabled   = errors.New("turn log disabled")
	ErrTurnsNotFound     = errors.New("no turns for call")
)

// AnswerBackend answers one question.
type AnswerBackend interface {
	Answer(ctx context.Context, question string) answer.Result
}

// TurnReader reads the turn log.
type TurnReader interface {
	GetCallTurnsByCallSID(ctx context.Context, callSID string) ([]store.CallTurn, error)
}

// AskResult is the answer in raw and spoken form.
type AskResult struct {
	Answer string `json:"answer"`
	Spoken string `json:"spoken"`
}

type AskProcessor struct {
	backend AnswerBackend
	turns   TurnReader
	logger  *observability.Logger
}

// New creates an AskProcessor. turns may be nil when the turn log is disabled.
func New(backend AnswerBackend, turns TurnReader, logger *observability.Logger) AskProcessor {
	return AskProcessor{backend: backend, turns: turns, logger: logger}
}

// Ask runs question through the same backend the voice routes use.
func (p *AskProcessor) Ask(ctx context.Context, question string) (AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return AskResult{}, ErrEmptyQuestion
	}

	result := p.backend.Answer(ctx, question)
	if !result.OK() {
		err := fmt.Errorf("%w: %s", ErrAnswerUnavailable, result.Reason())
		p.logger.Error(ctx, "failed to answer question", err)
		return AskResult{}, err
	}
	return AskResult{
		Answer: result.Text(),
		Spoken: voiceProcessor.FormatForSpeech(result.Text()),
	}, nil
}

// GetTurns returns the logged turns of a call.
func (p *AskProcessor) GetTurns(ctx context.Context, callSID string) ([]store.CallTurn, error) {
	if p.turns == nil {
		return nil, ErrTurnLogDisabled
	}
	ctx = observability.WithFields(ctx, observability.Field{Key: "call_sid", Value: callSID})

	turns, err := p.turns.GetCallTurnsByCallSID(ctx, callSID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTurnsNotFound
	}
	if err != nil {
		p.logger.Error(ctx, "failed to get call turns", err)
		return nil, fmt.Errorf("failed to get call turns: %w", err)
	}
	return turns, nil
}

// Package processor turns one caller utterance into the voice document that
// answers it.
package processor

import (
	"context"
	"strings"

	"voice-qa-server/internal/voicecall/document"
)

// Outcome names the branch a turn took.
type Outcome string

const (
	OutcomeReprompt Outcome = "reprompt"
	OutcomeAnswered Outcome = "answered"
	OutcomeApology  Outcome = "apology"
	OutcomeHangup   Outcome = "hangup"
)

const reasonUnspeakable = "answer empty after speech formatting"

// TurnConfig holds the per-route text and voice settings for a turn.
type TurnConfig struct {
	// PromptMessage is spoken inside the re-prompt gather.
	PromptMessage string
	// NoSpeechMessage is spoken before hanging up once re-prompts run out.
	NoSpeechMessage string
	// ReentryPath is the callback the re-prompt gather posts to.
	ReentryPath    string
	ApologyMessage string
	VoiceProfile   string
	// Language is the speech recognition language of the gather and the
	// synthesis language of every Say.
	Language string
}

// TurnResult is the document for a turn plus what led to it.
type TurnResult struct {
	Document      document.Document
	Outcome       Outcome
	Question      string
	Answer        string
	FailureReason string
}

// Orchestrator decides between re-prompting, answering and apologizing.
// It holds no per-call state and is safe for concurrent use.
type Orchestrator struct {
	backend AnswerBackend
}

func NewOrchestrator(backend AnswerBackend) *Orchestrator {
	return &Orchestrator{backend: backend}
}

// HandleTurn returns the voice document for spokenText.
func (o *Orchestrator) HandleTurn(ctx context.Context, spokenText string, cfg TurnConfig) document.Document {
	return o.Resolve(ctx, spokenText, cfg).Document
}

// Resolve is HandleTurn with the outcome details kept for logging and the
// turn log. An empty or whitespace-only utterance never reaches the backend;
// otherwise the backend is called exactly once.
func (o *Orchestrator) Resolve(ctx context.Context, spokenText string, cfg TurnConfig) TurnResult {
	question := strings.TrimSpace(spokenText)
	if question == "" {
		prompt := document.Say{Text: cfg.PromptMessage}
		return TurnResult{
			Document: document.New(document.NewSpeechGather(cfg.ReentryPath, cfg.Language, prompt)),
			Outcome:  OutcomeReprompt,
		}
	}

	result := o.backend.Answer(ctx, question)
	if !result.OK() {
		return apology(question, result.Reason(), cfg)
	}

	spoken := FormatForSpeech(result.Text())
	if strings.TrimSpace(spoken) == "" {
		return apology(question, reasonUnspeakable, cfg)
	}

	return TurnResult{
		Document: document.New(document.Say{Text: spoken, Voice: cfg.VoiceProfile, Language: cfg.Language}),
		Outcome:  OutcomeAnswered,
		Question: question,
		Answer:   spoken,
	}
}

// Goodbye ends the call after the caller stayed silent through every re-prompt.
func (o *Orchestrator) Goodbye(cfg TurnConfig) TurnResult {
	return TurnResult{
		Document: document.New(
			document.Say{Text: cfg.NoSpeechMessage, Voice: cfg.VoiceProfile, Language: cfg.Language},
			document.Hangup{},
		),
		Outcome: OutcomeHangup,
	}
}

func apology(question, reason string, cfg TurnConfig) TurnResult {
	return TurnResult{
		Document:      document.New(document.Say{Text: cfg.ApologyMessage, Language: cfg.Language}),
		Outcome:       OutcomeApology,
		Question:      question,
		FailureReason: reason,
	}
}

package handler

import (
	"context"

	"voice-qa-server/internal/config"
	"voice-qa-server/internal/observability"
	"voice-qa-server/internal/store"
	"voice-qa-server/internal/voicecall/processor"
)

const (
	PathVoice          = "/voice"
	PathHandleResponse = "/handle_response"
	PathProcessSpeech  = "/process_speech"
)

// TurnRecorder receives every completed turn. Record must not block.
type TurnRecorder interface {
	Record(ctx context.Context, turn store.CallTurn)
}

type Handler struct {
	orchestrator *processor.Orchestrator
	recorder     TurnRecorder
	voice        config.VoiceConfig
	policy       processor.RepromptPolicy
	logger       *observability.Logger
}

func New(orchestrator *processor.Orchestrator, recorder TurnRecorder, voice config.VoiceConfig, logger *observability.Logger) Handler {
	return Handler{
		orchestrator: orchestrator,
		recorder:     recorder,
		voice:        voice,
		policy:       processor.RepromptPolicy{MaxReprompts: voice.MaxReprompts},
		logger:       logger,
	}
}

// turnConfig builds the per-turn settings. prompt is spoken if the turn
// ends up gathering again; reentry is where that gather posts.
func (h *Handler) turnConfig(prompt, reentry string) processor.TurnConfig {
	return processor.TurnConfig{
		PromptMessage:   prompt,
		NoSpeechMessage: h.voice.NoSpeechMessage,
		ReentryPath:     reentry,
		ApologyMessage:  h.voice.ApologyMessage,
		VoiceProfile:    h.voice.VoiceProfile,
		Language:        h.voice.Language,
	}
}

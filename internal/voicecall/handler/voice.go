package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"voice-qa-server/internal/observability"
	"voice-qa-server/internal/store"
	"voice-qa-server/internal/voicecall/document"
	"voice-qa-server/internal/voicecall/processor"

	"github.com/gin-gonic/gin"
)

// HandleVoice is the entry webhook of a call. On first contact it asks the
// caller for a question; a request that already carries speech is answered
// directly.
func (h *Handler) HandleVoice(c *gin.Context) {
	defer h.recoverWithFallback(c, "voice")
	start := time.Now()

	speech := formValue(c, "SpeechResult")
	cfg := h.turnConfig(h.voice.GreetingMessage, processor.WithAttempt(PathHandleResponse, 1))

	result := h.orchestrator.Resolve(c.Request.Context(), speech, cfg)
	h.respond(c, "voice", 1, result, start)
}

// HandleResponse returns the re-entry webhook mounted at path. Silent turns
// re-prompt until the attempt budget is spent, then the call is ended.
func (h *Handler) HandleResponse(path string) gin.HandlerFunc {
	route := strings.TrimPrefix(path, "/")
	return func(c *gin.Context) {
		defer h.recoverWithFallback(c, route)
		start := time.Now()

		attempt := processor.ParseAttempt(c.Query(processor.AttemptParam))
		speech := formValue(c, "SpeechResult")

		if strings.TrimSpace(speech) == "" && h.policy.Exhausted(attempt) {
			h.respond(c, route, attempt, h.orchestrator.Goodbye(h.turnConfig(h.voice.PromptMessage, path)), start)
			return
		}

		cfg := h.turnConfig(h.voice.PromptMessage, processor.WithAttempt(path, attempt+1))
		result := h.orchestrator.Resolve(c.Request.Context(), speech, cfg)
		h.respond(c, route, attempt, result, start)
	}
}

func (h *Handler) respond(c *gin.Context, route string, attempt int, result processor.TurnResult, start time.Time) {
	ctx := observability.WithFields(c.Request.Context(), observability.CallFields(c)...)
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "route", Value: route},
		observability.Field{Key: "attempt", Value: attempt},
		observability.Field{Key: "confidence", Value: formValue(c, "Confidence")},
	)

	twimlResult, err := result.Document.Render()
	if err != nil {
		h.logger.Error(ctx, "failed to render voice document, using fallback", err)
		twimlResult = document.Fallback(h.voice.ApologyMessage)
		result.Outcome = processor.OutcomeApology
		if result.FailureReason == "" {
			result.FailureReason = err.Error()
		}
	}

	if result.FailureReason != "" {
		h.logger.Error(ctx, "answer backend failed", errors.New(result.FailureReason))
	}
	latency := time.Since(start)
	h.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "outcome", Value: string(result.Outcome)},
		observability.Field{Key: "latency_ms", Value: latency.Milliseconds()},
	), "voice turn handled")
	observability.VoiceTurnsTotal.WithLabelValues(route, string(result.Outcome)).Inc()

	h.recorder.Record(ctx, store.CallTurn{
		CallSID:       formValue(c, "CallSid"),
		Route:         route,
		Attempt:       attempt,
		Outcome:       string(result.Outcome),
		Question:      result.Question,
		Answer:        result.Answer,
		FailureReason: result.FailureReason,
		LatencyMS:     latency.Milliseconds(),
	})

	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, twimlResult)
}

// recoverWithFallback keeps a panic from reaching the caller as silence.
func (h *Handler) recoverWithFallback(c *gin.Context, route string) {
	r := recover()
	if r == nil {
		return
	}
	h.logger.Error(c.Request.Context(), "voice handler panicked", fmt.Errorf("panic: %v", r))
	observability.VoiceTurnsTotal.WithLabelValues(route, string(processor.OutcomeApology)).Inc()
	if c.Writer.Written() {
		return
	}
	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, document.Fallback(h.voice.ApologyMessage))
}

// formValue reads a Twilio parameter from the POST body, falling back to the
// query string for webhooks configured with GET.
func formValue(c *gin.Context, key string) string {
	if v, ok := c.GetPostForm(key); ok {
		return v
	}
	return c.Query(key)
}

package handler

import (
	"net/http"

	"voice-qa-server/internal/apierrors"
	"voice-qa-server/internal/ask/processor"
	"voice-qa-server/internal/observability"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	processor processor.AskProcessor
	logger    *observability.Logger
}

type AskRequest struct {
	Question string `json:"question" binding:"required,max=1000"`
}

type AskResponse struct {
	processor.AskResult
	OK bool `json:"ok"`
}

func New(processor processor.AskProcessor, logger *observability.Logger) Handler {
	return Handler{processor: processor, logger: logger}
}

// HandleAsk answers a typed question with the voice backend.
func (h *Handler) HandleAsk(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	result, err := h.processor.Ask(c.Request.Context(), req.Question)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, AskResponse{AskResult: result, OK: true})
}

// HandleGetTurns returns the logged turns of one call.
func (h *Handler) HandleGetTurns(c *gin.Context) {
	turns, err := h.processor.GetTurns(c.Request.Context(), c.Param("callSid"))
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call_sid": c.Param("callSid"), "turns": turns})
}

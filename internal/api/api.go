package api

import (
	"net/http"

	askHandler "voice-qa-server/internal/ask/handler"
	"voice-qa-server/internal/auth"
	"voice-qa-server/internal/ratelimit"
	voiceCallHandler "voice-qa-server/internal/voicecall/handler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type API struct {
	router           *gin.RouterGroup
	voiceCallHandler voiceCallHandler.Handler
	askHandler       askHandler.Handler
	// signature is nil when webhook signature checks are off.
	signature *voiceCallHandler.SignatureValidator
	askLimit  *ratelimit.Limiter
	// operator guards the turn log, which holds callers' questions.
	operator *auth.OperatorAuth
}

func New(
	router *gin.RouterGroup,
	voiceCallHandler voiceCallHandler.Handler,
	askHandler askHandler.Handler,
	signature *voiceCallHandler.SignatureValidator,
	askLimit *ratelimit.Limiter,
	operator *auth.OperatorAuth,
) API {
	return API{
		router:           router,
		voiceCallHandler: voiceCallHandler,
		askHandler:       askHandler,
		signature:        signature,
		askLimit:         askLimit,
		operator:         operator,
	}
}

func (a *API) RegisterRoutes() {
	a.Health()
	a.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var webhookMiddleware []gin.HandlerFunc
	if a.signature != nil {
		webhookMiddleware = append(webhookMiddleware, a.signature.Middleware())
	}
	voiceGroup := a.router.Group("/", webhookMiddleware...)
	{
		voiceGroup.POST(voiceCallHandler.PathVoice, a.voiceCallHandler.HandleVoice)
		voiceGroup.GET(voiceCallHandler.PathVoice, a.voiceCallHandler.HandleVoice)
		voiceGroup.POST(voiceCallHandler.PathHandleResponse, a.voiceCallHandler.HandleResponse(voiceCallHandler.PathHandleResponse))
		voiceGroup.POST(voiceCallHandler.PathProcessSpeech, a.voiceCallHandler.HandleResponse(voiceCallHandler.PathProcessSpeech))
	}

	apiGroup := a.router.Group("/api")
	{
		askMiddleware := []gin.HandlerFunc{}
		if a.askLimit != nil {
			askMiddleware = append(askMiddleware, a.askLimit.Middleware())
		}
		apiGroup.POST("/ask", append(askMiddleware, a.askHandler.HandleAsk)...)
		apiGroup.GET("/turns/:callSid", a.operator.Middleware(), a.askHandler.HandleGetTurns)
	}
}

func (a *API) Health() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
}

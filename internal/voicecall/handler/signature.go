package handler

import (
	"net/http"
	"strings"

	"voice-qa-server/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/client"
)

const signatureHeader = "X-Twilio-Signature"

// SignatureValidator rejects webhook requests that are not signed with the
// account's auth token.
type SignatureValidator struct {
	validator     client.RequestValidator
	publicBaseURL string
	logger        *observability.Logger
}

// NewSignatureValidator creates a validator. publicBaseURL is the scheme and
// host Twilio was configured with; when empty it is derived from the request.
func NewSignatureValidator(authToken, publicBaseURL string, logger *observability.Logger) *SignatureValidator {
	return &SignatureValidator{
		validator:     client.NewRequestValidator(authToken),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}
}

// Middleware aborts with 403 when the signature is missing or wrong.
func (v *SignatureValidator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		signature := c.GetHeader(signatureHeader)
		if signature == "" {
			v.logger.Warn(ctx, "rejected webhook without signature")
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		if err := c.Request.ParseForm(); err != nil {
			v.logger.Error(ctx, "failed to parse webhook form", err)
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		params := make(map[string]string, len(c.Request.PostForm))
		for key, values := range c.Request.PostForm {
			if len(values) > 0 {
				params[key] = values[0]
			}
		}

		url := v.signedURL(c)
		if !v.validator.Validate(url, params, signature) {
			v.logger.Warn(observability.WithFields(ctx,
				observability.Field{Key: "url", Value: url},
				observability.Field{Key: "ip", Value: observability.GetRealClientIP(c)},
			), "rejected webhook with invalid signature")
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

func (v *SignatureValidator) signedURL(c *gin.Context) string {
	base := v.publicBaseURL
	if base == "" {
		scheme := c.GetHeader("X-Forwarded-Proto")
		if scheme == "" {
			scheme = "https"
			if c.Request.TLS == nil {
				scheme = "http"
			}
		}
		base = scheme + "://" + c.Request.Host
	}
	return base + c.Request.URL.RequestURI()
}

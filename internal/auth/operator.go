package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"voice-qa-server/internal/apierrors"
	"voice-qa-server/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNotConfigured = errors.New("operator authentication is not configured")
	ErrMissingToken  = errors.New("authorization token is missing or invalid")
	ErrExpiredToken  = errors.New("token expired")
	ErrInvalidToken  = errors.New("invalid token")
	ErrEmptySubject  = errors.New("token subject is empty")
)

const (
	tokenIssuer   = "voice-qa-server"
	tokenAudience = "voice-qa-operator"

	// OperatorIDKey is the gin context key holding the authenticated operator.
	OperatorIDKey = "Operator-ID"
)

// OperatorAuth issues and checks the HS256 bearer tokens that guard the
// turn log API. With an empty secret every request is refused.
type OperatorAuth struct {
	secret []byte
	logger *observability.Logger
	now    func() time.Time
}

func NewOperatorAuth(secret string, logger *observability.Logger) *OperatorAuth {
	return &OperatorAuth{
		secret: []byte(secret),
		logger: logger,
		now:    time.Now,
	}
}

func (a *OperatorAuth) Enabled() bool {
	return a != nil && len(a.secret) > 0
}

// IssueToken signs a token for subject valid for ttl.
func (a *OperatorAuth) IssueToken(subject string, ttl time.Duration) (string, error) {
	if !a.Enabled() {
		return "", ErrNotConfigured
	}
	if subject == "" {
		return "", ErrEmptySubject
	}
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    tokenIssuer,
		Audience:  jwt.ClaimStrings{tokenAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign operator token: %w", err)
	}
	return token, nil
}

// ValidateToken parses token and returns its subject.
func (a *OperatorAuth) ValidateToken(ctx context.Context, token string) (string, error) {
	if !a.Enabled() {
		return "", ErrNotConfigured
	}

	var claims jwt.RegisteredClaims
	t, err := jwt.ParseWithClaims(token, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		a.logger.Warn(observability.WithFields(ctx,
			observability.Field{Key: "error_message", Value: err.Error()},
		), "failed to parse operator token")
		return "", ErrInvalidToken
	}
	if !t.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrEmptySubject
	}
	return claims.Subject, nil
}

// Middleware requires "Authorization: Bearer <token>" and stores the
// operator under OperatorIDKey.
func (a *OperatorAuth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			apierrors.RespondWithError(c, apierrors.Unauthorized("Authorization token is missing or invalid", ErrMissingToken))
			return
		}

		operator, err := a.ValidateToken(ctx, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			message := "Authorization token is missing or invalid"
			switch {
			case errors.Is(err, ErrExpiredToken):
				message = "Authorization token has expired"
			case errors.Is(err, ErrNotConfigured):
				a.logger.Warn(ctx, "operator request refused, OPERATOR_JWT_SECRET is not set")
			}
			apierrors.RespondWithError(c, apierrors.Unauthorized(message, err))
			return
		}

		c.Set(OperatorIDKey, operator)
		c.Request = c.Request.WithContext(observability.WithFields(ctx,
			observability.Field{Key: "operator_id", Value: operator},
		))
		c.Next()
	}
}

package apierrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"voice-qa-server/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var logger = observability.NewLogger()

// ErrorResponse is the JSON structure returned to API clients for errors
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RespondWithError maps err and sends the sanitized response.
func RespondWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	apiErr := MapError(err)

	ctx := observability.WithFields(c.Request.Context(),
		observability.Field{Key: "status_code", Value: apiErr.StatusCode},
		observability.Field{Key: "error_code", Value: apiErr.Code},
	)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		logger.Error(ctx, "API error response", err)
	} else {
		logger.Info(ctx, "API error response")
	}

	c.AbortWithStatusJSON(apiErr.StatusCode, ErrorResponse{
		Error: apiErr.Message,
		Code:  apiErr.Code,
	})
}

// RespondWithValidationError handles gin binding and validation errors.
func RespondWithValidationError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	message := "Invalid request format. Please check your JSON syntax."
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		message = buildValidationMessage(validationErrs)
	}
	logger.Info(observability.WithFields(c.Request.Context(),
		observability.Field{Key: "error_message", Value: err.Error()},
	), "request validation failed")

	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error: message,
		Code:  CodeInvalidInput,
	})
}

func buildValidationMessage(validationErrs validator.ValidationErrors) string {
	if len(validationErrs) == 1 {
		return getValidationMessage(validationErrs[0])
	}
	messages := make([]string, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		messages = append(messages, getValidationMessage(fieldErr))
	}
	return "Validation failed: " + strings.Join(messages, "; ")
}

func getValidationMessage(fieldErr validator.FieldError) string {
	field := fieldErr.Field()
	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fieldErr.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fieldErr.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fieldErr.Tag())
	}
}

package apierrors

import (
	"errors"

	askProcessor "voice-qa-server/internal/ask/processor"
	"voice-qa-server/internal/store"
)

// MapError converts domain errors to APIErrors. Unknown errors become a
// sanitized 500.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, askProcessor.ErrEmptyQuestion):
		return BadRequest(CodeInvalidInput, "Question must not be empty")

	case errors.Is(err, askProcessor.ErrAnswerUnavailable):
		return ServiceUnavailable(CodeAnswerUnavailable,
			"The answer service is temporarily unavailable. Please try again later.", err)

	case errors.Is(err, askProcessor.ErrTurnLogDisabled):
		return ServiceUnavailable(CodeTurnLogDisabled, "Turn log is not enabled", err)

	case errors.Is(err, askProcessor.ErrTurnsNotFound), errors.Is(err, store.ErrNotFound):
		return NotFound(CodeTurnsNotFound, "No turns recorded for this call")

	default:
		return InternalError(err)
	}
}

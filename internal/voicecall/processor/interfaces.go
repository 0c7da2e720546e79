package processor

//go:generate go run go.uber.org/mock/mockgen@latest -source=interfaces.go -destination=mocks_test.go -package=processor

import (
	"context"

	"voice-qa-server/internal/answer"
)

// AnswerBackend answers one question. Implementations must not panic and
// must report every failure as a failed answer.Result.
type AnswerBackend interface {
	Answer(ctx context.Context, question string) answer.Result
}

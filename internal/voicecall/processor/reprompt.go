package processor

import (
	"net/url"
	"strconv"
)

// AttemptParam is the callback query parameter carrying the number of
// gathers the caller has already answered with silence.
const AttemptParam = "attempt"

// RepromptPolicy caps how many times a silent caller is asked again.
// MaxReprompts of 0 hangs up on the first silent turn.
type RepromptPolicy struct {
	MaxReprompts int
}

// Exhausted reports whether a silent turn at attempt should end the call.
func (p RepromptPolicy) Exhausted(attempt int) bool {
	return attempt > p.MaxReprompts
}

// ParseAttempt reads the attempt counter from a query value. Missing or
// malformed values count as the first attempt.
func ParseAttempt(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// WithAttempt returns path with the attempt query parameter set.
func WithAttempt(path string, attempt int) string {
	u, err := url.Parse(path)
	if err != nil {
		return path
	}
	q := u.Query()
	q.Set(AttemptParam, strconv.Itoa(attempt))
	u.RawQuery = q.Encode()
	return u.String()
}

package answer

//go:generate go run go.uber.org/mock/mockgen@latest -source=adapter.go -destination=mocks_test.go -package=answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"voice-qa-server/internal/observability"

	"github.com/sony/gobreaker"
)

var (
	ErrEmptyQuestion  = errors.New("empty question")
	ErrEmptyAnswer    = errors.New("backend returned an empty answer")
	ErrBackendTimeout = errors.New("backend timed out")
	ErrBackendPanic   = errors.New("backend panicked")
	ErrCircuitOpen    = errors.New("backend circuit open")
)

// Agent is the external question-answering system (retrieval plus reasoning).
type Agent interface {
	Chat(ctx context.Context, question string) (string, error)
}

// Cache stores answers for repeated questions.
type Cache interface {
	// Get returns the cached answer and whether it was found.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Config controls the adapter's timeout, cache and breaker behaviour.
type Config struct {
	Timeout  time.Duration
	CacheTTL time.Duration

	// BreakerFailures is the number of consecutive failures that opens the breaker.
	BreakerFailures uint32
	// BreakerCooldown is how long the breaker stays open before probing again.
	BreakerCooldown time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:         12 * time.Second,
		CacheTTL:        time.Hour,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
	}
}

// Adapter wraps an Agent so that every call yields a Result within the
// configured timeout. It is safe for concurrent use.
type Adapter struct {
	agent   Agent
	cache   Cache
	config  Config
	breaker *gobreaker.CircuitBreaker
	logger  *observability.Logger
}

// NewAdapter creates an Adapter. A nil cache disables caching.
func NewAdapter(agent Agent, cache Cache, config Config, logger *observability.Logger) *Adapter {
	defaults := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.BreakerFailures == 0 {
		config.BreakerFailures = defaults.BreakerFailures
	}
	if config.BreakerCooldown <= 0 {
		config.BreakerCooldown = defaults.BreakerCooldown
	}
	if cache == nil {
		cache = NoopCache{}
	}

	a := &Adapter{
		agent:  agent,
		cache:  cache,
		config: config,
		logger: logger,
	}
	a.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "answer-backend",
		MaxRequests: 1,
		Timeout:     config.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.BreakerFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			observability.BreakerStateChanges.WithLabelValues(to.String()).Inc()
			logger.Warn(observability.WithFields(context.Background(),
				observability.Field{Key: "breaker", Value: name},
				observability.Field{Key: "from", Value: from.String()},
				observability.Field{Key: "to", Value: to.String()},
			), "Answer backend circuit breaker state changed")
		},
	})
	return a
}

// Answer asks the agent one question. It never panics and never returns an
// error; every failure is reported as a Failed result.
func (a *Adapter) Answer(ctx context.Context, question string) Result {
	question = strings.TrimSpace(question)
	if question == "" {
		return Failed(ErrEmptyQuestion.Error())
	}

	key := CacheKey(question)
	if cached, ok := a.lookup(ctx, key); ok {
		return Answered(cached)
	}

	start := time.Now()
	out, err := a.breaker.Execute(func() (interface{}, error) {
		return a.chat(ctx, question)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	if err != nil {
		observability.AnswerLatency.WithLabelValues("failed").Observe(time.Since(start).Seconds())
		return Failed(err.Error())
	}
	observability.AnswerLatency.WithLabelValues("answered").Observe(time.Since(start).Seconds())

	text := out.(string)
	if err := a.cache.Set(ctx, key, text, a.config.CacheTTL); err != nil {
		a.logger.Error(ctx, "failed to cache answer", err)
	}
	return Answered(text)
}

func (a *Adapter) lookup(ctx context.Context, key string) (string, bool) {
	cached, ok, err := a.cache.Get(ctx, key)
	switch {
	case err != nil:
		observability.AnswerCacheTotal.WithLabelValues("error").Inc()
		a.logger.Error(ctx, "answer cache lookup failed", err)
		return "", false
	case ok && cached != "":
		observability.AnswerCacheTotal.WithLabelValues("hit").Inc()
		return cached, true
	default:
		observability.AnswerCacheTotal.WithLabelValues("miss").Inc()
		return "", false
	}
}

type chatOutcome struct {
	text string
	err  error
}

// chat runs the agent under the adapter timeout. The agent runs in its own
// goroutine so an agent that ignores ctx cannot hold the turn past the bound.
func (a *Adapter) chat(ctx context.Context, question string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	done := make(chan chatOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- chatOutcome{err: fmt.Errorf("%w: %v", ErrBackendPanic, r)}
			}
		}()
		text, err := a.agent.Chat(ctx, question)
		done <- chatOutcome{text: text, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) {
				return "", fmt.Errorf("%w after %s: %w", ErrBackendTimeout, a.config.Timeout, res.err)
			}
			return "", fmt.Errorf("agent chat failed: %w", res.err)
		}
		if strings.TrimSpace(res.text) == "" {
			return "", ErrEmptyAnswer
		}
		return res.text, nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w after %s: %w", ErrBackendTimeout, a.config.Timeout, ctx.Err())
	}
}

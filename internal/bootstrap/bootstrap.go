package bootstrap

import (
	"context"
	"fmt"

	"voice-qa-server/internal/agent"
	"voice-qa-server/internal/answer"
	askHandler "voice-qa-server/internal/ask/handler"
	askProcessor "voice-qa-server/internal/ask/processor"
	"voice-qa-server/internal/auth"
	openaiClient "voice-qa-server/internal/clients/openai"
	redisClient "voice-qa-server/internal/clients/redis"
	"voice-qa-server/internal/config"
	"voice-qa-server/internal/knowledge"
	"voice-qa-server/internal/observability"
	"voice-qa-server/internal/ratelimit"
	"voice-qa-server/internal/store"
	voiceCallHandler "voice-qa-server/internal/voicecall/handler"
	voiceCallProcessor "voice-qa-server/internal/voicecall/processor"
	"voice-qa-server/internal/workers"
)

// Dependencies holds all initialized application dependencies
type Dependencies struct {
	// Core
	Store  *store.Store
	Redis  *redisClient.Client
	Logger *observability.Logger

	// Handlers
	VoiceCallHandler voiceCallHandler.Handler
	AskHandler       askHandler.Handler

	// Middleware; SignatureValidator is nil when checks are off
	SignatureValidator *voiceCallHandler.SignatureValidator
	AskLimiter         *ratelimit.Limiter
	OperatorAuth       *auth.OperatorAuth

	// Background workers
	RecorderPool workers.WorkerPool

	closers []func() error
}

// Initialize sets up all application dependencies
func Initialize(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Logger: logger,
	}

	var err error
	deps.Redis, err = redisClient.NewClient(cfg.Redis, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	deps.closers = append(deps.closers, deps.Redis.Close)

	// Embeddings always come from OpenAI because the indexes were built with it.
	openai := openaiClient.NewClient(cfg.Services.OpenAIAPIKey, cfg.Answer.EmbeddingModel, logger)

	tools, err := knowledge.LoadTools(cfg.Answer.IndexDir, knowledge.DefaultSources(), openai, cfg.Answer.TopK)
	if err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to load knowledge indexes from %s: %w", cfg.Answer.IndexDir, err)
	}

	var backend answer.Agent
	switch cfg.Answer.Provider {
	case config.ProviderGemini:
		gemini, err := agent.NewGeminiAgent(ctx, cfg.Services.GoogleAIAPIKey, cfg.Answer.Model, tools, logger)
		if err != nil {
			deps.Cleanup()
			return nil, err
		}
		deps.closers = append(deps.closers, gemini.Close)
		backend = gemini
	default:
		backend = agent.NewToolAgent(openai, tools, cfg.Answer.Model, cfg.Answer.MaxTurns, logger)
	}

	adapter := answer.NewAdapter(backend, answer.NewRedisCache(deps.Redis), answer.Config{
		Timeout:         cfg.Answer.Timeout,
		CacheTTL:        cfg.Answer.CacheTTL,
		BreakerFailures: uint32(max(cfg.Answer.BreakerFailures, 0)),
		BreakerCooldown: cfg.Answer.BreakerCooldown,
	}, logger)

	// Turn log: persisted when the database is on, otherwise only logged.
	var turnProcessor workers.EventProcessor
	var turnReader askProcessor.TurnReader
	if cfg.Database.Enabled {
		s, err := store.New(cfg.Database.ConnectionString(), logger)
		if err != nil {
			deps.Cleanup()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		deps.Store = &s
		deps.closers = append(deps.closers, s.Close)
		turnProcessor = workers.NewTurnPersister(deps.Store)
		turnReader = deps.Store
	} else {
		turnProcessor = workers.NewTurnLogger(logger)
	}

	deps.RecorderPool = workers.NewWorkerPool(workers.WorkerPoolConfig{
		NumWorkers: cfg.Recorder.Workers,
		QueueSize:  cfg.Recorder.QueueSize,
	}, turnProcessor, logger)
	recorder := workers.NewRecorder(deps.RecorderPool, logger)

	// Voice webhooks
	orchestrator := voiceCallProcessor.NewOrchestrator(adapter)
	deps.VoiceCallHandler = voiceCallHandler.New(orchestrator, recorder, cfg.Voice, logger)
	if cfg.Twilio.ValidateSignature {
		deps.SignatureValidator = voiceCallHandler.NewSignatureValidator(cfg.Twilio.AuthToken, cfg.Server.PublicBaseURL, logger)
	} else {
		logger.Warn(ctx, "Twilio signature validation is disabled")
	}

	// JSON API
	askProc := askProcessor.New(adapter, turnReader, logger)
	deps.AskHandler = askHandler.New(askProc, logger)
	deps.AskLimiter = ratelimit.New(cfg.Server.AskRatePerSecond, cfg.Server.AskBurst, logger)
	deps.OperatorAuth = auth.NewOperatorAuth(cfg.Server.OperatorJWTSecret, logger)
	if !deps.OperatorAuth.Enabled() {
		logger.Warn(ctx, "OPERATOR_JWT_SECRET is not set, the turn log API refuses all requests")
	}

	return deps, nil
}

// Cleanup closes all resources that need cleanup, in reverse order of creation
func (d *Dependencies) Cleanup() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.Logger.Error(context.Background(), "failed to close dependency", err)
		}
	}
	d.closers = nil
}

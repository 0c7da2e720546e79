package workers

import (
	"context"
	"errors"
	"fmt"

	"voice-qa-server/internal/observability"
	"voice-qa-server/internal/store"

	"github.com/google/uuid"
)

// TurnPersister writes turn events to the turn log.
type TurnPersister struct {
	store TurnStore
}

func NewTurnPersister(store TurnStore) *TurnPersister {
	return &TurnPersister{store: store}
}

func (p *TurnPersister) Process(ctx context.Context, event TurnEvent) error {
	if _, err := p.store.InsertCallTurn(ctx, event.Turn); err != nil {
		return fmt.Errorf("failed to persist turn %s: %w", event.ID, err)
	}
	return nil
}

func (p *TurnPersister) Name() string { return "turn_persister" }

// TurnLogger logs turn events instead of persisting them. It is used when
// the database is disabled.
type TurnLogger struct {
	logger *observability.Logger
}

func NewTurnLogger(logger *observability.Logger) *TurnLogger {
	return &TurnLogger{logger: logger}
}

func (l *TurnLogger) Process(ctx context.Context, event TurnEvent) error {
	l.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "route", Value: event.Turn.Route},
		observability.Field{Key: "attempt", Value: event.Turn.Attempt},
		observability.Field{Key: "latency_ms", Value: event.Turn.LatencyMS},
	), "voice turn completed")
	return nil
}

func (l *TurnLogger) Name() string { return "turn_logger" }

// Recorder hands completed turns to a worker pool so the request path never
// waits on persistence. A full queue drops the turn.
type Recorder struct {
	pool   WorkerPool
	logger *observability.Logger
}

func NewRecorder(pool WorkerPool, logger *observability.Logger) *Recorder {
	return &Recorder{pool: pool, logger: logger}
}

// Record queues turn for persistence.
func (r *Recorder) Record(ctx context.Context, turn store.CallTurn) {
	event := TurnEvent{ID: uuid.NewString(), Turn: turn}
	err := r.pool.TrySubmit(event)
	if err == nil {
		return
	}

	observability.TurnRecordsDropped.Inc()
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "event_id", Value: event.ID},
		observability.Field{Key: "call_sid", Value: turn.CallSID},
	)
	if errors.Is(err, ErrQueueFull) {
		r.logger.Warn(ctx, "turn recorder queue full, dropping turn")
		return
	}
	r.logger.Error(ctx, "failed to queue turn", err)
}

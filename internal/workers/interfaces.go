package workers

import (
	"context"

	"voice-qa-server/internal/store"
)

// TurnEvent is one completed voice turn waiting to be persisted.
type TurnEvent struct {
	ID   string
	Turn store.CallTurn
}

// EventProcessor handles turn events taken off the queue.
type EventProcessor interface {
	Process(ctx context.Context, event TurnEvent) error

	// Name returns the processor name for logging.
	Name() string
}

// WorkerPool manages a bounded queue of turn events and the workers draining it.
type WorkerPool interface {
	// Start initializes the worker pool with N workers.
	Start(ctx context.Context) error

	// TrySubmit queues an event without blocking. It returns ErrQueueFull
	// when there is no room. There is no blocking variant: a caller waiting
	// on a full queue would hold up Drain.
	TrySubmit(event TurnEvent) error

	// Drain stops accepting new events and waits for in-flight events to complete.
	Drain(ctx context.Context) error

	// Stop immediately stops all workers.
	Stop()
}

// TurnStore is the persistence the turn processor writes to.
type TurnStore interface {
	InsertCallTurn(ctx context.Context, turn store.CallTurn) (store.CallTurn, error)
}

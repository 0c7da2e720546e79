package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"voice-qa-server/internal/observability"
)

var (
	ErrQueueFull      = errors.New("turn queue full")
	ErrPoolNotStarted = errors.New("turn queue not started")
	ErrPoolStopping   = errors.New("turn queue is shutting down")
	ErrDrainTimeout   = errors.New("turn queue drain timed out")
)

// WorkerPoolConfig sizes the turn queue.
type WorkerPoolConfig struct {
	NumWorkers int
	// QueueSize bounds the backlog. TrySubmit fails once it is reached.
	QueueSize int
	// DrainTimeout caps how long shutdown waits for queued turns.
	DrainTimeout time.Duration
	// ProcessTimeout bounds a single Process call.
	ProcessTimeout time.Duration
}

func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		NumWorkers:     4,
		QueueSize:      256,
		DrainTimeout:   10 * time.Second,
		ProcessTimeout: 5 * time.Second,
	}
}

type turnQueue struct {
	cfg       WorkerPoolConfig
	processor EventProcessor
	logger    *observability.Logger

	events chan TurnEvent
	wg     sync.WaitGroup

	// mu guards the lifecycle flags and is held across the non-blocking
	// send so the channel is never closed under a sender.
	mu       sync.Mutex
	started  bool
	draining bool
	stopped  bool
	cancel   context.CancelFunc
}

// NewWorkerPool returns a turn queue feeding processor. Zero config fields
// take their defaults.
func NewWorkerPool(cfg WorkerPoolConfig, processor EventProcessor, logger *observability.Logger) WorkerPool {
	defaults := DefaultWorkerPoolConfig()
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = defaults.NumWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = defaults.DrainTimeout
	}
	if cfg.ProcessTimeout <= 0 {
		cfg.ProcessTimeout = defaults.ProcessTimeout
	}
	return &turnQueue{
		cfg:       cfg,
		processor: processor,
		logger:    logger,
		events:    make(chan TurnEvent, cfg.QueueSize),
	}
}

func (q *turnQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.stopped {
		return fmt.Errorf("turn queue for %s cannot be started twice", q.processor.Name())
	}

	// Workers outlive request contexts; only Stop cancels them.
	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	q.cancel = cancel
	q.started = true
	for i := 0; i < q.cfg.NumWorkers; i++ {
		q.wg.Add(1)
		go q.run(workerCtx, i)
	}

	q.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "processor", Value: q.processor.Name()},
		observability.Field{Key: "workers", Value: q.cfg.NumWorkers},
		observability.Field{Key: "queue_size", Value: q.cfg.QueueSize},
	), "turn queue started")
	return nil
}

func (q *turnQueue) TrySubmit(event TurnEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.acceptingLocked(); err != nil {
		return err
	}
	select {
	case q.events <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *turnQueue) acceptingLocked() error {
	switch {
	case !q.started:
		return ErrPoolNotStarted
	case q.draining, q.stopped:
		return ErrPoolStopping
	}
	return nil
}

// Drain closes the queue and waits for the backlog to be processed. After
// DrainTimeout the workers are stopped and ErrDrainTimeout is returned.
func (q *turnQueue) Drain(ctx context.Context) error {
	q.mu.Lock()
	if err := q.acceptingLocked(); err != nil {
		q.mu.Unlock()
		return err
	}
	q.draining = true
	backlog := len(q.events)
	close(q.events)
	q.mu.Unlock()

	ctx = observability.WithFields(ctx, observability.Field{Key: "processor", Value: q.processor.Name()})
	q.logger.Info(observability.WithFields(ctx, observability.Field{Key: "backlog", Value: backlog}), "draining turn queue")

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(q.cfg.DrainTimeout)
	defer timer.Stop()
	select {
	case <-done:
		q.logger.Info(ctx, "turn queue drained")
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}
	q.logger.Warn(ctx, "turn queue drain cut short, remaining turns are lost")
	q.Stop()
	return ErrDrainTimeout
}

func (q *turnQueue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return
	}
	q.stopped = true
	if q.cancel != nil {
		q.cancel()
	}
	if !q.draining {
		close(q.events)
	}
}

func (q *turnQueue) run(ctx context.Context, workerID int) {
	defer q.wg.Done()
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "worker_id", Value: workerID},
		observability.Field{Key: "processor", Value: q.processor.Name()},
	)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-q.events:
			if !ok {
				return
			}
			q.handle(ctx, event)
		}
	}
}

// handle processes one event. A failing or panicking processor loses that
// turn only; the worker keeps going.
func (q *turnQueue) handle(ctx context.Context, event TurnEvent) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "event_id", Value: event.ID},
		observability.Field{Key: "call_sid", Value: event.Turn.CallSID},
	)
	ctx, cancel := context.WithTimeout(ctx, q.cfg.ProcessTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			observability.TurnRecordsFailed.Inc()
			q.logger.Error(ctx, "turn processor panicked", fmt.Errorf("panic: %v", r))
		}
	}()

	if err := q.processor.Process(ctx, event); err != nil {
		observability.TurnRecordsFailed.Inc()
		q.logger.Error(ctx, "failed to process turn", err)
	}
}

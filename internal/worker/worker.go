package worker

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"jan-server/services/newsletter-api/internal/domain/delivery"
	"jan-server/services/newsletter-api/internal/infrastructure/metrics"
)

// TaskExecutor runs one delivery iteration.
type TaskExecutor interface {
	TryExecuteTask(ctx context.Context) (delivery.Outcome, error)
	QueueDepth(ctx context.Context) (int64, error)
}

// Worker drains the delivery queue until it is empty, then sleeps.
type Worker struct {
	id            int
	executor      TaskExecutor
	instr         *Instrumenter
	pollInterval  time.Duration
	retryInterval time.Duration
	maxBackoff    time.Duration
	log           zerolog.Logger
	stopChan      chan struct{}
}

// NewWorker creates a new delivery worker.
func NewWorker(id int, executor TaskExecutor, instr *Instrumenter, cfg Config, log zerolog.Logger) *Worker {
	return &Worker{
		id:            id,
		executor:      executor,
		instr:         instr,
		pollInterval:  cfg.PollInterval,
		retryInterval: cfg.RetryInterval,
		maxBackoff:    cfg.MaxBackoff,
		log:           log.With().Int("worker_id", id).Str("component", "worker").Logger(),
		stopChan:      make(chan struct{}),
	}
}

// Start runs the delivery loop until ctx is cancelled or Stop is called.
// Shutdown is observed between iterations only.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info().Msg("worker started")

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = w.retryInterval
	bo.MaxInterval = w.maxBackoff
	bo.MaxElapsedTime = 0

	for {
		if w.stopping(ctx) {
			return
		}

		outcome, err := w.runOnce(ctx)

		var wait time.Duration
		switch {
		case err != nil:
			wait = bo.NextBackOff()
			w.log.Error().Err(err).Dur("retry_in", wait).Msg("delivery iteration failed")
		case outcome == delivery.OutcomeEmptyQueue:
			bo.Reset()
			wait = w.pollInterval
		case outcome == delivery.OutcomeTaskFailed:
			bo.Reset()
			wait = w.retryInterval
		default:
			bo.Reset()
			continue
		}

		if !w.sleep(ctx, wait) {
			return
		}
	}
}

// Stop asks the worker to exit after its current iteration.
func (w *Worker) Stop() {
	close(w.stopChan)
}

// runOnce executes one iteration on a context detached from shutdown so the
// in-flight send and its transaction can finish.
func (w *Worker) runOnce(ctx context.Context) (delivery.Outcome, error) {
	iterCtx := context.WithoutCancel(ctx)
	start := time.Now()

	outcome, err := w.instr.InstrumentIteration(iterCtx, w.id, w.executor.TryExecuteTask)

	label := outcome.String()
	if err != nil {
		label = "error"
	}
	metrics.RecordDelivery(label, time.Since(start).Seconds())
	return outcome, err
}

func (w *Worker) stopping(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		w.log.Info().Msg("worker stopped by context")
		return true
	case <-w.stopChan:
		w.log.Info().Msg("worker stopped")
		return true
	default:
		return false
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		w.log.Info().Msg("worker stopped by context")
		return false
	case <-w.stopChan:
		w.log.Info().Msg("worker stopped")
		return false
	case <-timer.C:
		return true
	}
}

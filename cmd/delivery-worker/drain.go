package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/newsletter-api/internal/domain/delivery"
)

type taskRunner interface {
	TryExecuteTask(ctx context.Context) (delivery.Outcome, error)
}

// drainer runs tasks until the queue is empty. Only transient failures count
// toward maxFailures; a permanently failed task has already left the queue.
type drainer struct {
	runner        taskRunner
	maxFailures   int
	retryInterval time.Duration
	log           zerolog.Logger

	completed int
	dropped   int
	retried   int
}

// recordFailure is the executor's OnFailure hook.
func (d *drainer) recordFailure(f delivery.Failure) {
	if f == delivery.FailureTransient {
		d.retried++
		return
	}
	d.dropped++
}

// run stops between tasks once ctx is done. The task in flight runs on a
// detached context so its send and commit are not cut short.
func (d *drainer) run(ctx context.Context) error {
	for ctx.Err() == nil {
		outcome, err := d.runner.TryExecuteTask(context.WithoutCancel(ctx))
		if err != nil {
			return err
		}

		switch outcome {
		case delivery.OutcomeEmptyQueue:
			d.log.Info().
				Int("completed", d.completed).
				Int("dropped", d.dropped).
				Int("retried", d.retried).
				Msg("delivery queue drained")
			return nil
		case delivery.OutcomeTaskCompleted:
			d.completed++
		case delivery.OutcomeTaskFailed:
			if d.maxFailures > 0 && d.retried >= d.maxFailures {
				return fmt.Errorf("stopping after %d transient failures (%d delivered, %d dropped)", d.retried, d.completed, d.dropped)
			}
			if !d.wait(ctx) {
				return ctx.Err()
			}
		}
	}
	return ctx.Err()
}

func (d *drainer) wait(ctx context.Context) bool {
	if d.retryInterval <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d.retryInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

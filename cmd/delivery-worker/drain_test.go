package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/newsletter-api/internal/domain/delivery"
)

type step struct {
	outcome delivery.Outcome
	failure delivery.Failure
}

// scriptedRunner plays back outcomes and reports failures the way the
// executor's OnFailure hook does.
type scriptedRunner struct {
	steps  []step
	calls  int
	onTask func(ctx context.Context)
	report func(delivery.Failure)
}

func (r *scriptedRunner) TryExecuteTask(ctx context.Context) (delivery.Outcome, error) {
	if r.onTask != nil {
		r.onTask(ctx)
	}
	if r.calls >= len(r.steps) {
		return delivery.OutcomeEmptyQueue, nil
	}
	s := r.steps[r.calls]
	r.calls++
	if s.outcome == delivery.OutcomeTaskFailed {
		r.report(s.failure)
	}
	return s.outcome, nil
}

func newTestDrainer(runner *scriptedRunner, maxFailures int) *drainer {
	d := &drainer{runner: runner, maxFailures: maxFailures, log: zerolog.Nop()}
	runner.report = d.recordFailure
	return d
}

func TestDrainer_DroppedTasksDoNotCountAsFailures(t *testing.T) {
	runner := &scriptedRunner{steps: []step{
		{outcome: delivery.OutcomeTaskFailed, failure: delivery.FailurePermanent},
		{outcome: delivery.OutcomeTaskFailed, failure: delivery.FailurePermanent},
		{outcome: delivery.OutcomeTaskFailed, failure: delivery.FailurePermanent},
		{outcome: delivery.OutcomeTaskCompleted},
	}}
	d := newTestDrainer(runner, 2)

	require.NoError(t, d.run(context.Background()))
	assert.Equal(t, 1, d.completed)
	assert.Equal(t, 3, d.dropped)
	assert.Zero(t, d.retried)
}

func TestDrainer_StopsAfterTransientFailures(t *testing.T) {
	runner := &scriptedRunner{steps: []step{
		{outcome: delivery.OutcomeTaskCompleted},
		{outcome: delivery.OutcomeTaskFailed, failure: delivery.FailureTransient},
		{outcome: delivery.OutcomeTaskFailed, failure: delivery.FailurePermanent},
		{outcome: delivery.OutcomeTaskFailed, failure: delivery.FailureTransient},
		{outcome: delivery.OutcomeTaskCompleted},
	}}
	d := newTestDrainer(runner, 2)

	err := d.run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 transient failures")
	assert.Equal(t, 4, runner.calls)
}

func TestDrainer_SignalLetsInFlightTaskFinish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var taskCtxErr error
	runner := &scriptedRunner{
		steps: []step{
			{outcome: delivery.OutcomeTaskCompleted},
			{outcome: delivery.OutcomeTaskCompleted},
		},
		onTask: func(taskCtx context.Context) {
			cancel()
			taskCtxErr = taskCtx.Err()
		},
	}
	d := newTestDrainer(runner, 10)

	err := d.run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, taskCtxErr, "task context must survive the signal")
	assert.Equal(t, 1, runner.calls, "no new task starts after the signal")
	assert.Equal(t, 1, d.completed)
}

package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/newsletter-api/internal/domain/delivery"
)

type step struct {
	outcome delivery.Outcome
	err     error
}

// scriptedExecutor replays steps in order and reports an empty queue afterwards.
type scriptedExecutor struct {
	mu      sync.Mutex
	steps   []step
	calls   int
	ctxErrs []error
	block   chan struct{}
	entered chan struct{}
}

func (s *scriptedExecutor) TryExecuteTask(ctx context.Context) (delivery.Outcome, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	block := s.block
	s.mu.Unlock()

	if block != nil && call == 1 {
		close(s.entered)
		<-block
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	if len(s.steps) == 0 {
		return delivery.OutcomeEmptyQueue, nil
	}
	next := s.steps[0]
	s.steps = s.steps[1:]
	return next.outcome, next.err
}

func (s *scriptedExecutor) QueueDepth(context.Context) (int64, error) {
	return 0, nil
}

func (s *scriptedExecutor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testConfig() Config {
	return Config{
		WorkerCount:     1,
		PollInterval:    time.Hour,
		RetryInterval:   10 * time.Millisecond,
		MaxBackoff:      20 * time.Millisecond,
		ShutdownTimeout: time.Second,
	}.withDefaults()
}

func newTestWorker(t *testing.T, exec TaskExecutor, cfg Config) *Worker {
	t.Helper()
	instr, err := NewInstrumenter()
	require.NoError(t, err)
	return NewWorker(1, exec, instr, cfg, zerolog.Nop())
}

func runWorker(w *Worker, ctx context.Context) chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Start(ctx)
	}()
	return done
}

func TestWorker_DrainsUntilEmptyThenSleeps(t *testing.T) {
	exec := &scriptedExecutor{steps: []step{
		{outcome: delivery.OutcomeTaskCompleted},
		{outcome: delivery.OutcomeTaskCompleted},
		{outcome: delivery.OutcomeEmptyQueue},
	}}
	w := newTestWorker(t, exec, testConfig())
	done := runWorker(w, context.Background())

	require.Eventually(t, func() bool { return exec.callCount() == 3 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return exec.callCount() > 3 }, 100*time.Millisecond, 10*time.Millisecond)

	w.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorker_RetriesAfterFailedTask(t *testing.T) {
	exec := &scriptedExecutor{steps: []step{
		{outcome: delivery.OutcomeTaskFailed},
		{outcome: delivery.OutcomeTaskCompleted},
	}}
	w := newTestWorker(t, exec, testConfig())
	done := runWorker(w, context.Background())
	defer func() {
		w.Stop()
		<-done
	}()

	require.Eventually(t, func() bool { return exec.callCount() == 3 }, time.Second, 5*time.Millisecond)
}

func TestWorker_BacksOffOnStorageError(t *testing.T) {
	exec := &scriptedExecutor{steps: []step{
		{err: errors.New("connection refused")},
		{err: errors.New("connection refused")},
	}}
	w := newTestWorker(t, exec, testConfig())
	done := runWorker(w, context.Background())
	defer func() {
		w.Stop()
		<-done
	}()

	require.Eventually(t, func() bool { return exec.callCount() == 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestWorker_FinishesInFlightIterationOnCancel(t *testing.T) {
	exec := &scriptedExecutor{
		steps:   []step{{outcome: delivery.OutcomeTaskCompleted}},
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	w := newTestWorker(t, exec, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := runWorker(w, ctx)

	<-exec.entered
	cancel()
	close(exec.block)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after cancellation")
	}

	assert.Equal(t, 1, exec.callCount(), "no new iteration after cancellation")
	require.Len(t, exec.ctxErrs, 1)
	assert.NoError(t, exec.ctxErrs[0], "in-flight iteration must not see cancellation")
}

func TestPool_StartAndStop(t *testing.T) {
	exec := &scriptedExecutor{}
	instr, err := NewInstrumenter()
	require.NoError(t, err)

	cfg := testConfig()
	cfg.WorkerCount = 3
	pool := NewPool(exec, instr, cfg, zerolog.Nop())
	pool.Start(context.Background())

	require.Eventually(t, func() bool { return exec.callCount() == 3 }, time.Second, 5*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		pool.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not stop")
	}

	pool.Stop()
	assert.Equal(t, 3, exec.callCount())
}

func TestPool_RunStopsOnCancel(t *testing.T) {
	exec := &scriptedExecutor{}
	instr, err := NewInstrumenter()
	require.NoError(t, err)
	pool := NewPool(exec, instr, testConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- pool.Run(ctx) }()

	require.Eventually(t, func() bool { return exec.callCount() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pool.Run did not return")
	}
}

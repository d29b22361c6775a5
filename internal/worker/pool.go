package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/newsletter-api/internal/infrastructure/metrics"
)

// Config contains worker pool configuration.
type Config struct {
	WorkerCount     int
	PollInterval    time.Duration
	RetryInterval   time.Duration
	MaxBackoff      time.Duration
	ShutdownTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.WorkerCount <= 0 {
		c.WorkerCount = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = time.Minute
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	return c
}

// Pool manages multiple delivery workers.
type Pool struct {
	workers  []*Worker
	executor TaskExecutor
	instr    *Instrumenter
	cfg      Config
	log      zerolog.Logger
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewPool creates a new worker pool.
func NewPool(executor TaskExecutor, instr *Instrumenter, cfg Config, log zerolog.Logger) *Pool {
	return &Pool{
		executor: executor,
		instr:    instr,
		cfg:      cfg.withDefaults(),
		log:      log.With().Str("component", "worker-pool").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start initializes and starts all workers plus the queue depth sampler.
func (p *Pool) Start(ctx context.Context) {
	p.log.Info().Int("worker_count", p.cfg.WorkerCount).Msg("starting worker pool")

	p.workers = make([]*Worker, p.cfg.WorkerCount)
	for i := 0; i < p.cfg.WorkerCount; i++ {
		worker := NewWorker(i+1, p.executor, p.instr, p.cfg, p.log)
		p.workers[i] = worker

		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Start(ctx)
		}(worker)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.sampleQueueDepth(ctx)
	}()

	p.log.Info().Msg("worker pool started")
}

// Run starts the pool and blocks until ctx is cancelled, then stops it.
func (p *Pool) Run(ctx context.Context) error {
	p.Start(ctx)
	<-ctx.Done()
	p.Stop()
	return nil
}

// Stop signals every worker and waits for in-flight iterations to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.log.Info().Msg("stopping worker pool")

		close(p.stopChan)
		for _, worker := range p.workers {
			worker.Stop()
		}

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			p.log.Info().Msg("all workers stopped gracefully")
		case <-time.After(p.cfg.ShutdownTimeout):
			p.log.Warn().Msg("worker pool shutdown timed out")
		}
	})
}

func (p *Pool) sampleQueueDepth(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		depth, err := p.executor.QueueDepth(ctx)
		if err != nil {
			p.log.Warn().Err(err).Msg("failed to sample queue depth")
		} else {
			metrics.SetQueueDepth(depth)
		}

		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
		}
	}
}

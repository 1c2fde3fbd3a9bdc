package ingestion

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/imagepress/imagepress/pkg/compress"
)

var (
	// ErrQueueTimeout is returned when no queue slot frees up within the
	// pool's queue wait.
	ErrQueueTimeout = errors.New("compression queue full")
	// ErrPoolClosed is returned for work submitted to, or stranded in, a
	// stopped pool.
	ErrPoolClosed = errors.New("compression pool stopped")
	// ErrEnginePanic wraps a panic recovered from the engine.
	ErrEnginePanic = errors.New("compression engine panicked")
)

type job struct {
	ctx    context.Context
	src    []byte
	result chan<- jobResult
}

type jobResult struct {
	out []byte
	err error
}

// Pool bounds concurrent compression to a fixed number of workers fed by a
// buffered queue. It is safe for concurrent use.
type Pool struct {
	engine    compress.Engine
	workers   int
	queueWait time.Duration

	jobs chan job
	quit chan struct{}
	done chan struct{}
	wg   sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once

	processed atomic.Int64
	failed    atomic.Int64
}

// NewPool creates a pool. Call Start before submitting work and Stop when
// done. workers <= 0 means one per CPU; queueSize <= 0 means 64.
func NewPool(engine compress.Engine, workers, queueSize int, queueWait time.Duration) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Pool{
		engine:    engine,
		workers:   workers,
		queueWait: queueWait,
		jobs:      make(chan job, queueSize),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the workers. It is idempotent.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

// Stop shuts the workers down. Jobs still queued fail with ErrPoolClosed;
// jobs already running finish first.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.quit)
		p.wg.Wait()
		close(p.done)
	})
}

// Compress queues src for compression and waits for the result. It waits at
// most the pool's queue wait for a free queue slot.
func (p *Pool) Compress(ctx context.Context, src []byte) ([]byte, error) {
	select {
	case <-p.quit:
		return nil, ErrPoolClosed
	default:
	}

	result := make(chan jobResult, 1)
	j := job{ctx: ctx, src: src, result: result}

	select {
	case p.jobs <- j:
	default:
		timer := time.NewTimer(p.queueWait)
		defer timer.Stop()
		select {
		case p.jobs <- j:
		case <-timer.C:
			return nil, fmt.Errorf("%w after %s", ErrQueueTimeout, p.queueWait)
		case <-p.quit:
			return nil, ErrPoolClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	select {
	case r := <-result:
		return r.out, r.err
	case <-p.done:
		// A worker may have answered just before exiting.
		select {
		case r := <-result:
			return r.out, r.err
		default:
			return nil, ErrPoolClosed
		}
	}
}

// Stats returns the number of jobs that succeeded and failed so far.
func (p *Pool) Stats() (processed, failed int64) {
	return p.processed.Load(), p.failed.Load()
}

// Engine returns the engine the workers run.
func (p *Pool) Engine() compress.Engine { return p.engine }

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			p.drain()
			return
		case j := <-p.jobs:
			p.run(j)
		}
	}
}

func (p *Pool) drain() {
	for {
		select {
		case j := <-p.jobs:
			j.result <- jobResult{err: ErrPoolClosed}
		default:
			return
		}
	}
}

func (p *Pool) run(j job) {
	out, err := p.compress(j.ctx, j.src)
	if err != nil {
		p.failed.Add(1)
	} else {
		p.processed.Add(1)
	}
	j.result <- jobResult{out: out, err: err}
}

func (p *Pool) compress(ctx context.Context, src []byte) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %v", ErrEnginePanic, r)
		}
	}()
	return p.engine.Compress(ctx, src)
}

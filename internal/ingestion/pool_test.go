package ingestion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// blockingEngine holds every call until release is closed.
type blockingEngine struct {
	started chan struct{}
	release chan struct{}
}

func (e *blockingEngine) Name() string { return "blocking" }

func (e *blockingEngine) Compress(ctx context.Context, src []byte) ([]byte, error) {
	e.started <- struct{}{}
	<-e.release
	return []byte("out"), nil
}

type funcEngine func(ctx context.Context, src []byte) ([]byte, error)

func (f funcEngine) Name() string { return "func" }

func (f funcEngine) Compress(ctx context.Context, src []byte) ([]byte, error) {
	return f(ctx, src)
}

func TestPoolCompress(t *testing.T) {
	p := NewPool(funcEngine(func(ctx context.Context, src []byte) ([]byte, error) {
		return append([]byte("c:"), src...), nil
	}), 2, 4, time.Second)
	p.Start()
	defer p.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := p.Compress(context.Background(), []byte("x"))
			if err != nil {
				t.Errorf("Compress: %v", err)
				return
			}
			if string(out) != "c:x" {
				t.Errorf("Compress = %q, want c:x", out)
			}
		}()
	}
	wg.Wait()

	processed, failed := p.Stats()
	if processed != 20 || failed != 0 {
		t.Errorf("Stats = %d/%d, want 20/0", processed, failed)
	}
}

func TestPoolQueueTimeout(t *testing.T) {
	eng := &blockingEngine{started: make(chan struct{}, 1), release: make(chan struct{})}
	p := NewPool(eng, 1, 1, 20*time.Millisecond)
	p.Start()
	defer p.Stop()

	// Occupy the single worker, then the single queue slot.
	first := make(chan error, 1)
	go func() {
		_, err := p.Compress(context.Background(), nil)
		first <- err
	}()
	<-eng.started

	second := make(chan error, 1)
	go func() {
		_, err := p.Compress(context.Background(), nil)
		second <- err
	}()
	// Wait until the queue slot is taken.
	deadline := time.Now().Add(time.Second)
	for len(p.jobs) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	_, err := p.Compress(context.Background(), nil)
	if !errors.Is(err, ErrQueueTimeout) {
		t.Fatalf("third Compress err = %v, want ErrQueueTimeout", err)
	}

	close(eng.release)
	<-eng.started
	if err := <-first; err != nil {
		t.Errorf("first Compress: %v", err)
	}
	if err := <-second; err != nil {
		t.Errorf("second Compress: %v", err)
	}
}

func TestPoolRecoversPanics(t *testing.T) {
	p := NewPool(funcEngine(func(ctx context.Context, src []byte) ([]byte, error) {
		panic("boom")
	}), 1, 1, time.Second)
	p.Start()
	defer p.Stop()

	_, err := p.Compress(context.Background(), []byte("x"))
	if !errors.Is(err, ErrEnginePanic) {
		t.Fatalf("err = %v, want ErrEnginePanic", err)
	}
	// The worker survives.
	if _, err := p.Compress(context.Background(), []byte("x")); !errors.Is(err, ErrEnginePanic) {
		t.Fatalf("second err = %v, want ErrEnginePanic", err)
	}
	if _, failed := p.Stats(); failed != 2 {
		t.Errorf("failed = %d, want 2", failed)
	}
}

func TestPoolStopped(t *testing.T) {
	p := NewPool(funcEngine(func(ctx context.Context, src []byte) ([]byte, error) {
		return src, nil
	}), 1, 1, time.Second)
	p.Start()
	p.Stop()
	p.Stop()

	if _, err := p.Compress(context.Background(), []byte("x")); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("err = %v, want ErrPoolClosed", err)
	}
}

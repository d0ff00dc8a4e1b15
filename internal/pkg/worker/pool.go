package worker

import (
	"context"
	"errors"
)

// ErrPoolClosed is returned for work submitted after Close.
var ErrPoolClosed = errors.New("worker pool is closed")

// Pool bounds the number of blocking jobs (model inference, transcription,
// synthesis) running at once, so an arbitrary number of connections cannot
// saturate the process. Callers block until a slot frees up, then the job runs
// on the caller's goroutine; the bound is on concurrency, not queue depth.
type Pool struct {
	sem    chan struct{}
	closed chan struct{}
}

func NewPool(size int) *Pool {
	if size <= 0 {
		size = 4
	}
	return &Pool{
		sem:    make(chan struct{}, size),
		closed: make(chan struct{}),
	}
}

// Do runs fn once a slot is available. Returns early with the context error if
// the caller is cancelled while waiting.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	select {
	case <-p.closed:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	case p.sem <- struct{}{}:
	}
	defer func() { <-p.sem }()

	return fn()
}

// Close rejects all future submissions. Jobs already running finish normally.
func (p *Pool) Close() {
	close(p.closed)
}

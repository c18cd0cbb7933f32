package batch

import (
	"context"
	"sync"
)

// Future is the pending result of a submitted request. It is resolved or
// rejected exactly once; later completions are ignored.
type Future[R any] struct {
	id   string
	once sync.Once
	done chan struct{}

	value R
	err   error
}

func newFuture[R any](id string) *Future[R] {
	return &Future[R]{id: id, done: make(chan struct{})}
}

func resolvedFuture[R any](id string, value R) *Future[R] {
	f := newFuture[R](id)
	f.resolve(value)
	return f
}

func rejectedFuture[R any](id string, err error) *Future[R] {
	f := newFuture[R](id)
	f.reject(err)
	return f
}

func (f *Future[R]) resolve(value R) {
	f.once.Do(func() {
		f.value = value
		close(f.done)
	})
}

func (f *Future[R]) reject(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// ID returns the identifier of the request backing this future. Callers that
// were deduplicated onto the same request share the ID.
func (f *Future[R]) ID() string {
	return f.id
}

// Done is closed once the future is resolved or rejected.
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}

// Resolved reports whether the future has completed.
func (f *Future[R]) Resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the outcome without blocking. It returns ErrNotResolved
// while the request is still pending.
func (f *Future[R]) Result() (R, error) {
	if !f.Resolved() {
		var zero R
		return zero, ErrNotResolved
	}
	return f.value, f.err
}

// Wait blocks until the future completes or ctx is done. Cancelling ctx only
// abandons the wait; the request stays queued.
func (f *Future[R]) Wait(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

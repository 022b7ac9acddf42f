package project

import (
	"context"
	"fmt"
)

// Awaitable is the result of an async body. Await blocks until the value is
// ready or ctx is done.
type Awaitable interface {
	Await(ctx context.Context) (any, error)
}

type future struct {
	done chan struct{}
	val  any
	err  error
}

// Go runs fn on its own goroutine and returns an Awaitable for its result.
// A panic inside fn is reported as an error from Await.
func Go(ctx context.Context, fn func(ctx context.Context) (any, error)) Awaitable {
	f := &future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("panic: %v", r)
			}
		}()
		f.val, f.err = fn(ctx)
	}()
	return f
}

func (f *future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type resolved struct {
	val any
	err error
}

// Resolved returns an Awaitable that is already complete.
func Resolved(v any) Awaitable {
	return resolved{val: v}
}

// Failed returns an Awaitable that completes with err.
func Failed(err error) Awaitable {
	return resolved{err: err}
}

func (r resolved) Await(context.Context) (any, error) {
	return r.val, r.err
}

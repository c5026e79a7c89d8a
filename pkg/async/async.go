// Package async runs independent lookups concurrently and collects their
// results in input order.
package async

import (
	"context"
	"sync"
)

// Future holds the eventual result of a function started with Async.
type Future[U any] struct {
	result U
	err    error
	done   chan struct{}
}

// Await blocks until the function returns.
func (f *Future[U]) Await() (U, error) {
	<-f.done
	return f.result, f.err
}

// AwaitContext blocks until the function returns or ctx is done.
func (f *Future[U]) AwaitContext(ctx context.Context) (U, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		var zero U
		return zero, ctx.Err()
	}
}

// Async runs fn(ctx, param) in a goroutine. If ctx is already done, fn is
// not called and the future resolves to ctx.Err().
func Async[T, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}
		f.result, f.err = fn(ctx, param)
	}()
	return f
}

// WaitAll awaits every future and returns the results in order. It returns
// the first error encountered, after all futures have resolved.
func WaitAll[U any](futures ...*Future[U]) ([]U, error) {
	results := make([]U, len(futures))
	var firstErr error
	for i, f := range futures {
		res, err := f.Await()
		results[i] = res
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return results, firstErr
}

// Map applies fn to every item with at most limit calls in flight and
// returns results in input order. A limit below 1 means one at a time.
// The first error cancels the context passed to the remaining calls.
func Map[T, U any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (U, error)) ([]U, error) {
	if limit < 1 {
		limit = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]U, len(items))
	sem := make(chan struct{}, limit)
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)

	for i, item := range items {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			once.Do(func() { firstErr = ctx.Err() })
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			defer func() { <-sem }()
			res, err := fn(ctx, item)
			if err != nil {
				once.Do(func() {
					firstErr = err
					cancel()
				})
				return
			}
			results[i] = res
		}(i, item)
	}

	wg.Wait()
	return results, firstErr
}

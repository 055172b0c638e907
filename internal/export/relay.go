package export

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Result is the terminal outcome of one compositor call: the written path,
// or an error. Err is always a *SessionError.
type Result struct {
	Path string
	Err  error
}

// Relay turns blocking compositor calls into one-shot completions. It does
// not deduplicate or serialize requests.
type Relay struct {
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewRelay creates a new Relay.
func NewRelay(logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{logger: logger}
}

// Submit runs fn in its own goroutine and calls complete exactly once with
// its outcome. A panic in fn is reported as a session error. complete runs
// on the worker goroutine.
func (r *Relay) Submit(ctx context.Context, fn func(context.Context) (string, error), complete func(Result)) {
	var once sync.Once
	deliver := func(res Result) {
		once.Do(func() {
			if complete != nil {
				complete(res)
			}
		})
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("compositor panicked", slog.Any("panic", p))
				deliver(Result{Err: newSessionError(fmt.Errorf("panic: %v", p))})
			}
		}()

		path, err := fn(ctx)
		if err != nil {
			deliver(Result{Err: newSessionError(err)})
			return
		}
		deliver(Result{Path: path})
	}()
}

// Wait blocks until every submitted call has completed.
func (r *Relay) Wait() {
	r.wg.Wait()
}

// Await adapts a completion-style call to a blocking one. start receives the
// completion callback; a synchronous error from start is returned as is.
func Await(ctx context.Context, start func(complete func(Result)) error) (string, error) {
	done := make(chan Result, 1)
	if err := start(func(res Result) { done <- res }); err != nil {
		return "", err
	}

	select {
	case res := <-done:
		return res.Path, res.Err
	case <-ctx.Done():
		return "", newSessionError(ctx.Err())
	}
}

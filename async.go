package formulagraph

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// asyncCall is one async function invocation made by a formula. It is
// pending until a resolution with a matching task id is applied.
type asyncCall struct {
	id       uuid.UUID
	key      string
	resolved bool
	value    Value
}

func newAsyncCall(key string) *asyncCall {
	return &asyncCall{id: uuid.New(), key: key}
}

// asyncResult is the resolution of one async call.
type asyncResult struct {
	vertex VertexID
	key    string
	id     uuid.UUID
	value  Value
}

// asyncRunner runs async functions on their own goroutines and queues their
// results for the engine goroutine.
type asyncRunner struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	group   singleflight.Group
	logger  *log.Logger
	wg      sync.WaitGroup

	mu       sync.Mutex
	queue    []asyncResult
	inflight int
	// notify holds a token whenever results were queued since it was last
	// drained.
	notify chan struct{}
}

func newAsyncRunner(timeout time.Duration, logger *log.Logger) *asyncRunner {
	ctx, cancel := context.WithCancel(context.Background())
	return &asyncRunner{
		ctx:     ctx,
		cancel:  cancel,
		timeout: timeout,
		logger:  logger,
		notify:  make(chan struct{}, 1),
	}
}

// start runs fn for call. Identical calls in flight share one computation.
// Exactly one result is queued unless the runner is closed first.
func (r *asyncRunner) start(vertex VertexID, call *asyncCall, fn AsyncFunction, args []Value) {
	if r.ctx.Err() != nil {
		return
	}
	r.mu.Lock()
	r.inflight++
	r.mu.Unlock()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
		defer cancel()
		ch := r.group.DoChan(call.key, func() (any, error) {
			return fn(ctx, args)
		})
		res := asyncResult{vertex: vertex, key: call.key, id: call.id}
		select {
		case out := <-ch:
			switch {
			case out.Err != nil && errors.Is(out.Err, context.DeadlineExceeded):
				res.value = CellError(ErrorTimeout, "async function timed out")
			case out.Err != nil:
				res.value = CellError(ErrorValue, out.Err.Error())
			default:
				res.value = out.Val.(Value)
			}
		case <-ctx.Done():
			if r.ctx.Err() != nil {
				r.finish(nil)
				return
			}
			res.value = CellError(ErrorTimeout, "async function timed out")
			if r.logger != nil {
				r.logger.Printf("[Async] %s timed out after %s", call.key, r.timeout)
			}
		}
		r.finish(&res)
	}()
}

// finish queues a result, if any, and signals the engine.
func (r *asyncRunner) finish(res *asyncResult) {
	r.mu.Lock()
	r.inflight--
	if res != nil {
		r.queue = append(r.queue, *res)
	}
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// drain takes the queued results.
func (r *asyncRunner) drain() []asyncResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.queue
	r.queue = nil
	return out
}

// busy reports whether calls are running or results wait to be applied.
func (r *asyncRunner) busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inflight > 0 || len(r.queue) > 0
}

// close cancels running calls and waits for their goroutines.
func (r *asyncRunner) close() {
	r.cancel()
	r.wg.Wait()
}

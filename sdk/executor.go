package sdk

import (
	"sync"
)

// Executor runs functions on a context the caller does not control, typically the
// goroutine that owns UI state. Post must not block and must not run fn inline
// when called from a response handler.
type Executor interface {
	Post(fn func())
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(fn func())

// Post implements Executor
func (f ExecutorFunc) Post(fn func()) { f(fn) }

// ImmediateExecutor runs every function on a new goroutine. It is the default
// main executor for hosts without a UI loop.
type ImmediateExecutor struct{}

// Post implements Executor
func (ImmediateExecutor) Post(fn func()) { go fn() }

// SerialQueue runs posted functions one at a time, in posting order, on a single
// goroutine. It plays the role of a UI main queue: everything posted to it observes
// a consistent order with respect to everything else posted to it.
//
// The queue is unbounded so Post never blocks.
type SerialQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []func()
	closed  bool
	done    chan struct{}
}

// NewSerialQueue starts a serial queue.
func NewSerialQueue() *SerialQueue {
	q := &SerialQueue{done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// rejectingExecutor is an Executor that reports whether it accepted fn.
type rejectingExecutor interface {
	TryPost(fn func()) bool
}

// Post enqueues fn. Functions posted after Close are dropped.
func (q *SerialQueue) Post(fn func()) {
	q.TryPost(fn)
}

// TryPost enqueues fn and reports whether the queue accepted it. It returns
// false once Close has been called.
func (q *SerialQueue) TryPost(fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.pending = append(q.pending, fn)
	q.cond.Signal()
	return true
}

// postOrRun posts fn to e, or runs it on the calling goroutine when e refuses it.
func postOrRun(e Executor, fn func()) {
	if r, ok := e.(rejectingExecutor); ok {
		if !r.TryPost(fn) {
			safely(fn)
		}
		return
	}
	e.Post(fn)
}

// Close stops accepting work, runs what is already queued and waits for it.
func (q *SerialQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	q.cond.Signal()
	q.mu.Unlock()
	<-q.done
}

// Drain blocks until every function posted before the call has run.
func (q *SerialQueue) Drain() {
	ch := make(chan struct{})
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.pending = append(q.pending, func() { close(ch) })
	q.cond.Signal()
	q.mu.Unlock()
	<-ch
}

func (q *SerialQueue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 && q.closed {
			q.mu.Unlock()
			return
		}
		fn := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		safely(fn)
	}
}

// Package queue throttles outbound fetch operations against the backing store.
//
// Operations start in FIFO order, at most MaxConcurrent run at once, and a
// slot freed by a completed operation is held for SettleDelay before the
// next operation may take it.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/vessel-data-service/internal/observability"
)

// ErrClosed is reported for operations that never ran because the queue was closed.
var ErrClosed = errors.New("request queue closed")

// Operation is a unit of work run by the queue. The context is cancelled when
// the queue closes.
type Operation func(ctx context.Context) (any, error)

// Options tunes queue throughput.
type Options struct {
	MaxConcurrent int
	SettleDelay   time.Duration
	Clock         clockwork.Clock
}

// DefaultOptions allows two operations in flight with a 300ms settle delay.
func DefaultOptions() Options {
	return Options{MaxConcurrent: 2, SettleDelay: 300 * time.Millisecond}
}

// Handle resolves once its operation has finished.
type Handle struct {
	ID   string
	Name string

	done  chan struct{}
	value any
	err   error
}

// Done is closed when the operation has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the operation finishes or ctx ends. A failed operation
// yields a nil value together with its error. Giving up on ctx does not
// cancel the operation.
func (h *Handle) Wait(ctx context.Context) (any, error) {
	select {
	case <-h.done:
		return h.value, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Handle) resolve(value any, err error) {
	if err != nil {
		value = nil
	}
	h.value, h.err = value, err
	close(h.done)
}

type job struct {
	op         Operation
	handle     *Handle
	enqueuedAt time.Time
}

// Queue is a FIFO of fetch operations drained by a single worker loop.
type Queue struct {
	opts    Options
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	slots  chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	pending  []job
	draining bool
	closed   bool
}

// New creates a Queue. Zero option values fall back to DefaultOptions.
func New(opts Options, logger *slog.Logger, metrics *observability.Metrics) *Queue {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultOptions().MaxConcurrent
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	clk := opts.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		opts:    opts,
		clock:   clk,
		logger:  logger,
		metrics: metrics,
		slots:   make(chan struct{}, opts.MaxConcurrent),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Enqueue appends op to the queue and returns its handle. The drain loop is
// started if it is not already running.
func (q *Queue) Enqueue(name string, op Operation) *Handle {
	h := &Handle{ID: uuid.NewString(), Name: name, done: make(chan struct{})}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		h.resolve(nil, ErrClosed)
		q.metrics.QueueOperations.WithLabelValues("closed").Inc()
		return h
	}
	q.pending = append(q.pending, job{op: op, handle: h, enqueuedAt: q.clock.Now()})
	q.metrics.QueueDepth.Set(float64(len(q.pending)))
	start := !q.draining
	q.draining = true
	q.mu.Unlock()

	q.logger.Debug("operation enqueued", "operation", name, "op_id", h.ID)
	if start {
		go q.drain()
	}
	return h
}

// Len returns the number of operations waiting to start.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close cancels running operations and resolves pending ones with ErrClosed.
// Enqueue after Close resolves immediately with ErrClosed.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cancel()
	q.failPending()
}

// drain starts pending operations until none remain. Only one drain loop
// runs at a time; the draining flag is cleared under the same lock that
// Enqueue uses to decide whether to start a new loop.
func (q *Queue) drain() {
	for {
		select {
		case q.slots <- struct{}{}:
		case <-q.ctx.Done():
			q.failPending()
			return
		}

		q.mu.Lock()
		if q.closed || len(q.pending) == 0 {
			q.draining = false
			q.mu.Unlock()
			<-q.slots
			return
		}
		j := q.pending[0]
		q.pending[0] = job{}
		q.pending = q.pending[1:]
		q.metrics.QueueDepth.Set(float64(len(q.pending)))
		q.mu.Unlock()

		go q.run(j)
	}
}

func (q *Queue) run(j job) {
	q.metrics.QueueWait.Observe(q.clock.Since(j.enqueuedAt).Seconds())
	q.metrics.QueueInFlight.Inc()

	value, err := q.invoke(j)

	q.metrics.QueueInFlight.Dec()
	switch {
	case err == nil:
		q.metrics.QueueOperations.WithLabelValues("success").Inc()
	case errors.Is(err, context.Canceled) && q.ctx.Err() != nil:
		q.metrics.QueueOperations.WithLabelValues("closed").Inc()
	default:
		q.metrics.QueueOperations.WithLabelValues("error").Inc()
		q.logger.Warn("queued operation failed", "operation", j.handle.Name, "op_id", j.handle.ID, "error", err)
	}
	j.handle.resolve(value, err)

	sleepWithContext(q.ctx, q.clock, q.opts.SettleDelay)
	<-q.slots
}

// invoke runs the operation, converting a panic into an error.
func (q *Queue) invoke(j job) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation %s panicked: %v", j.handle.Name, r)
		}
	}()
	return j.op(q.ctx)
}

func (q *Queue) failPending() {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.draining = false
	q.metrics.QueueDepth.Set(0)
	q.mu.Unlock()

	for _, j := range pending {
		j.handle.resolve(nil, ErrClosed)
		q.metrics.QueueOperations.WithLabelValues("closed").Inc()
	}
}

func sleepWithContext(ctx context.Context, clk clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clk.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

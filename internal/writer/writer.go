// Package writer pushes local edits to the shared store in the background.
//
// Pushes are addressed by Key. Push starts one immediately; Schedule debounces: every call for a
// key cancels the pending timer of that key and replaces its payload, so a burst of edits results
// in exactly one push carrying the last payload once the key has been quiet for the configured
// period. Keys are independent of each other.
package writer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultQuietPeriod is the debounce window used when Options.QuietPeriod is zero.
const DefaultQuietPeriod = 450 * time.Millisecond

// DefaultTimeout bounds a single push when Options.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// ErrClosed is the error of tasks submitted after Close.
var ErrClosed = errors.New("writer is closed")

// Kind is the document family a push targets.
type Kind string

const (
	KindCell Kind = "cell"
	KindMeta Kind = "meta"
)

// Key identifies a debounce slot, e.g. {meta, NJORD, futuro}.
type Key struct {
	Kind   Kind
	Entity string
	Field  string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Kind, k.Entity, k.Field)
}

// PushFunc performs one remote write. ctx carries the per-push timeout.
type PushFunc func(ctx context.Context) error

// Policy decides what happens to a failed push.
type Policy int

const (
	// NoRetry reports the failure through OnResult and drops the payload.
	NoRetry Policy = iota
)

// Result describes a finished push.
type Result struct {
	Key       Key
	Err       error
	Debounced bool
	Duration  time.Duration
	Dropped   bool // The payload failed and the policy discarded it
}

// Task is the handle of a submitted push.
type Task struct {
	key  Key
	done chan struct{}
	err  error
}

func newTask(key Key) *Task {
	return &Task{key: key, done: make(chan struct{})}
}

// Key returns the key the task was submitted under.
func (t *Task) Key() Key {
	return t.key
}

// Done is closed once the push has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err blocks until the push has finished and returns its error.
func (t *Task) Err() error {
	<-t.done
	return t.err
}

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}

// Options configures a Writer.
type Options struct {
	// Clock drives debounce timers and durations. Defaults to the real clock.
	Clock clockwork.Clock

	// QuietPeriod is how long a scheduled key must stay untouched before it is pushed.
	QuietPeriod time.Duration

	// Timeout bounds each push.
	Timeout time.Duration

	// Policy applied to failed pushes. The zero value is NoRetry; New panics on anything else.
	Policy Policy

	// OnResult is called once for every finished push, from the push goroutine.
	OnResult func(Result)

	// OnCoalesced is called when a Schedule replaces a pending payload.
	OnCoalesced func(Key)
}

type pending struct {
	timer clockwork.Timer
	fn    PushFunc
	gen   uint64
	task  *Task
}

// Writer runs remote pushes. It is safe for concurrent use.
type Writer struct {
	clock       clockwork.Clock
	quiet       time.Duration
	timeout     time.Duration
	policy      Policy
	onResult    func(Result)
	onCoalesced func(Key)

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	pending  map[Key]*pending
	gen      uint64
	closed   bool
	inflight int
	idle     *sync.Cond // Signalled when inflight drops to zero
}

// New creates a Writer. Pushes run with a context derived from ctx.
func New(ctx context.Context, opts Options) *Writer {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.QuietPeriod <= 0 {
		opts.QuietPeriod = DefaultQuietPeriod
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	switch opts.Policy {
	case NoRetry:
	default:
		panic(fmt.Sprintf("writer: unknown policy %d", opts.Policy))
	}

	wctx, cancel := context.WithCancel(ctx)
	w := &Writer{
		clock:       opts.Clock,
		quiet:       opts.QuietPeriod,
		timeout:     opts.Timeout,
		policy:      opts.Policy,
		onResult:    opts.OnResult,
		onCoalesced: opts.OnCoalesced,
		ctx:         wctx,
		cancel:      cancel,
		pending:     make(map[Key]*pending),
	}
	w.idle = sync.NewCond(&w.mu)
	return w
}

// Push starts fn immediately in the background.
func (w *Writer) Push(key Key, fn PushFunc) *Task {
	task := newTask(key)

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		task.finish(ErrClosed)
		return task
	}
	w.inflight++
	w.mu.Unlock()

	go w.run(task, fn, false)
	return task
}

// Schedule pushes fn once key has been quiet for the quiet period. A pending push for the same
// key is cancelled and replaced; the returned Task is shared by every Schedule call that was
// folded into the same push.
func (w *Writer) Schedule(key Key, fn PushFunc) *Task {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		task := newTask(key)
		task.finish(ErrClosed)
		return task
	}

	w.gen++
	gen := w.gen

	p, ok := w.pending[key]
	if ok {
		p.timer.Stop()
		p.fn = fn
		p.gen = gen
		if w.onCoalesced != nil {
			w.onCoalesced(key)
		}
	} else {
		p = &pending{fn: fn, gen: gen, task: newTask(key)}
		w.pending[key] = p
	}

	p.timer = w.clock.AfterFunc(w.quiet, func() { w.fire(key, gen) })
	return p.task
}

// fire runs the pending push of key if gen is still the latest schedule of that key.
// A stopped timer can still fire if it raced with Stop; the generation check drops it.
func (w *Writer) fire(key Key, gen uint64) {
	w.mu.Lock()
	p, ok := w.pending[key]
	if !ok || p.gen != gen {
		w.mu.Unlock()
		return
	}
	delete(w.pending, key)
	w.inflight++
	w.mu.Unlock()

	w.run(p.task, p.fn, true)
}

// Flush starts every pending push now, without waiting for the quiet period.
func (w *Writer) Flush() {
	w.mu.Lock()
	due := make([]*pending, 0, len(w.pending))
	for key, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, key)
		due = append(due, p)
	}
	w.inflight += len(due)
	w.mu.Unlock()

	for _, p := range due {
		go w.run(p.task, p.fn, true)
	}
}

// Wait blocks until every started push has finished. Pushes started while Wait is blocked,
// by a debounce timer or by another goroutine, are waited for as well.
func (w *Writer) Wait() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.inflight > 0 {
		w.idle.Wait()
	}
}

// Pending returns the number of keys waiting for their quiet period to end.
func (w *Writer) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Close flushes pending pushes, waits for all of them and rejects further submissions.
func (w *Writer) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	w.Flush()
	w.Wait()
	w.cancel()
}

func (w *Writer) run(task *Task, fn PushFunc, debounced bool) {
	defer w.done()

	ctx, cancel := context.WithTimeout(w.ctx, w.timeout)
	defer cancel()

	start := w.clock.Now()
	err := fn(ctx)

	result := Result{
		Key:       task.key,
		Err:       err,
		Debounced: debounced,
		Duration:  w.clock.Since(start),
	}
	if err != nil {
		switch w.policy {
		case NoRetry:
			result.Dropped = true
		}
	}

	if w.onResult != nil {
		w.onResult(result)
	}
	task.finish(err)
}

func (w *Writer) done() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inflight--
	if w.inflight == 0 {
		w.idle.Broadcast()
	}
}

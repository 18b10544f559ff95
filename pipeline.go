package deferlog

import (
	"context"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultCapacity is the ring size used when Options.Capacity is unset.
	DefaultCapacity = 1024

	// DefaultStrictTimeout bounds the strict-mode wait for a free slot.
	DefaultStrictTimeout = 10 * time.Millisecond
)

// RecordTap receives each consumed record, in consume order, before it is
// rendered. Taps run on the consumer; a tap error does not stop rendering
// or delivery.
type RecordTap interface {
	Capture(stmt *Stmt, payload []byte) error
}

// Options controls pipeline construction.
type Options struct {
	// Capacity is the ring slot count, rounded up to a power of two.
	// Defaults to DefaultCapacity.
	Capacity int

	// Strict makes a producer wait up to StrictTimeout for a free slot
	// before dropping. The default (non-strict) policy never waits: a full
	// ring drops the record and counts it.
	Strict bool

	// StrictTimeout bounds the strict-mode wait. Defaults to
	// DefaultStrictTimeout when Strict is set.
	StrictTimeout time.Duration

	// SynchronousDrain disables the background consumer. Records accumulate
	// in the ring until Drain is called on the caller's goroutine. Intended
	// for tests and embedding into an external event loop.
	SynchronousDrain bool

	// OnError receives construction-time errors from the Log path (a format
	// string whose placeholder count disagrees with its arguments), once
	// per offending call site. The hot path itself never panics.
	OnError func(error)

	// Tap, when set, observes every consumed record before rendering.
	Tap RecordTap
}

// Pipeline is the process-wide logging context: the statement registry, the
// record ring, the diagnostics counters, and the consumer feeding a Sink.
// Construct one at startup, hand it to producers, and Close it at shutdown;
// Close performs the final drain so no published record is lost.
//
// All methods are safe for concurrent use. Emit and Log are the hot path:
// they perform no heap allocation, no formatting, and no I/O.
type Pipeline struct {
	ring    *ring
	reg     registry
	ctr     counters
	sink    Sink
	tap     RecordTap
	onError func(error)

	strict        bool
	strictTimeout time.Duration
	syncDrain     bool

	closed   atomic.Bool
	inflight atomic.Int64
	rendered atomic.Uint64 // ring cursor up to which records reached the sink

	wake      chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
	closeErr  error

	// Consumer-owned scratch. Never touched by producers.
	rec record
	out []byte
}

// New builds a pipeline with default options and a background consumer.
func New(sink Sink) *Pipeline {
	return NewWithOptions(sink, Options{})
}

// NewWithOptions builds a pipeline with explicit settings.
func NewWithOptions(sink Sink, opts Options) *Pipeline {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	p := &Pipeline{
		ring:          newRing(capacity),
		sink:          sink,
		tap:           opts.Tap,
		onError:       opts.OnError,
		strict:        opts.Strict,
		strictTimeout: opts.StrictTimeout,
		syncDrain:     opts.SynchronousDrain,
		out:           make([]byte, 0, 256),
	}
	if p.strict && p.strictTimeout <= 0 {
		p.strictTimeout = DefaultStrictTimeout
	}
	if !p.syncDrain {
		p.wake = make(chan struct{}, 1)
		p.stopCh = make(chan struct{})
		p.doneCh = make(chan struct{})
		go p.run()
	}
	return p
}

// Capacity returns the ring's slot count after power-of-two rounding.
func (p *Pipeline) Capacity() int { return len(p.ring.slots) }

// Emit records one invocation of stmt. The argument list must match the
// statement's tag sequence; a mismatch drops the record and counts it
// rather than corrupting the payload. Emit never blocks in the default
// policy and waits at most StrictTimeout in strict mode.
func (p *Pipeline) Emit(stmt *Stmt, args ...Arg) {
	if p == nil || stmt == nil {
		return
	}
	p.inflight.Add(1)
	if p.closed.Load() {
		p.inflight.Add(-1)
		return
	}
	if !stmt.matches(args) {
		p.ctr.droppedArity.Add(1)
		p.inflight.Add(-1)
		return
	}
	size := stmt.size
	if size > PayloadCapacity {
		p.ctr.droppedOverflow.Add(1)
		p.inflight.Add(-1)
		return
	}
	s, pos, ok := p.ring.reserve()
	if !ok && p.strict {
		s, pos, ok = p.reserveStrict()
	}
	if !ok {
		p.ctr.droppedFull.Add(1)
		p.inflight.Add(-1)
		return
	}
	p.ring.publish(s, pos, stmt, args, size)
	p.ctr.published.Add(1)
	p.inflight.Add(-1)
	p.notify()
}

// reserveStrict retries reservation until the bounded deadline passes.
func (p *Pipeline) reserveStrict() (*slot, uint64, bool) {
	deadline := time.Now().Add(p.strictTimeout)
	for spin := 0; ; spin++ {
		p.notify()
		if spin < 64 {
			runtime.Gosched()
		} else {
			time.Sleep(5 * time.Microsecond)
		}
		if s, pos, ok := p.ring.reserve(); ok {
			return s, pos, true
		}
		if time.Now().After(deadline) {
			return nil, 0, false
		}
	}
}

// Log records against the call site's statement, resolving it on first use.
// The caller's program counter identifies the site, so each source line
// binds to exactly one statement for the remainder of the process. A format
// whose placeholder count disagrees with the arguments poisons the site:
// the error is reported once through Options.OnError and every record from
// that site is dropped and counted.
func (p *Pipeline) Log(format string, args ...Arg) {
	if p == nil {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(2, pcs[:])
	e := p.reg.resolve(pcs[0], format, args)
	if e.err != nil {
		if p.onError != nil && e.report.CompareAndSwap(false, true) {
			p.onError(e.err)
		}
		p.ctr.droppedArity.Add(1)
		return
	}
	p.Emit(e.stmt, args...)
}

func (p *Pipeline) notify() {
	if p.wake == nil {
		return
	}
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Pipeline) run() {
	defer close(p.doneCh)
	for {
		p.drainReady()
		select {
		case <-p.wake:
		case <-p.stopCh:
			// Close has already waited for in-flight reservations to
			// publish, so one more pass empties the ring completely.
			p.drainReady()
			return
		}
	}
}

func (p *Pipeline) drainReady() int {
	n := 0
	for p.ring.consume(&p.rec) {
		p.deliver()
		n++
	}
	return n
}

// deliver renders the copied-out record and forwards it to the sink.
// Consumer-side only.
func (p *Pipeline) deliver() {
	payload := p.rec.payload[:p.rec.n]
	if p.tap != nil {
		_ = p.tap.Capture(p.rec.stmt, payload)
	}
	out, err := p.rec.stmt.Evaluate(payload, p.out[:0])
	p.out = out
	if err == nil && p.sink != nil {
		_ = p.sink.Write(out)
	}
	p.ctr.consumed.Add(1)
	p.rendered.Store(p.ring.tail)
}

// Drain consumes every published record on the caller's goroutine. It is
// the consume step for SynchronousDrain pipelines and reports the number of
// records rendered; on a pipeline with a background consumer it does
// nothing.
func (p *Pipeline) Drain() int {
	if p == nil || !p.syncDrain {
		return 0
	}
	return p.drainReady()
}

// Flush blocks until every record reserved before the call has been
// rendered and forwarded, or ctx is done. On a SynchronousDrain pipeline it
// drains inline.
func (p *Pipeline) Flush(ctx context.Context) error {
	if p == nil {
		return nil
	}
	if p.syncDrain {
		p.Drain()
		return nil
	}
	target := p.ring.head.Load()
	for p.rendered.Load() < target {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		p.notify()
		time.Sleep(100 * time.Microsecond)
	}
	return nil
}

// Close stops new reservations, lets in-flight reservations publish, drains
// everything published, stops the consumer, and closes the sink and tap if
// they implement io.Closer. Closing an owned *os.File sink is the sink's
// concern; see ConsoleSink. Close is idempotent.
func (p *Pipeline) Close() error {
	if p == nil {
		return nil
	}
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		for p.inflight.Load() != 0 {
			runtime.Gosched()
		}
		if p.syncDrain {
			p.drainReady()
		} else {
			close(p.stopCh)
			<-p.doneCh
		}
		if c, ok := p.tap.(io.Closer); ok {
			p.closeErr = c.Close()
		}
		if c, ok := p.sink.(io.Closer); ok {
			if err := c.Close(); p.closeErr == nil {
				p.closeErr = err
			}
		}
	})
	return p.closeErr
}

// Stats returns a snapshot of the pipeline's diagnostics counters.
func (p *Pipeline) Stats() Stats {
	if p == nil {
		return Stats{}
	}
	return p.ctr.snapshot(p.reg.races.Load())
}

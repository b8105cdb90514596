package bridge

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"quill/pkg/protocol"
)

// Outbox is the bounded queue between senders and the Writer. Commands and
// error reports block when the queue is full; Debug* envelopes are dropped
// and counted instead.
type Outbox struct {
	ch      chan protocol.Envelope
	done    chan struct{}
	idle    chan struct{} // closed once closed and no Put is in flight
	dropped atomic.Uint64
	log     *slog.Logger

	mu       sync.Mutex
	closed   bool
	inflight int
}

// NewOutbox creates an outbox holding at most capacity envelopes.
func NewOutbox(capacity int, log *slog.Logger) *Outbox {
	return &Outbox{
		ch:   make(chan protocol.Envelope, capacity),
		done: make(chan struct{}),
		idle: make(chan struct{}),
		log:  log,
	}
}

// Put enqueues e. It returns ErrClosed once the outbox has been closed.
func (o *Outbox) Put(e protocol.Envelope) error {
	if !o.enter() {
		return ErrClosed
	}
	defer o.leave()

	if e.Tag.Droppable() {
		return o.putOrDrop(e)
	}

	select {
	case o.ch <- e:
		return nil
	case <-o.done:
		return ErrClosed
	}
}

// TryPut is Put without blocking: a full queue yields ErrBusy for tags that
// cannot be dropped.
func (o *Outbox) TryPut(e protocol.Envelope) error {
	if !o.enter() {
		return ErrClosed
	}
	defer o.leave()

	if e.Tag.Droppable() {
		return o.putOrDrop(e)
	}

	select {
	case o.ch <- e:
		return nil
	case <-o.done:
		return ErrClosed
	default:
		return ErrBusy
	}
}

func (o *Outbox) putOrDrop(e protocol.Envelope) error {
	select {
	case o.ch <- e:
		return nil
	case <-o.done:
		return ErrClosed
	default:
		n := o.dropped.Add(1)
		o.log.Debug("outbox full, dropped debug envelope", "tag", e.Tag, "serial", e.Serial, "dropped_total", n)
		return nil
	}
}

// enter registers an in-flight Put. It fails once the outbox is closed.
func (o *Outbox) enter() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	o.inflight++
	return true
}

func (o *Outbox) leave() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inflight--
	if o.closed && o.inflight == 0 {
		close(o.idle)
	}
}

// Close stops accepting envelopes. Envelopes already queued are still
// delivered by the Writer. Safe to call multiple times.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	close(o.done)
	if o.inflight == 0 {
		close(o.idle)
	}
}

// settled is closed after Close once every in-flight Put has returned. From
// then on the queue only shrinks.
func (o *Outbox) settled() <-chan struct{} {
	return o.idle
}

// Closed reports whether Close has been called.
func (o *Outbox) Closed() bool {
	select {
	case <-o.done:
		return true
	default:
		return false
	}
}

// Dropped returns how many debug envelopes have been discarded.
func (o *Outbox) Dropped() uint64 {
	return o.dropped.Load()
}

// Len returns the number of queued envelopes.
func (o *Outbox) Len() int {
	return len(o.ch)
}

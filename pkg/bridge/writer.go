package bridge

import (
	"bufio"
	"io"
	"log/slog"

	"quill/pkg/protocol"
)

// Writer drains the outbox onto the outbound stream, one line per envelope,
// flushing after each so the controller sees it promptly.
type Writer struct {
	outbox *Outbox
	w      *bufio.Writer
	tap    Tap
	log    *slog.Logger
}

// NewWriter creates a Writer draining outbox into w.
func NewWriter(outbox *Outbox, w io.Writer, tap Tap, log *slog.Logger) *Writer {
	return &Writer{outbox: outbox, w: bufio.NewWriter(w), tap: tap, log: log}
}

// Run writes envelopes until the outbox is closed, then flushes whatever is
// still queued and returns nil. A write failure closes the outbox, so that
// senders fail fast instead of blocking, and returns a *StreamError.
func (w *Writer) Run() error {
	for {
		select {
		case env := <-w.outbox.ch:
			if err := w.write(env); err != nil {
				w.outbox.Close()
				return err
			}
		case <-w.outbox.done:
			<-w.outbox.settled()
			return w.drain()
		}
	}
}

// drain writes the envelopes left in the queue after Close and after every
// in-flight Put has returned.
func (w *Writer) drain() error {
	for {
		select {
		case env := <-w.outbox.ch:
			if err := w.write(env); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (w *Writer) write(env protocol.Envelope) error {
	if _, err := w.w.Write(protocol.Encode(env)); err != nil {
		w.log.Error("write envelope", "tag", env.Tag, "serial", env.Serial, "err", err)
		return &StreamError{Op: "write", Err: err}
	}
	if err := w.w.Flush(); err != nil {
		w.log.Error("flush envelope", "tag", env.Tag, "serial", env.Serial, "err", err)
		return &StreamError{Op: "write", Err: err}
	}
	w.tap.Observe(protocol.Outbound, env)
	return nil
}

package bridge

import (
	"errors"
	"fmt"
)

// ErrClosed is returned when an envelope is sent after the outbound queue
// has been closed, either by shutdown or because the writer failed.
var ErrClosed = errors.New("bridge: outbound queue closed")

// ErrBusy is returned by non-blocking sends when the outbound queue is full.
var ErrBusy = errors.New("bridge: outbound queue full")

// ErrAlreadyRunning is returned by a second concurrent Dispatcher.Run.
var ErrAlreadyRunning = errors.New("bridge: dispatcher already running")

// StreamError reports a failure on one of the two byte streams. End of the
// inbound stream is a StreamError wrapping io.EOF: the protocol assumes the
// controller stays connected for the life of the process.
type StreamError struct {
	Op  string // "read" or "write"
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("bridge: %s stream: %v", e.Op, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

package bridge

import (
	"bufio"
	"context"
	"io"
	"log/slog"

	"quill/pkg/protocol"
)

// DefaultMaxLineBytes caps one inbound line. SetBufferCommand carries a
// whole file, so the cap is generous.
const DefaultMaxLineBytes = 16 << 20

// Reader turns inbound lines into envelopes on the inbox channel.
type Reader struct {
	r       io.Reader
	inbox   chan<- protocol.Envelope
	maxLine int
	tap     Tap
	log     *slog.Logger
}

// NewReader creates a Reader that decodes lines from r into inbox.
func NewReader(r io.Reader, inbox chan<- protocol.Envelope, maxLine int, tap Tap, log *slog.Logger) *Reader {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineBytes
	}
	return &Reader{r: r, inbox: inbox, maxLine: maxLine, tap: tap, log: log}
}

// Run forwards envelopes until ctx is cancelled or the stream fails. A
// malformed line returns a *protocol.DecodeError and end of stream returns
// a *StreamError: neither is skipped. Run closes inbox on return.
func (r *Reader) Run(ctx context.Context) error {
	defer close(r.inbox)

	lines := make(chan []byte)
	errCh := make(chan error, 1)

	// Scan in a goroutine so we can select on ctx.Done; a Read blocked on
	// stdin cannot be interrupted and is released at process exit.
	go r.scan(ctx, lines, errCh)

	for {
		select {
		case <-ctx.Done():
			return nil

		case line := <-lines:
			env, err := protocol.Decode(line)
			if err != nil {
				r.log.Error("malformed inbound line", "err", err)
				return err
			}
			r.tap.Observe(protocol.Inbound, env)

			select {
			case r.inbox <- env:
			case <-ctx.Done():
				return nil
			}

		case err := <-errCh:
			if ctx.Err() != nil {
				return nil //nolint:nilerr // cancelled: the stream error is expected
			}
			return &StreamError{Op: "read", Err: err}
		}
	}
}

func (r *Reader) scan(ctx context.Context, lines chan<- []byte, errCh chan<- error) {
	scanner := bufio.NewScanner(r.r)
	scanner.Buffer(make([]byte, 0, 64*1024), r.maxLine)

	for scanner.Scan() {
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		select {
		case lines <- line:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		errCh <- err
		return
	}
	errCh <- io.EOF
}

package bridge //nolint:testpackage // internal white-box tests need access to unexported fields

import (
	"bufio"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"quill/pkg/protocol"
)

// waitFor polls condition every tick until it returns true or timeout expires.
func waitFor(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond) // short poll inside helper is OK
	}
	t.Fatalf("waitFor: condition not met within %v", timeout)
}

// controller plays the remote peer: it writes command lines into the
// bridge's inbound stream and collects every outbound line.
type controller struct {
	t     *testing.T
	inW   *io.PipeWriter
	outR  *io.PipeReader
	lines chan protocol.Envelope
}

// newBridgeWithController starts a bridge wired to a fake controller over
// two pipes. The bridge is shut down at test cleanup.
func newBridgeWithController(t *testing.T, cfg Config, opts ...Option) (*Bridge, *controller) {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	c := &controller{t: t, inW: inW, outR: outR, lines: make(chan protocol.Envelope, 1024)}
	go c.collect()

	b := New(cfg, inR, outW, opts...)
	b.Start(context.Background())

	t.Cleanup(func() {
		_ = inW.Close()
		_ = b.Shutdown()
		_ = outW.Close()
	})
	return b, c
}

func (c *controller) collect() {
	defer close(c.lines)
	scanner := bufio.NewScanner(c.outR)
	for scanner.Scan() {
		env, err := protocol.Decode(scanner.Bytes())
		if err != nil {
			c.t.Errorf("controller got malformed line %q: %v", scanner.Text(), err)
			return
		}
		c.lines <- env
	}
}

// send writes one raw line to the bridge.
func (c *controller) send(line string) {
	c.t.Helper()
	if _, err := io.WriteString(c.inW, line+"\n"); err != nil {
		c.t.Fatalf("controller write: %v", err)
	}
}

// sendEnvelope encodes and writes env.
func (c *controller) sendEnvelope(env protocol.Envelope) {
	c.t.Helper()
	if _, err := c.inW.Write(protocol.Encode(env)); err != nil {
		c.t.Fatalf("controller write: %v", err)
	}
}

// next returns the next outbound envelope or fails after timeout.
func (c *controller) next(timeout time.Duration) protocol.Envelope {
	c.t.Helper()
	select {
	case env, ok := <-c.lines:
		if !ok {
			c.t.Fatal("outbound stream closed")
		}
		return env
	case <-time.After(timeout):
		c.t.Fatalf("no outbound envelope within %v", timeout)
	}
	return protocol.Envelope{}
}

// expectSilence fails if an outbound envelope arrives within d.
func (c *controller) expectSilence(d time.Duration) {
	c.t.Helper()
	select {
	case env, ok := <-c.lines:
		if ok {
			c.t.Fatalf("unexpected outbound envelope %+v", env)
		}
	case <-time.After(d):
	}
}

// recordingTap collects observed envelopes per direction.
type recordingTap struct {
	mu  sync.Mutex
	in  []protocol.Envelope
	out []protocol.Envelope
}

func (r *recordingTap) Observe(dir protocol.Direction, env protocol.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if dir == protocol.Inbound {
		r.in = append(r.in, env)
	} else {
		r.out = append(r.out, env)
	}
}

func (r *recordingTap) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.in), len(r.out)
}

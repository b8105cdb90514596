// Package bridge relays envelopes between the interactive front-end and the
// controller process. Four goroutines make up a running bridge: a Reader on
// the inbound stream, a Writer on the outbound stream, the Dispatcher that
// owns the editor state, and an optional file watcher. The interactive loop
// talks to the bridge only through Snapshot, Send, EditBuffer and Changed.
package bridge

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"quill/pkg/filewatch"
	"quill/pkg/protocol"
)

// Config holds Bridge configuration.
type Config struct {
	InboundCapacity  int  // Inbound channel size (default 64). Full means the reader blocks.
	OutboundCapacity int  // Outbox size (default 256). Full means debug envelopes are dropped.
	MaxLineBytes     int  // Longest accepted inbound line (default 16 MiB).
	EchoReads        bool // Send a DebugMessage with the contents of every file read.
	WatchActiveFile  bool // Reload the active file when it changes on disk.
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.InboundCapacity <= 0 {
		out.InboundCapacity = 64
	}
	if out.OutboundCapacity <= 0 {
		out.OutboundCapacity = 256
	}
	if out.MaxLineBytes <= 0 {
		out.MaxLineBytes = DefaultMaxLineBytes
	}
	return out
}

// Option customizes a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger. The default discards.
func WithLogger(log *slog.Logger) Option {
	return func(b *Bridge) { b.log = log }
}

// WithTap observes all traffic, e.g. for the journal.
func WithTap(tap Tap) Option {
	return func(b *Bridge) { b.tap = tap }
}

// WithReadFile replaces os.ReadFile for OpenFileCommand and reloads.
func WithReadFile(fn func(path string) ([]byte, error)) Option {
	return func(b *Bridge) { b.readFile = fn }
}

// Bridge is the composition root of the event bridge.
type Bridge struct {
	cfg      Config
	log      *slog.Logger
	tap      Tap
	readFile func(path string) ([]byte, error)

	store   *Store
	outbox  *Outbox
	sender  *Sender
	local   *localRequests
	changed chan struct{}

	reader     *Reader
	writer     *Writer
	dispatcher *Dispatcher
	watcher    *filewatch.Watcher

	startOnce sync.Once

	mu     sync.Mutex
	cancel context.CancelFunc
	err    error
	done   chan struct{}
}

// New wires a Bridge reading commands from in and writing events to out.
// Nothing runs until Start.
func New(cfg Config, in io.Reader, out io.Writer, opts ...Option) *Bridge {
	b := &Bridge{
		cfg:      cfg.withDefaults(),
		log:      slog.New(slog.DiscardHandler),
		tap:      nopTap{},
		readFile: os.ReadFile,
		store:    NewStore(),
		local:    newLocalRequests(),
		changed:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.outbox = NewOutbox(b.cfg.OutboundCapacity, b.log.With("component", "outbox"))
	b.sender = NewSender(b.outbox)
	inbox := make(chan protocol.Envelope, b.cfg.InboundCapacity)

	b.reader = NewReader(in, inbox, b.cfg.MaxLineBytes, b.tap, b.log.With("component", "reader"))
	b.writer = NewWriter(b.outbox, out, b.tap, b.log.With("component", "writer"))
	b.dispatcher = &Dispatcher{
		inbox:     inbox,
		local:     b.local,
		store:     b.store,
		sender:    b.sender,
		readFile:  b.readFile,
		echoReads: b.cfg.EchoReads,
		notify:    b.notify,
		log:       b.log.With("component", "dispatcher"),
	}

	if b.cfg.WatchActiveFile {
		w, err := filewatch.New(func(string) { b.Reload() }, b.log.With("component", "filewatch"))
		if err != nil {
			b.log.Warn("file watching disabled", "err", err)
		} else {
			b.watcher = w
			b.dispatcher.follow = func(path string) {
				if err := w.Follow(path); err != nil {
					b.log.Warn("cannot watch active file", "path", path, "err", err)
				}
			}
		}
	}

	return b
}

// Start launches the background loops. Only the first call has any effect:
// the interactive loop may call it as often as it likes and exactly one
// dispatcher will run.
//
// A failing loop stops the reader and the watcher. The dispatcher is only
// stopped by Shutdown or ctx: after a reader failure it applies what was
// already received and exits when the reader closes the inbox.
func (b *Bridge) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		b.mu.Lock()
		b.cancel = cancel
		b.mu.Unlock()

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error { return b.reader.Run(gctx) })
		g.Go(func() error {
			// The dispatcher is the last internal sender; once it stops the
			// writer may drain and exit.
			defer b.outbox.Close()
			return b.dispatcher.Run(ctx)
		})
		g.Go(b.writer.Run)
		if b.watcher != nil {
			g.Go(func() error { return b.watcher.Run(gctx) })
		}

		go func() {
			err := g.Wait()
			cancel()
			if err != nil {
				b.log.Error("bridge stopped", "err", err)
			}
			b.mu.Lock()
			b.err = err
			b.mu.Unlock()
			close(b.done)
		}()

		b.log.Info("bridge started",
			"inbound_capacity", b.cfg.InboundCapacity,
			"outbound_capacity", b.cfg.OutboundCapacity,
			"watch_active_file", b.watcher != nil)
	})
}

// Done is closed when every background loop has exited.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until the bridge stops and returns the first fatal error, or
// nil when it was stopped by Shutdown or context cancellation.
func (b *Bridge) Wait() error {
	<-b.done
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Shutdown stops the reader and dispatcher, lets the writer flush every
// envelope already queued, and waits for all loops to exit.
func (b *Bridge) Shutdown() error {
	b.startOnce.Do(func() {
		// Never started: release what New acquired.
		b.outbox.Close()
		if b.watcher != nil {
			if err := b.watcher.Close(); err != nil {
				b.log.Warn("close file watcher", "err", err)
			}
		}
		close(b.done)
	})

	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return b.Wait()
}

// Snapshot returns a copy of the current editor state.
func (b *Bridge) Snapshot() Snapshot {
	snap := b.store.Snapshot()
	snap.NextSerial = b.sender.Next()
	snap.DroppedEvents = b.outbox.Dropped()
	return snap
}

// Send enqueues an outbound event for the controller, waiting for room in
// the outbox. The interactive loop uses TrySend instead.
func (b *Bridge) Send(tag protocol.Tag, data ...string) error {
	return b.sender.Send(tag, data...)
}

// TrySend enqueues an outbound event without blocking. It returns ErrBusy
// while the controller is not keeping up.
func (b *Bridge) TrySend(tag protocol.Tag, data ...string) error {
	return b.sender.TrySend(tag, data...)
}

// EditBuffer records a local edit. The dispatcher applies it; only the most
// recent pending edit is kept. Never blocks.
func (b *Bridge) EditBuffer(text string) {
	b.local.postEdit(text, false)
}

// ChangeBuffer is EditBuffer plus a BufferChanged report to the controller.
// The dispatcher sends the report, so edits made while the outbox is full
// coalesce into one BufferChanged carrying the latest text. Never blocks.
func (b *Bridge) ChangeBuffer(text string) {
	b.local.postEdit(text, true)
}

// Reload asks the dispatcher to re-read the active file. Never blocks.
func (b *Bridge) Reload() {
	b.local.postReload()
}

// Changed delivers a value whenever the state changed since the last
// receive. Notifications coalesce: a slow reader sees at most one pending.
func (b *Bridge) Changed() <-chan struct{} {
	return b.changed
}

func (b *Bridge) notify() {
	select {
	case b.changed <- struct{}{}:
	default:
	}
}

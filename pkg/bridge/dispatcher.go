package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"quill/pkg/protocol"
)

// Dispatcher is the single owner of the Store. It applies inbound envelopes
// in arrival order, one transition per envelope, and services local edit and
// reload requests from the interactive loop.
type Dispatcher struct {
	inbox     <-chan protocol.Envelope
	local     *localRequests
	store     *Store
	sender    *Sender
	readFile  func(path string) ([]byte, error)
	echoReads bool
	notify    func()
	follow    func(path string)
	log       *slog.Logger

	running atomic.Bool
}

// Run processes envelopes until ctx is cancelled or the inbox is closed.
// Everything queued before the Reader closes the inbox is processed, so a
// controller that writes its commands and hangs up still has all of them
// applied. Only one Run may be active; a second returns ErrAlreadyRunning.
// Otherwise it returns an error only when an envelope it must emit cannot
// be queued.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer d.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			return nil

		case env, ok := <-d.inbox:
			if !ok {
				return nil
			}
			if err := d.handle(env); err != nil {
				return d.sendFailed(err)
			}

		case <-d.local.signal:
			if err := d.handleLocal(); err != nil {
				return d.sendFailed(err)
			}
		}
	}
}

// sendFailed decides what an enqueue failure means. ErrClosed here means
// the writer already failed and reported its own error, so the dispatcher
// just stops.
func (d *Dispatcher) sendFailed(err error) error {
	if errors.Is(err, ErrClosed) {
		d.log.Warn("dispatcher stopping: outbound queue closed")
		return nil
	}
	return err
}

// handle applies one envelope, then counts it and requests a redraw
// whether or not the tag was recognized.
func (d *Dispatcher) handle(env protocol.Envelope) error {
	d.log.Debug("dispatch", "tag", env.Tag, "serial", env.Serial)

	err := d.apply(env)
	d.store.countEvent()
	d.notify()
	return err
}

func (d *Dispatcher) apply(env protocol.Envelope) error {
	cmd, err := protocol.ParseCommand(env)
	if err != nil {
		d.log.Warn("malformed command", "tag", env.Tag, "serial", env.Serial, "err", err)
		return d.sender.Send(protocol.TagErrorMalformedCommand, err.Error())
	}

	switch c := cmd.(type) {
	case protocol.SetAvailableFiles:
		d.store.replaceAvailableFiles(c.Paths)
		return nil
	case protocol.OpenFile:
		d.store.setActiveFile(c.Path)
		if d.follow != nil {
			d.follow(c.Path)
		}
		return d.load(c.Path)
	case protocol.SetBuffer:
		d.store.setBuffer(c.Text, false)
		return nil
	default:
		return d.sender.Send(protocol.TagDebugGotUnknownMessage, describe(env))
	}
}

// load reads path into the buffer. On failure the buffer is left as it was
// and exactly one ErrorReadingFile is sent.
func (d *Dispatcher) load(path string) error {
	contents, err := d.readFile(path)
	if err != nil {
		readErr := &protocol.FileReadError{Path: path, Err: err}
		d.log.Warn("open file failed", "err", readErr)
		return d.sender.Send(protocol.TagErrorReadingFile, err.Error())
	}

	text := string(contents)
	if d.echoReads {
		if err := d.sender.Send(protocol.TagDebugMessage, "read file", text); err != nil {
			return err
		}
	}
	d.store.setBuffer(text, false)
	return nil
}

func (d *Dispatcher) handleLocal() error {
	edit, announce, reload := d.local.take()
	if edit != nil {
		d.store.setBuffer(*edit, true)
		if announce {
			if err := d.sender.Send(protocol.TagBufferChanged, *edit); err != nil {
				return err
			}
		}
	}
	if reload {
		path := d.store.activeFilePath()
		if path == "" {
			return nil
		}
		if err := d.load(path); err != nil {
			return err
		}
		d.notify()
	}
	return nil
}

// describe renders an unrecognized envelope for DebugGotUnknownMessage.
func describe(env protocol.Envelope) string {
	return fmt.Sprintf("%s, %q, %d", env.Tag, strings.Join(env.Data, ", "), env.Serial)
}

package bridge

import (
	"sync"

	"quill/pkg/protocol"
)

// Sender numbers outbound envelopes and hands them to the outbox. Serials
// start at 0 and are assigned in the order Send calls take the lock. They
// are unique within this process only; the controller keeps its own counter.
type Sender struct {
	mu     sync.Mutex
	next   int64
	outbox *Outbox
}

// NewSender creates a Sender feeding outbox.
func NewSender(outbox *Outbox) *Sender {
	return &Sender{outbox: outbox}
}

// Send builds an envelope with the next serial and enqueues it. The enqueue
// happens outside the lock, so a full outbox never stalls serial assignment.
func (s *Sender) Send(tag protocol.Tag, data ...string) error {
	s.mu.Lock()
	env := protocol.New(tag, s.next, data...)
	s.next++
	s.mu.Unlock()

	return s.outbox.Put(env)
}

// TrySend is Send for callers that must not block. The serial is only
// consumed when the envelope was queued, so a rejected send leaves no gap.
func (s *Sender) TrySend(tag protocol.Tag, data ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.outbox.TryPut(protocol.New(tag, s.next, data...)); err != nil {
		return err
	}
	s.next++
	return nil
}

// Next returns the serial the next Send will use.
func (s *Sender) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

package bridge

import "quill/pkg/protocol"

// Tap observes every envelope that crosses the bridge: inbound after it is
// decoded, outbound after it is flushed. Implementations should return
// quickly: they run on the reader and writer goroutines.
type Tap interface {
	Observe(dir protocol.Direction, env protocol.Envelope)
}

// TapFunc adapts a function to Tap.
type TapFunc func(dir protocol.Direction, env protocol.Envelope)

// Observe calls f.
func (f TapFunc) Observe(dir protocol.Direction, env protocol.Envelope) { f(dir, env) }

type nopTap struct{}

func (nopTap) Observe(protocol.Direction, protocol.Envelope) {}

package protocol

import "fmt"

// DecodeError reports an inbound line that is not a well-formed Envelope.
// It is a protocol violation: the bridge treats it as fatal.
type DecodeError struct {
	Line   string // the offending line, without its terminator
	Reason string // what was wrong with it
	Err    error  // underlying JSON error, if any
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode envelope %q: %s: %v", truncate(e.Line, 120), e.Reason, e.Err)
	}
	return fmt.Sprintf("decode envelope %q: %s", truncate(e.Line, 120), e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// PayloadError reports a recognized command whose data array does not match
// the arity its tag requires.
type PayloadError struct {
	Tag  Tag
	Want int // required number of data entries
	Got  int
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("%s requires %d data entries, got %d", e.Tag, e.Want, e.Got)
}

// FileReadError reports a path that could not be read while opening or
// reloading a file. It is recovered locally and reported to the peer.
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

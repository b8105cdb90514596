package protocol

// Command is an inbound envelope decoded into named fields. The concrete
// types are SetAvailableFiles, OpenFile, SetBuffer and Unknown.
type Command interface {
	// Envelope returns the envelope the command was parsed from.
	Envelope() Envelope
	isCommand()
}

// SetAvailableFiles replaces the list of files offered to the user.
type SetAvailableFiles struct {
	Paths []string
	env   Envelope
}

// OpenFile makes Path the active file and loads its contents.
type OpenFile struct {
	Path string
	env  Envelope
}

// SetBuffer overrides the buffer contents without saving.
type SetBuffer struct {
	Text string
	env  Envelope
}

// Unknown carries any envelope whose tag is not a front-end command,
// including known event tags echoed back by the controller.
type Unknown struct {
	env Envelope
}

func (c SetAvailableFiles) Envelope() Envelope { return c.env }
func (c OpenFile) Envelope() Envelope          { return c.env }
func (c SetBuffer) Envelope() Envelope         { return c.env }
func (c Unknown) Envelope() Envelope           { return c.env }

func (SetAvailableFiles) isCommand() {}
func (OpenFile) isCommand()          {}
func (SetBuffer) isCommand()         {}
func (Unknown) isCommand()           {}

// ParseCommand maps an envelope onto its typed command. A command tag whose
// data has the wrong arity yields a *PayloadError; unrecognized tags are
// never an error and come back as Unknown.
func ParseCommand(e Envelope) (Command, error) {
	switch e.Tag {
	case TagSetAvailableFiles:
		paths := make([]string, len(e.Data))
		copy(paths, e.Data)
		return SetAvailableFiles{Paths: paths, env: e}, nil
	case TagOpenFile:
		if len(e.Data) < 1 {
			return nil, &PayloadError{Tag: e.Tag, Want: 1, Got: len(e.Data)}
		}
		return OpenFile{Path: e.Data[0], env: e}, nil
	case TagSetBuffer:
		if len(e.Data) < 1 {
			return nil, &PayloadError{Tag: e.Tag, Want: 1, Got: len(e.Data)}
		}
		return SetBuffer{Text: e.Data[0], env: e}, nil
	default:
		return Unknown{env: e}, nil
	}
}

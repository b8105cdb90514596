// Package protocol defines the quill wire protocol: the tagged Envelope
// exchanged with the controller process, its line codec, and the typed
// commands the dispatcher decodes envelopes into.
package protocol

// Tag names the command or event kind carried by an Envelope.
type Tag string

// Commands sent by the controller to the front-end.
const (
	TagSetAvailableFiles Tag = "SetAvailableFilesCommand"
	TagOpenFile          Tag = "OpenFileCommand"
	TagSetBuffer         Tag = "SetBufferCommand"
)

// Events sent by the front-end to the controller.
const (
	TagClickFile     Tag = "ClickFileEvent"
	TagBufferChanged Tag = "BufferChanged"
	TagNavigateUp    Tag = "NavigateUp"
	TagExit          Tag = "Exit"
	TagGuiEvent      Tag = "GuiEvent"
)

// Observability variants. Debug* envelopes may be dropped under pressure,
// Error* envelopes never are.
const (
	TagDebugMessage           Tag = "DebugMessage"
	TagDebugGotUnknownMessage Tag = "DebugGotUnknownMessage"
	TagDebugNoBufferToSave    Tag = "DebugNoBufferToSave"
	TagDebugGuiGotMessage     Tag = "DebugGuiGotMessage"
	TagErrorReadingFile       Tag = "ErrorReadingFile"
	TagErrorSwitchToFile      Tag = "ErrorSwitchToFile"
	TagErrorMalformedCommand  Tag = "ErrorMalformedCommand"
)

// KnownTags lists every tag in the closed set, commands first.
var KnownTags = []Tag{ //nolint:gochecknoglobals // read-only table
	TagSetAvailableFiles,
	TagOpenFile,
	TagSetBuffer,
	TagClickFile,
	TagBufferChanged,
	TagNavigateUp,
	TagExit,
	TagGuiEvent,
	TagDebugMessage,
	TagDebugGotUnknownMessage,
	TagDebugNoBufferToSave,
	TagDebugGuiGotMessage,
	TagErrorReadingFile,
	TagErrorSwitchToFile,
	TagErrorMalformedCommand,
}

// Known reports whether t belongs to the closed tag set.
func (t Tag) Known() bool {
	for _, k := range KnownTags {
		if t == k {
			return true
		}
	}
	return false
}

// Droppable reports whether an outbound envelope with this tag may be
// discarded when the outbound queue is full.
func (t Tag) Droppable() bool {
	switch t {
	case TagDebugMessage, TagDebugGotUnknownMessage, TagDebugNoBufferToSave, TagDebugGuiGotMessage:
		return true
	default:
		return false
	}
}

// Envelope is one tagged message unit exchanged over the bridge.
// Data arity and meaning are defined per tag.
type Envelope struct {
	Tag    Tag      `json:"typ"`
	Data   []string `json:"data"`
	Serial int64    `json:"serial"`
}

// New builds an Envelope. The data slice is copied.
func New(tag Tag, serial int64, data ...string) Envelope {
	d := make([]string, len(data))
	copy(d, data)
	return Envelope{Tag: tag, Data: d, Serial: serial}
}

// Direction records which way an envelope crossed the bridge.
type Direction string

// Direction constants.
const (
	Inbound  Direction = "in"
	Outbound Direction = "out"
)

// Valid reports whether d is Inbound or Outbound.
func (d Direction) Valid() bool {
	return d == Inbound || d == Outbound
}

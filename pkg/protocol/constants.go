package protocol

// Directory and file name constants used throughout quill.
const (
	// QuillDir is the user-level state directory (e.g., ~/.quill).
	QuillDir = ".quill"

	// ConfigFile is the default config file name inside QuillDir.
	ConfigFile = "config.yaml"

	// JournalFile is the default traffic journal database inside QuillDir.
	JournalFile = "journal.db"
)

// ExitFarewell is the payload of the Exit event sent when the front-end quits.
const ExitFarewell = "byebye"

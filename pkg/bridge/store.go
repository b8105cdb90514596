package bridge

import "sync"

// Snapshot is a point-in-time copy of the editor state. It never aliases
// the store's internal slices.
type Snapshot struct {
	ActiveFile     string // "" until an OpenFileCommand arrives
	Buffer         string
	BufferLoaded   bool   // false until a command or a local read fills Buffer
	BufferRevision uint64 // bumped on every buffer write not made by the local editor
	AvailableFiles []string
	EventCount     int64
	NextSerial     int64  // serial the next outbound envelope will carry
	DroppedEvents  uint64 // debug envelopes discarded because the outbox was full
}

// Store holds the shared editor state. Its mutators are unexported: only
// the dispatcher goroutine writes, everything else reads through Snapshot.
type Store struct {
	mu             sync.RWMutex
	activeFile     string
	buffer         string
	bufferLoaded   bool
	bufferRevision uint64
	availableFiles []string
	eventCount     int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{availableFiles: []string{}}
}

// Snapshot copies the current state. NextSerial and DroppedEvents are
// filled in by Bridge.Snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := make([]string, len(s.availableFiles))
	copy(files, s.availableFiles)
	return Snapshot{
		ActiveFile:     s.activeFile,
		Buffer:         s.buffer,
		BufferLoaded:   s.bufferLoaded,
		BufferRevision: s.bufferRevision,
		AvailableFiles: files,
		EventCount:     s.eventCount,
	}
}

// activeFilePath returns the active file without copying the whole state.
func (s *Store) activeFilePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeFile
}

// replaceAvailableFiles swaps the file list wholesale.
func (s *Store) replaceAvailableFiles(paths []string) {
	files := make([]string, len(paths))
	copy(files, paths)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.availableFiles = files
}

func (s *Store) setActiveFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeFile = path
}

// setBuffer stores text. Writes coming from the local editor do not bump
// the revision, so the editor does not reload its own keystrokes.
func (s *Store) setBuffer(text string, local bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = text
	s.bufferLoaded = true
	if !local {
		s.bufferRevision++
	}
}

func (s *Store) countEvent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventCount++
}

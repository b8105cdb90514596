// Package ui is the terminal front-end of the editor. It renders bridge
// snapshots and turns key presses into outbound events; it never touches
// editor state directly.
package ui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"quill/pkg/bridge"
	"quill/pkg/protocol"
)

// Backend is the part of the bridge the UI uses. *bridge.Bridge satisfies it.
// None of its methods may block.
type Backend interface {
	Snapshot() bridge.Snapshot
	TrySend(tag protocol.Tag, data ...string) error
	ChangeBuffer(text string)
	Changed() <-chan struct{}
	Done() <-chan struct{}
}

// stateChangedMsg is delivered when the bridge reports new state.
type stateChangedMsg struct{}

// bridgeStoppedMsg is delivered when the bridge has shut down.
type bridgeStoppedMsg struct{}

// waitForChange blocks on the bridge's change channel. It is re-armed after
// every delivery.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return stateChangedMsg{}
	}
}

func waitForStop(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done
		return bridgeStoppedMsg{}
	}
}

type pane int

const (
	filesPane pane = iota
	editorPane
)

// maxOutputLines bounds the action log in the side pane.
const maxOutputLines = 200

// Model is the Bubble Tea model for the editor.
type Model struct {
	backend Backend

	keys       filesKeys
	editorKeys editorKeys
	help       help.Model
	styles     styles
	editor     textarea.Model

	snap     bridge.Snapshot
	revision uint64 // buffer revision last copied into the editor
	cursor   int    // selected index in snap.AvailableFiles
	focus    pane
	output   []string

	err     error // last Send failure, shown in the status line
	stopped bool

	width  int
	height int
}

// New creates a Model reading state from backend.
func New(backend Backend) Model {
	ed := textarea.New()
	ed.Placeholder = "empty"
	ed.ShowLineNumbers = true
	ed.CharLimit = 0
	ed.MaxHeight = 0

	m := Model{
		backend:    backend,
		keys:       defaultFilesKeys(),
		editorKeys: defaultEditorKeys(),
		help:       help.New(),
		styles:     newStyles(DefaultTheme()),
		editor:     ed,
		width:      80,
		height:     24,
	}
	m.refresh()
	m.resize()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForChange(m.backend.Changed()), waitForStop(m.backend.Done()))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case stateChangedMsg:
		m.refresh()
		return m, waitForChange(m.backend.Changed())

	case bridgeStoppedMsg:
		m.stopped = true
		return m, tea.Quit

	case tea.KeyMsg:
		if m.focus == editorPane {
			return m.updateEditor(msg)
		}
		return m.updateFiles(msg)
	}

	if m.focus == editorPane {
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return m, cmd
	}
	return m, nil
}

// Stopped reports whether the UI exited because the bridge shut down.
func (m Model) Stopped() bool {
	return m.stopped
}

func (m Model) updateFiles(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	files := m.snap.AvailableFiles

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(files)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Open):
		if len(files) > 0 {
			m.send(protocol.TagClickFile, files[m.cursor])
		}
	case key.Matches(msg, m.keys.Parent):
		m.send(protocol.TagNavigateUp)
	case key.Matches(msg, m.keys.Edit):
		if m.snap.ActiveFile != "" {
			m.focus = editorPane
			return m, m.editor.Focus()
		}
	case key.Matches(msg, m.keys.Test):
		m.log("test")
	case key.Matches(msg, m.keys.Commit):
		m.log("commit")
	case key.Matches(msg, m.keys.Revert):
		m.log("revert")
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.editorKeys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.editorKeys.Leave):
		m.focus = filesPane
		m.editor.Blur()
		return m, nil
	}

	before := m.editor.Value()
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if text := m.editor.Value(); text != before {
		m.backend.ChangeBuffer(text)
		m.err = nil
	}
	return m, cmd
}

// send enqueues an outbound event and remembers a failure for display. A
// full outbox is reported rather than waited on.
func (m *Model) send(tag protocol.Tag, data ...string) {
	m.err = m.backend.TrySend(tag, data...)
}

func (m *Model) log(line string) {
	m.output = append(m.output, line)
	if over := len(m.output) - maxOutputLines; over > 0 {
		m.output = m.output[over:]
	}
}

// refresh copies the latest snapshot. The editor is only overwritten when
// the buffer was replaced by something other than local typing.
func (m *Model) refresh() {
	m.snap = m.backend.Snapshot()
	if m.snap.BufferRevision != m.revision {
		m.editor.SetValue(m.snap.Buffer)
		m.revision = m.snap.BufferRevision
	}
	if n := len(m.snap.AvailableFiles); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	if m.snap.ActiveFile == "" && m.focus == editorPane {
		m.focus = filesPane
		m.editor.Blur()
	}
}

package ui

import "github.com/charmbracelet/bubbles/key"

// filesKeys holds key bindings while the file list has focus.
type filesKeys struct {
	Up     key.Binding
	Down   key.Binding
	Open   key.Binding
	Parent key.Binding
	Edit   key.Binding
	Test   key.Binding
	Commit key.Binding
	Revert key.Binding
	Help   key.Binding
	Quit   key.Binding
}

// ShortHelp returns the file list bindings for the help bar.
func (k filesKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Open, k.Parent, k.Edit, k.Help, k.Quit}
}

// FullHelp returns the file list bindings grouped for expanded help.
func (k filesKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open, k.Parent},
		{k.Edit, k.Test, k.Commit, k.Revert},
		{k.Help, k.Quit},
	}
}

// editorKeys holds key bindings while the editor has focus. Everything
// else goes to the textarea.
type editorKeys struct {
	Leave key.Binding
	Quit  key.Binding
}

// ShortHelp returns the editor bindings for the help bar.
func (k editorKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Leave, k.Quit}
}

// FullHelp returns the editor bindings grouped for expanded help.
func (k editorKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Leave, k.Quit}}
}

func defaultFilesKeys() filesKeys {
	return filesKeys{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Parent: key.NewBinding(
			key.WithKeys("backspace", "u"),
			key.WithHelp("⌫/u", "parent dir"),
		),
		Edit: key.NewBinding(
			key.WithKeys("tab", "e"),
			key.WithHelp("tab", "edit"),
		),
		Test: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "test"),
		),
		Commit: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "commit"),
		),
		Revert: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "revert"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func defaultEditorKeys() editorKeys {
	return editorKeys{
		Leave: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "files"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

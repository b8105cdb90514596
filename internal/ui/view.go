package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
)

const (
	sidePaneWidth  = 26
	minEditorWidth = 20
	// border plus padding on each side of a pane
	paneChrome = 4
)

func (m *Model) resize() {
	m.editor.SetWidth(max(m.width-2*sidePaneWidth-paneChrome, minEditorWidth))
	m.editor.SetHeight(max(m.height-paneChrome-2, 3))
}

// View implements tea.Model.
func (m Model) View() string {
	bodyHeight := max(m.height-paneChrome, 3)

	files := m.paneStyle(filesPane).Width(sidePaneWidth).Height(bodyHeight).Render(m.viewFiles())
	center := m.paneStyle(editorPane).Height(bodyHeight).Render(m.viewEditor())
	side := m.styles.pane.Width(sidePaneWidth).Height(bodyHeight).Render(m.viewSide())

	body := lipgloss.JoinHorizontal(lipgloss.Top, files, center, side)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.viewStatus())
}

func (m Model) paneStyle(p pane) lipgloss.Style {
	if m.focus == p {
		return m.styles.focusedPane
	}
	return m.styles.pane
}

func (m Model) viewFiles() string {
	var b strings.Builder
	b.WriteString(m.styles.title.Render("Files"))
	b.WriteString("\n")
	b.WriteString(m.styles.muted.Render("⌫ .."))
	b.WriteString("\n")

	if len(m.snap.AvailableFiles) == 0 {
		b.WriteString(m.styles.muted.Render("(no files)"))
		return b.String()
	}
	for i, path := range m.snap.AvailableFiles {
		name := truncate(path, sidePaneWidth)
		switch {
		case i == m.cursor && m.focus == filesPane:
			name = m.styles.selected.Render(name)
		case path == m.snap.ActiveFile:
			name = m.styles.active.Render(name)
		}
		b.WriteString(name)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewEditor() string {
	if m.snap.ActiveFile == "" {
		return m.styles.muted.Render("no file open")
	}
	title := m.styles.title.Render(filepath.Base(m.snap.ActiveFile))
	return title + "\n" + m.editor.View()
}

func (m Model) viewSide() string {
	var b strings.Builder
	b.WriteString(m.styles.title.Render("Event count"))
	fmt.Fprintf(&b, "\n%d\n", m.snap.EventCount)
	if m.snap.DroppedEvents > 0 {
		b.WriteString(m.styles.muted.Render(fmt.Sprintf("dropped debug: %d", m.snap.DroppedEvents)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.styles.muted.Render("[t]est [c]ommit [r]evert"))
	b.WriteString("\n")

	// Show the tail that fits.
	lines := m.output
	if room := max(m.height-paneChrome-6, 1); len(lines) > room {
		lines = lines[len(lines)-room:]
	}
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewStatus() string {
	if m.err != nil {
		return m.styles.err.Render("send failed: " + m.err.Error())
	}
	var km help.KeyMap = m.keys
	if m.focus == editorPane {
		km = m.editorKeys
	}
	return m.help.View(km)
}

// truncate shortens s to width runes, marking the cut with an ellipsis.
func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}

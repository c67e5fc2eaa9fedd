package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/iw2rmb/quire/document"
	"github.com/iw2rmb/quire/editor"
)

type (
	noticeMsg string
	eventMsg  document.Event
	opDoneMsg struct {
		op  string
		err error
	}
)

type hostKeys struct {
	Save, Overwrite, Revert, Quit key.Binding
}

func defaultHostKeys() hostKeys {
	return hostKeys{
		Save:      key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Overwrite: key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "overwrite")),
		Revert:    key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "revert")),
		Quit:      key.NewBinding(key.WithKeys("ctrl+q"), key.WithHelp("ctrl+q", "quit")),
	}
}

var (
	statusBar   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236"))
	statusState = map[document.State]lipgloss.Style{
		document.StateSaved:       lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		document.StateDirty:       lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		document.StatePendingSave: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		document.StateConflict:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		document.StateError:       lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

type model struct {
	s      *session
	editor editor.Model
	keys   hostKeys
	msgs   chan tea.Msg

	notice string
	width  int
}

func newModel(s *session, msgs chan tea.Msg) model {
	s.ctrl.Subscribe(func(e document.Event) { trySend(msgs, eventMsg(e)) })
	return model{
		s: s,
		editor: editor.New(editor.Config{
			Buffer:       s.buf,
			ShowLineNums: true,
			Style:        editor.DefaultStyle(),
		}),
		keys: defaultHostKeys(),
		msgs: msgs,
	}
}

// trySend drops msg when the UI is not keeping up.
func trySend(ch chan<- tea.Msg, msg tea.Msg) {
	select {
	case ch <- msg:
	default:
	}
}

func waitFor(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg { return <-ch }
}

func (m model) Init() tea.Cmd { return waitFor(m.msgs) }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.editor = m.editor.SetSize(msg.Width, max(msg.Height-1, 0))
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Save):
			m.notice = ""
			return m, m.save(document.SaveOptions{Reason: "manual"})
		case key.Matches(msg, m.keys.Overwrite):
			m.notice = ""
			return m, m.save(document.SaveOptions{Force: true, IgnoreModifiedSince: true, Reason: "overwrite"})
		case key.Matches(msg, m.keys.Revert):
			m.notice = ""
			return m, m.revert()
		}

	case noticeMsg:
		m.notice = string(msg)
		return m, waitFor(m.msgs)

	case eventMsg:
		switch msg.Kind {
		case document.EventConflict:
			m.notice = "The stored document is newer. ctrl+o overwrites it, ctrl+r discards your edits."
		case document.EventEncodingChanged:
			m.notice = fmt.Sprintf("Encoding: %s", msg.Encoding)
		}
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return m, tea.Batch(cmd, waitFor(m.msgs))

	case opDoneMsg:
		if msg.err != nil {
			m.s.log.Debug("operation failed", "op", msg.op, "error", msg.err)
		}
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m model) save(opts document.SaveOptions) tea.Cmd {
	ctrl := m.s.ctrl
	return func() tea.Msg {
		return opDoneMsg{op: "save", err: ctrl.Save(context.Background(), opts)}
	}
}

func (m model) revert() tea.Cmd {
	ctrl := m.s.ctrl
	return func() tea.Msg {
		return opDoneMsg{op: "revert", err: ctrl.Revert(context.Background())}
	}
}

func (m model) View() string {
	return m.editor.View() + "\n" + m.statusLine()
}

func (m model) statusLine() string {
	state := m.s.ctrl.State()
	mark := ""
	if m.s.ctrl.IsDirty() {
		mark = " ●"
	}
	left := fmt.Sprintf(" %s%s  %s", m.s.resource, mark, statusState[state].Render(state.String()))
	right := m.s.ctrl.Encoding() + " "

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	mid := ""
	if m.notice != "" && gap > 4 {
		mid = "  " + truncate(m.notice, gap-4)
	}
	gap -= lipgloss.Width(mid)
	line := left + mid + strings.Repeat(" ", max(gap, 1)) + right
	return statusBar.Width(max(m.width, 0)).Render(line)
}

func truncate(s string, n int) string {
	if lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > n {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const toastTTL = 4 * time.Second

type toastKind int

const (
	toastSuccess toastKind = iota
	toastError
)

// toastMsg asks the app to show a transient notification.
type toastMsg struct {
	kind toastKind
	text string
}

type toastExpiredMsg struct{ id int }

func notify(kind toastKind, text string) tea.Cmd {
	return func() tea.Msg { return toastMsg{kind: kind, text: text} }
}

func notifySuccess(text string) tea.Cmd { return notify(toastSuccess, text) }

func notifyError(text string) tea.Cmd { return notify(toastError, text) }

// toastModel holds at most one notification. A newer toast replaces the old
// one, and only the newest expiry tick clears it.
type toastModel struct {
	id   int
	kind toastKind
	text string
}

func (t toastModel) show(msg toastMsg) (toastModel, tea.Cmd) {
	t.id++
	t.kind = msg.kind
	t.text = msg.text
	id := t.id
	return t, tea.Tick(toastTTL, func(time.Time) tea.Msg { return toastExpiredMsg{id: id} })
}

func (t toastModel) expire(msg toastExpiredMsg) toastModel {
	if msg.id == t.id {
		t.text = ""
	}
	return t
}

func (t toastModel) View() string {
	if t.text == "" {
		return ""
	}
	if t.kind == toastError {
		return " " + toastErrorStyle.Render("✕ "+t.text)
	}
	return " " + toastSuccessStyle.Render("✓ "+t.text)
}

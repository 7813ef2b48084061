package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ConfirmResult is the operator's answer to a ConfirmModal.
type ConfirmResult int

const (
	ConfirmPending ConfirmResult = iota
	ConfirmAccept
	ConfirmDecline
)

// ConfirmModal asks before a document is sent and previews its JSON.
type ConfirmModal struct {
	title    string
	body     string
	document string
	accept   bool
	result   ConfirmResult
	copied   bool
	theme    Theme
	width    int
}

// NewConfirmModal creates a modal defaulting to "Send".
func NewConfirmModal(title, body, document string, theme Theme) ConfirmModal {
	return ConfirmModal{
		title:    title,
		body:     body,
		document: document,
		accept:   true,
		theme:    theme,
		width:    64,
	}
}

// Update handles input for the modal. The returned bool asks the caller to
// copy the document.
func (m ConfirmModal) Update(msg tea.Msg) (ConfirmModal, bool) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, false
	}
	switch key.String() {
	case "left", "right", "h", "l", "tab", "shift+tab":
		m.accept = !m.accept
	case "enter", " ":
		if m.accept {
			m.result = ConfirmAccept
		} else {
			m.result = ConfirmDecline
		}
	case "y", "Y":
		m.result = ConfirmAccept
	case "n", "N", "esc", "q":
		m.result = ConfirmDecline
	case "c":
		m.copied = true
		return m, true
	}
	return m, false
}

// Result returns the choice, or ConfirmPending while deciding.
func (m ConfirmModal) Result() ConfirmResult {
	return m.result
}

// Document returns the JSON being confirmed.
func (m ConfirmModal) Document() string {
	return m.document
}

// View renders the modal.
func (m ConfirmModal) View() string {
	r := m.theme.Renderer
	modalStyle := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Primary).
		Padding(1, 2).
		Width(m.width)
	titleStyle := r.NewStyle().Bold(true).Foreground(m.theme.Primary).MarginBottom(1)
	previewStyle := r.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(m.theme.Border).
		Padding(0, 1).
		Width(m.width - 8).
		MaxHeight(10)
	hintStyle := r.NewStyle().Foreground(m.theme.Subtext).Italic(true).MarginTop(1)

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	if m.body != "" {
		b.WriteString(m.theme.Base.Render(truncate(m.body, m.width-6)))
		b.WriteString("\n\n")
	}
	b.WriteString(previewStyle.Render(m.document))
	b.WriteString("\n\n")

	send, cancel := m.theme.ButtonOff, m.theme.Button
	if m.accept {
		send, cancel = m.theme.Button, m.theme.ButtonOff
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, send.Render("Send"), cancel.Render("Cancel")))

	hint := "← → to select • Enter to confirm • c to copy JSON • Esc to cancel"
	if m.copied {
		hint = "copied to clipboard"
	}
	b.WriteString("\n")
	b.WriteString(hintStyle.Render(hint))
	return modalStyle.Render(b.String())
}

// CenterModal returns the modal view centered in the given dimensions.
func (m ConfirmModal) CenterModal(termWidth, termHeight int) string {
	return lipgloss.Place(termWidth, termHeight, lipgloss.Center, lipgloss.Center, m.View())
}

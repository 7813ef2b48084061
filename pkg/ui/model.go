// Package ui is the terminal front end: an element list for the source and
// target diagrams, a detail pane, the action buttons and the migration
// mapping summary.
package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/caseview/pkg/debug"
	"github.com/vanderheijden86/caseview/pkg/diagram"
	"github.com/vanderheijden86/caseview/pkg/interaction"
	"github.com/vanderheijden86/caseview/pkg/model"
	"github.com/vanderheijden86/caseview/pkg/session"
)

// Options configure the TUI.
type Options struct {
	// SnapshotPath, when set, receives an SVG or PNG of the source diagram
	// with the current selection after every change.
	SnapshotPath string
	// SplitRatio is the share of the width given to the element list.
	SplitRatio float64
	// Clipboard copies text; defaults to the system clipboard.
	Clipboard func(string) error
}

type loadedMsg struct {
	loaded *session.Loaded
	err    error
}

type submittedMsg struct {
	out *session.Outgoing
	err error
}

type copiedMsg struct{ err error }

// Model is the bubbletea model. The modal is the confirmation step; only the
// POST of a confirmed document runs outside the update loop, and its result
// is committed to the session back in Update.
type Model struct {
	ctx   context.Context
	sess  *session.Session
	theme Theme
	opts  Options

	surface interaction.Surface
	list    list.Model
	detail  viewport.Model
	md      *glamour.TermRenderer
	graphs  map[interaction.Surface]*diagram.FlowGraph

	confirm *ConfirmModal
	pending *session.Outgoing

	busy      bool
	status    string
	statusErr bool
	width     int
	height    int
}

// NewModel builds the TUI around a session that has not been loaded yet.
func NewModel(ctx context.Context, sess *session.Session, opts Options) Model {
	if opts.SplitRatio < 0.2 || opts.SplitRatio > 0.8 {
		opts.SplitRatio = 0.4
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	theme := DefaultTheme(lipgloss.DefaultRenderer())

	l := list.New(nil, ElementDelegate{Theme: theme}, 40, 20)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.KeyMap.Quit.SetEnabled(false)

	m := Model{
		ctx:     ctx,
		sess:    sess,
		theme:   theme,
		opts:    opts,
		surface: interaction.SurfaceSource,
		list:    l,
		detail:  viewport.New(40, 20),
		graphs:  make(map[interaction.Surface]*diagram.FlowGraph, 2),
		width:   100,
		height:  30,
		status:  "loading " + sess.Ref().String(),
	}
	m.resize()
	return m
}

func (m Model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m Model) loadCmd() tea.Cmd {
	sess, ctx := m.sess, m.ctx
	req := sess.StartLoad()
	return func() tea.Msg {
		l, err := sess.Fetch(ctx, req)
		return loadedMsg{loaded: l, err: err}
	}
}

func (m Model) submitCmd(out *session.Outgoing) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return submittedMsg{out: out, err: out.Send(ctx)}
	}
}

func (m Model) copyCmd(text string) tea.Cmd {
	copyFn := m.opts.Clipboard
	return func() tea.Msg {
		return copiedMsg{err: copyFn(text)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.syncCursor()
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		if err := m.sess.Apply(msg.loaded); err != nil {
			if !errors.Is(err, session.ErrStaleLoad) {
				m.setError(err)
			}
			return m, nil
		}
		m.afterLoad()
		m.setStatus(fmt.Sprintf("loaded %s", m.sess.Ref()))
		return m, nil

	case submittedMsg:
		m.busy = false
		what := "change state"
		if msg.out.Migration() {
			what = "migration"
		}
		if msg.err != nil {
			m.setError(fmt.Errorf("%s: %w", what, msg.err))
			m.refreshList()
			return m, nil
		}
		m.sess.Commit(msg.out)
		m.surface = interaction.SurfaceSource
		m.afterLoad()
		m.setStatus(what + " sent, reloading")
		return m, m.loadCmd()

	case copiedMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("clipboard: %w", msg.err))
		} else {
			m.setStatus("document copied to clipboard")
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.busy {
		return m, nil
	}

	if m.confirm != nil {
		modal, wantCopy := m.confirm.Update(msg)
		m.confirm = &modal
		if wantCopy {
			return m, m.copyCmd(modal.Document())
		}
		switch modal.Result() {
		case ConfirmAccept:
			m.confirm = nil
			m.busy = true
			m.setStatus("sending…")
			out := m.pending
			m.pending = nil
			return m, m.submitCmd(out)
		case ConfirmDecline:
			m.confirm = nil
			m.pending = nil
			m.setStatus("cancelled")
		}
		return m, nil
	}

	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		m.syncCursor()
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case " ", "enter":
		m.clickCursor()
	case "tab":
		m.switchSurface()
	case "a":
		m.action(model.ActionActivate)
	case "v":
		m.action(model.ActionMoveToAvailable)
	case "t":
		m.action(model.ActionTerminate)
	case "m":
		m.askMigration()
	case "r":
		m.setStatus("reloading " + m.sess.Ref().String())
		return m, m.loadCmd()
	case "esc":
		m.sess.Layer().Reset()
		m.refreshList()
		m.setStatus("selection cleared")
	case "pgdown", "pgup", "ctrl+d", "ctrl+u":
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	default:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		m.syncCursor()
		return m, cmd
	}
	return m, nil
}

func (m *Model) clickCursor() {
	item, ok := m.list.SelectedItem().(ElementItem)
	if !ok {
		return
	}
	res, err := m.sess.Layer().Click(m.surface, item.Element.ID)
	if err != nil {
		m.setError(err)
		return
	}
	verb := "deselected"
	if res.Selected {
		verb = "selected"
	}
	m.setStatus(fmt.Sprintf("%s %s", verb, item.Element.DisplayName()))
	m.refreshList()
}

func (m *Model) switchSurface() {
	if m.sess.Target() == nil {
		return
	}
	if m.surface == interaction.SurfaceSource {
		m.surface = interaction.SurfaceTarget
	} else {
		m.surface = interaction.SurfaceSource
	}
	m.list.ResetSelected()
	m.refreshList()
}

func (m *Model) action(a model.Action) {
	if m.sess.Layer().MigrationMode() {
		entry, err := m.sess.AddMapping(a)
		if err != nil {
			m.setError(err)
			return
		}
		m.setStatus(fmt.Sprintf("added %s mapping: %s", a, entry.Label))
		m.refreshList()
		return
	}
	out, err := m.sess.PrepareChangeState(a)
	if err != nil {
		m.setError(err)
		return
	}
	m.openConfirm(out)
}

func (m *Model) askMigration() {
	out, err := m.sess.PrepareMigration()
	if err != nil {
		m.setError(err)
		return
	}
	m.openConfirm(out)
}

func (m *Model) openConfirm(out *session.Outgoing) {
	data, err := json.MarshalIndent(out.Prompt.Document, "", "  ")
	if err != nil {
		m.setError(err)
		return
	}
	modal := NewConfirmModal(out.Prompt.Title, out.Prompt.Description, string(data), m.theme)
	m.confirm = &modal
	m.pending = out
}

func (m *Model) afterLoad() {
	for _, s := range []interaction.Surface{interaction.SurfaceSource, interaction.SurfaceTarget} {
		d := m.sess.Source()
		if s == interaction.SurfaceTarget {
			d = m.sess.Target()
		}
		if d == nil {
			delete(m.graphs, s)
			continue
		}
		fg, dangling := diagram.NewFlowGraph(d)
		if len(dangling) > 0 {
			debug.Log("ui: %d flows reference missing elements", len(dangling))
		}
		m.graphs[s] = fg
	}
	if m.surface == interaction.SurfaceTarget && m.sess.Target() == nil {
		m.surface = interaction.SurfaceSource
	}
	m.refreshList()
}

func (m *Model) currentDiagram() *model.Diagram {
	if m.surface == interaction.SurfaceTarget {
		return m.sess.Target()
	}
	return m.sess.Source()
}

func (m *Model) refreshList() {
	d := m.currentDiagram()
	var items []list.Item
	if d != nil {
		sel := m.sess.Layer().Selection()
		items = make([]list.Item, 0, len(d.Elements))
		for _, e := range d.Elements {
			items = append(items, ElementItem{Element: e, Selected: sel.Contains(m.surface, e.ID)})
		}
	}
	m.list.SetItems(items)
	m.syncCursor()
}

// syncCursor makes the element under the cursor the hovered one.
func (m *Model) syncCursor() {
	item, ok := m.list.SelectedItem().(ElementItem)
	if !ok {
		m.sess.Layer().Leave()
		m.detail.SetContent("")
		m.writeSnapshot()
		return
	}
	m.sess.Layer().Hover(m.surface, item.Element.ID)
	m.detail.SetContent(renderDetail(m.md, elementMarkdown(item.Element, m.graphs[m.surface])))
	m.writeSnapshot()
}

func (m *Model) writeSnapshot() {
	if m.opts.SnapshotPath == "" || m.sess.Source() == nil {
		return
	}
	f, err := os.Create(m.opts.SnapshotPath)
	if err != nil {
		m.setError(err)
		return
	}
	defer f.Close()
	if _, err := m.sess.Render(f, interaction.SurfaceSource, diagram.FormatFromPath(m.opts.SnapshotPath)); err != nil {
		m.setError(err)
	}
}

func (m *Model) resize() {
	bodyHeight := m.height - 6
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	left := int(float64(m.width) * m.opts.SplitRatio)
	right := m.width - left - 4
	if right < 10 {
		right = 10
	}
	m.list.SetSize(left-2, bodyHeight)
	m.detail.Width = right
	m.detail.Height = bodyHeight
	m.md = newMarkdownRenderer(right - 2)
}

func (m *Model) setStatus(s string) {
	m.status, m.statusErr = s, false
}

func (m *Model) setError(err error) {
	m.status, m.statusErr = err.Error(), true
}

// Status returns the status line text and whether it reports an error.
func (m Model) Status() (string, bool) {
	return m.status, m.statusErr
}

func (m Model) View() string {
	if m.confirm != nil {
		return m.confirm.CenterModal(m.width, m.height)
	}

	mode := "change state"
	if m.sess.Layer().MigrationMode() {
		mode = "migrate → " + m.sess.MigrationTarget()
	}
	header := m.theme.Header.Render(truncate(fmt.Sprintf("cv · %s · %s · %s", m.sess.Ref(), m.surface, mode), m.width-2))

	listPanel := m.theme.PanelFocus.Render(m.list.View())
	detailPanel := m.theme.Panel.Render(m.detail.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, listPanel, detailPanel)

	lines := []string{header, body, m.buttonBar()}
	if m.sess.Layer().MigrationMode() {
		summary := m.sess.Summary()
		if summary == "" {
			summary = "no mappings yet"
		}
		lines = append(lines, m.theme.MutedText.Render(truncate(summary, m.width)))
	}
	status := m.theme.MutedText.Render(truncate(m.status, m.width))
	if m.statusErr {
		status = m.theme.ErrorText.Render(truncate(m.status, m.width))
	}
	lines = append(lines, status)
	return strings.Join(lines, "\n")
}

func (m Model) buttonBar() string {
	keys := map[model.Action]string{
		model.ActionActivate:        "a",
		model.ActionMoveToAvailable: "v",
		model.ActionTerminate:       "t",
	}
	var parts []string
	if m.sess.Layer().MigrationMode() {
		for _, a := range model.Actions {
			parts = append(parts, m.theme.Button.Render(fmt.Sprintf("[%s] Add %s", keys[a], a.Title())))
		}
		parts = append(parts, m.theme.Button.Render("[m] Migrate"))
	} else {
		b := m.sess.Layer().Buttons()
		for _, a := range model.Actions {
			style := m.theme.ButtonOff
			if b.Shown(a) {
				style = m.theme.Button
			}
			parts = append(parts, style.Render(fmt.Sprintf("[%s] %s", keys[a], a.Title())))
		}
	}
	parts = append(parts, m.theme.MutedText.Render("space select · tab surface · r reload · q quit"))
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/caseview/pkg/model"
)

// ElementItem wraps a diagram element to implement list.Item.
type ElementItem struct {
	Element  model.Element
	Selected bool
}

func (i ElementItem) Title() string {
	return i.Element.DisplayName()
}

func (i ElementItem) Description() string {
	return fmt.Sprintf("%s %s", i.Element.Type, model.LifecycleOf(i.Element))
}

func (i ElementItem) FilterValue() string {
	return strings.Join([]string{i.Element.DisplayName(), i.Element.ID, i.Element.Type, i.Element.PlanItemDefinitionID}, " ")
}

// ElementDelegate renders one element per row:
// [sel] [lifecycle] name ... type
type ElementDelegate struct {
	Theme Theme
}

func (d ElementDelegate) Height() int  { return 1 }
func (d ElementDelegate) Spacing() int { return 0 }

func (d ElementDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (d ElementDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(ElementItem)
	if !ok {
		return
	}
	t := d.Theme
	width := m.Width()
	if width <= 0 {
		width = 80
	}
	width--

	cursor := "  "
	if index == m.Index() {
		cursor = t.Renderer.NewStyle().Foreground(t.Primary).Bold(true).Render("▸ ")
	}
	mark := t.MutedText.Render("○")
	if i.Selected {
		mark = t.GlowText.Render("●")
	}
	badge := t.LifecycleBadge(model.LifecycleOf(i.Element))

	typ := i.Element.Type
	typWidth := 0
	if width > 50 {
		typWidth = 18
	}
	nameWidth := width - 6 - typWidth
	name := padRight(truncate(i.Element.DisplayName(), nameWidth), nameWidth)

	line := cursor + mark + " " + badge + " " + name
	if typWidth > 0 {
		line += t.MutedText.Render(truncate(typ, typWidth))
	}
	fmt.Fprint(w, line)
}

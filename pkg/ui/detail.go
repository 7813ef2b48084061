package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/caseview/pkg/diagram"
	"github.com/vanderheijden86/caseview/pkg/model"
)

// newMarkdownRenderer returns a glamour renderer sized for the detail pane.
// Plain terminals (and tests) get the notty style so output stays stable.
func newMarkdownRenderer(width int) *glamour.TermRenderer {
	style := glamour.WithAutoStyle()
	if TermProfile <= colorprofile.Ascii {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return nil
	}
	return r
}

// elementMarkdown describes an element and its flow neighbours.
func elementMarkdown(e model.Element, fg *diagram.FlowGraph) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", e.DisplayName())
	fmt.Fprintf(&b, "`%s` · %s · **%s**\n\n", e.ID, e.Type, model.LifecycleOf(e))

	b.WriteString("| | |\n|---|---|\n")
	if e.PlanItemDefinitionID != "" {
		fmt.Fprintf(&b, "| Plan item definition | `%s` |\n", e.PlanItemDefinitionID)
	}
	fmt.Fprintf(&b, "| Bounds | %g,%g %g×%g |\n\n", e.X, e.Y, e.Width, e.Height)

	if len(e.Properties) > 0 {
		b.WriteString("### Properties\n\n")
		for _, p := range e.Properties {
			fmt.Fprintf(&b, "- **%s**", p.Name)
			if p.Type != "" {
				fmt.Fprintf(&b, " (%s)", p.Type)
			}
			fmt.Fprintf(&b, ": %v\n", p.Value)
		}
		b.WriteString("\n")
	}

	if fg != nil {
		in, out := fg.Predecessors(e.ID), fg.Successors(e.ID)
		if len(in)+len(out) > 0 {
			b.WriteString("### Flows\n\n")
			if len(in) > 0 {
				fmt.Fprintf(&b, "- from: %s\n", strings.Join(in, ", "))
			}
			if len(out) > 0 {
				fmt.Fprintf(&b, "- to: %s\n", strings.Join(out, ", "))
			}
		}
	}
	return b.String()
}

// renderDetail renders markdown, falling back to the raw text.
func renderDetail(r *glamour.TermRenderer, md string) string {
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n ")
}

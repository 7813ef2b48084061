package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/caseview/pkg/model"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

// Theme bundles the colors and pre-computed styles of the TUI.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary lipgloss.AdaptiveColor
	Subtext lipgloss.AdaptiveColor
	Border  lipgloss.AdaptiveColor
	Muted   lipgloss.AdaptiveColor

	// Lifecycle colors follow the diagram palette.
	Current   lipgloss.AdaptiveColor
	Available lipgloss.AdaptiveColor
	Completed lipgloss.AdaptiveColor
	Glow      lipgloss.AdaptiveColor
	Danger    lipgloss.AdaptiveColor

	Base       lipgloss.Style
	Header     lipgloss.Style
	MutedText  lipgloss.Style
	GlowText   lipgloss.Style
	ErrorText  lipgloss.Style
	Panel      lipgloss.Style
	PanelFocus lipgloss.Style
	Button     lipgloss.Style
	ButtonOff  lipgloss.Style
}

// DefaultTheme returns the standard theme (adaptive).
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary: lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Subtext: lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},
		Border:  lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Muted:   lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},

		Current:   lipgloss.AdaptiveColor{Light: "#017501", Dark: "#50FA7B"},
		Available: lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#E3AE10"},
		Completed: lipgloss.AdaptiveColor{Light: "#2632AA", Dark: "#6699FF"},
		Glow:      lipgloss.AdaptiveColor{Light: "#2684FF", Dark: "#4C9AFF"},
		Danger:    lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})
	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)
	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.GlowText = r.NewStyle().Foreground(t.Glow).Bold(true)
	t.ErrorText = r.NewStyle().Foreground(t.Danger).Bold(true)
	t.Panel = r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Border)
	t.PanelFocus = r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Primary)
	t.Button = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Padding(0, 1).
		MarginRight(1)
	t.ButtonOff = r.NewStyle().Foreground(t.Muted).Padding(0, 1).MarginRight(1)
	return t
}

// LifecycleColor returns the color of a lifecycle state.
func (t Theme) LifecycleColor(l model.Lifecycle) lipgloss.AdaptiveColor {
	switch l {
	case model.LifecycleCurrent:
		return t.Current
	case model.LifecycleAvailable:
		return t.Available
	case model.LifecycleCompleted:
		return t.Completed
	default:
		return t.Subtext
	}
}

// LifecycleBadge renders a one-letter lifecycle badge.
func (t Theme) LifecycleBadge(l model.Lifecycle) string {
	letter := "·"
	switch l {
	case model.LifecycleCurrent:
		letter = "C"
	case model.LifecycleAvailable:
		letter = "A"
	case model.LifecycleCompleted:
		letter = "D"
	}
	return t.Renderer.NewStyle().Foreground(t.LifecycleColor(l)).Bold(true).Render(letter)
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}

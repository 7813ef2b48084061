package interaction

import (
	"errors"
	"fmt"

	"github.com/vanderheijden86/caseview/pkg/diagram"
	"github.com/vanderheijden86/caseview/pkg/model"
)

// Surface identifies one of the two diagrams an operator can click on.
type Surface int

const (
	SurfaceSource Surface = iota
	SurfaceTarget
)

func (s Surface) String() string {
	if s == SurfaceTarget {
		return "target"
	}
	return "source"
}

// ErrUnknownElement is returned when a click names an element that is not
// drawn on the surface.
var ErrUnknownElement = errors.New("element is not on the diagram")

// ClickResult describes the effect of a click.
type ClickResult struct {
	ID       string
	Selected bool // true when the click added the element
	Buttons  Buttons
}

// Layer is the clickable overlay on top of the rendered surfaces.
type Layer struct {
	surfaces  map[Surface]*diagram.Layout
	selection Selection
	buttons   Buttons
	migration bool

	hoverSurface Surface
	hoverID      string
}

// NewLayer returns an empty layer with no surfaces attached.
func NewLayer() *Layer {
	return &Layer{surfaces: make(map[Surface]*diagram.Layout, 2)}
}

// Attach registers the hit regions of a rendered layout.
func (l *Layer) Attach(s Surface, layout *diagram.Layout) {
	l.surfaces[s] = layout
	if l.hoverSurface == s {
		l.hoverID = ""
	}
}

// Detach removes a surface, e.g. when its canvas is cleared.
func (l *Layer) Detach(s Surface) {
	delete(l.surfaces, s)
	if l.hoverSurface == s {
		l.hoverID = ""
	}
}

// Layout returns the layout attached to a surface.
func (l *Layer) Layout(s Surface) (*diagram.Layout, bool) {
	layout, ok := l.surfaces[s]
	return layout, ok
}

// SetMigrationMode switches clicks between plain toggling and migration
// toggling, which never touches the action buttons.
func (l *Layer) SetMigrationMode(on bool) {
	l.migration = on
}

// MigrationMode reports whether a migration target is active.
func (l *Layer) MigrationMode() bool {
	return l.migration
}

// HitTest returns the topmost element on the surface under the point.
func (l *Layer) HitTest(s Surface, x, y float64) (model.Element, bool) {
	layout, ok := l.surfaces[s]
	if !ok {
		return model.Element{}, false
	}
	shape, ok := layout.ShapeAt(x, y)
	if !ok {
		return model.Element{}, false
	}
	return shape.Element, true
}

// Hover marks id as hovered; the renderer draws it with the hover stroke.
func (l *Layer) Hover(s Surface, id string) {
	l.hoverSurface = s
	l.hoverID = id
}

// Leave clears the hover state.
func (l *Layer) Leave() {
	l.hoverID = ""
}

// Hovered returns the hovered element id on a surface.
func (l *Layer) Hovered(s Surface) string {
	if l.hoverSurface != s {
		return ""
	}
	return l.hoverID
}

// Click toggles the element on the surface.
func (l *Layer) Click(s Surface, id string) (ClickResult, error) {
	layout, ok := l.surfaces[s]
	if !ok {
		return ClickResult{}, fmt.Errorf("%s surface: %w", s, ErrUnknownElement)
	}
	shape, ok := layout.Shape(id)
	if !ok {
		return ClickResult{}, fmt.Errorf("%s: %w", id, ErrUnknownElement)
	}
	if l.migration || s == SurfaceTarget {
		return l.toggleForMigration(s, shape.Element), nil
	}
	return l.toggle(s, shape.Element), nil
}

// ClickAt hit-tests the point and clicks the element under it.
func (l *Layer) ClickAt(s Surface, x, y float64) (ClickResult, bool, error) {
	e, ok := l.HitTest(s, x, y)
	if !ok {
		return ClickResult{}, false, nil
	}
	res, err := l.Click(s, e.ID)
	return res, true, err
}

func (l *Layer) toggle(s Surface, e model.Element) ClickResult {
	if l.selection.Remove(s, e.ID) {
		if l.selection.Len() == 0 {
			l.buttons = Buttons{}
		}
		return ClickResult{ID: e.ID, Buttons: l.buttons}
	}
	l.selection.Add(s, e)
	l.buttons = ButtonsFor(e)
	return ClickResult{ID: e.ID, Selected: true, Buttons: l.buttons}
}

func (l *Layer) toggleForMigration(s Surface, e model.Element) ClickResult {
	if l.selection.Remove(s, e.ID) {
		return ClickResult{ID: e.ID, Buttons: l.buttons}
	}
	l.selection.Add(s, e)
	return ClickResult{ID: e.ID, Selected: true, Buttons: l.buttons}
}

// Selection returns the live selection.
func (l *Layer) Selection() *Selection {
	return &l.selection
}

// Buttons returns the current action button visibility.
func (l *Layer) Buttons() Buttons {
	return l.buttons
}

// Reset clears the selection, glows and buttons.
func (l *Layer) Reset() {
	l.selection.Clear()
	l.buttons = Buttons{}
}

// Highlight returns the render state for a surface.
func (l *Layer) Highlight(s Surface) diagram.Highlight {
	hl := diagram.Highlight{Selected: make(map[string]bool), Hover: l.Hovered(s)}
	layout, ok := l.surfaces[s]
	if !ok {
		return hl
	}
	for id := range l.selection.Glowing(s) {
		if _, onSurface := layout.Shape(id); onSurface {
			hl.Selected[id] = true
		}
	}
	return hl
}

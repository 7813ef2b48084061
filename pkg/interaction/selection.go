// Package interaction tracks hover and click state on a rendered diagram:
// which elements are selected for a pending action and which lifecycle
// actions the selection allows.
package interaction

import (
	"errors"
	"fmt"

	"github.com/vanderheijden86/caseview/pkg/model"
)

// ErrNoPlanItemDefinition is returned when a selected element cannot be put
// into a document because it has no plan item definition id.
var ErrNoPlanItemDefinition = errors.New("element has no plan item definition id")

// Entry is one selected element together with its glow state. Source and
// target diagrams often share ids, so an entry is keyed by surface and id.
type Entry struct {
	Surface Surface
	ID      string
	Element model.Element
	Glow    bool
}

// Selection is the ordered list of selected elements. Each entry keeps the
// id, the element and its glow together, so they can never drift apart.
type Selection struct {
	entries []Entry
}

// Len returns the number of selected elements.
func (s *Selection) Len() int {
	return len(s.entries)
}

// Contains reports whether id is selected on the surface.
func (s *Selection) Contains(surface Surface, id string) bool {
	return s.index(surface, id) >= 0
}

func (s *Selection) index(surface Surface, id string) int {
	for i, e := range s.entries {
		if e.Surface == surface && e.ID == id {
			return i
		}
	}
	return -1
}

// Add appends an element with glow on. Adding a selected element is a no-op.
func (s *Selection) Add(surface Surface, e model.Element) bool {
	if s.Contains(surface, e.ID) {
		return false
	}
	s.entries = append(s.entries, Entry{Surface: surface, ID: e.ID, Element: e, Glow: true})
	return true
}

// Remove drops the element and its glow.
func (s *Selection) Remove(surface Surface, id string) bool {
	i := s.index(surface, id)
	if i < 0 {
		return false
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return true
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.entries = nil
}

// Entries returns a copy of the entries in selection order.
func (s *Selection) Entries() []Entry {
	return append([]Entry(nil), s.entries...)
}

// IDs returns the selected element ids in order.
func (s *Selection) IDs() []string {
	ids := make([]string, len(s.entries))
	for i, e := range s.entries {
		ids[i] = e.ID
	}
	return ids
}

// PlanItemDefinitionIDs returns the plan item definition ids in order. It
// fails on the first element without one, so a document never silently
// leaves out part of the selection.
func (s *Selection) PlanItemDefinitionIDs() ([]string, error) {
	ids := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Element.PlanItemDefinitionID == "" {
			return nil, fmt.Errorf("%s: %w", e.Element.DisplayName(), ErrNoPlanItemDefinition)
		}
		ids = append(ids, e.Element.PlanItemDefinitionID)
	}
	return ids, nil
}

// Names returns display names in order.
func (s *Selection) Names() []string {
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.Element.DisplayName()
	}
	return names
}

// Glowing returns the ids that currently glow on the surface.
func (s *Selection) Glowing(surface Surface) map[string]bool {
	out := make(map[string]bool, len(s.entries))
	for _, e := range s.entries {
		if e.Glow && e.Surface == surface {
			out[e.ID] = true
		}
	}
	return out
}

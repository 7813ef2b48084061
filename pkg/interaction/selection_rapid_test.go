package interaction

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/caseview/pkg/model"
)

// Every click keeps ids, elements and glows aligned, and clicking the same
// element twice returns the selection to where it was.
func TestSelection_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "elements")
		var elements []model.Element
		for i := 0; i < n; i++ {
			e := task(fmt.Sprintf("e%d", i), float64(i*150))
			e.Current = rapid.Bool().Draw(t, fmt.Sprintf("current%d", i))
			e.Completed = rapid.Bool().Draw(t, fmt.Sprintf("completed%d", i))
			elements = append(elements, e)
		}
		l := NewLayer()
		l.Attach(SurfaceSource, mustLayout(t, elements...))
		l.SetMigrationMode(rapid.Bool().Draw(t, "migration"))

		clicks := rapid.SliceOfN(rapid.IntRange(0, n-1), 0, 30).Draw(t, "clicks")
		for _, c := range clicks {
			id := elements[c].ID
			before := l.Selection().IDs()

			if _, err := l.Click(SurfaceSource, id); err != nil {
				t.Fatalf("click %s: %v", id, err)
			}
			assertAligned(t, l.Selection())

			if rapid.Bool().Draw(t, "double") {
				if _, err := l.Click(SurfaceSource, id); err != nil {
					t.Fatalf("click %s: %v", id, err)
				}
				after := l.Selection().IDs()
				if fmt.Sprint(after) != fmt.Sprint(before) {
					t.Fatalf("double click on %s: %v -> %v", id, before, after)
				}
			}
			if l.Selection().Len() == 0 && l.Buttons().Any() {
				t.Fatalf("empty selection with buttons %v", l.Buttons())
			}
		}
	})
}

func assertAligned(t *rapid.T, s *Selection) {
	ids := s.IDs()
	entries := s.Entries()
	glows := s.Glowing(SurfaceSource)
	if len(ids) != len(entries) || len(ids) != len(glows) {
		t.Fatalf("misaligned: %d ids, %d entries, %d glows", len(ids), len(entries), len(glows))
	}
	for i, e := range entries {
		if e.ID != ids[i] || e.Element.ID != e.ID || !glows[e.ID] {
			t.Fatalf("entry %d out of step: %+v", i, e)
		}
	}
}

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"pgregory.net/rapid"

	"github.com/vanderheijden86/caseview/pkg/client"
	"github.com/vanderheijden86/caseview/pkg/interaction"
	"github.com/vanderheijden86/caseview/pkg/model"
)

func TestAddMapping_LabelsAndClears(t *testing.T) {
	s := newTestSession(t, Config{Poster: &fakePoster{}, MigrationTargetID: "def-2"})
	click(t, s, interaction.SurfaceSource, "planItem1", "planItem2")
	if s.Layer().Buttons().Any() {
		t.Error("migration clicks must not show buttons")
	}

	entry, err := s.AddMapping(model.ActionTerminate)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Label != "Review, planItem2" {
		t.Errorf("label = %q", entry.Label)
	}
	if s.Layer().Selection().Len() != 0 {
		t.Error("selection not cleared")
	}
	if hl := s.Layer().Highlight(interaction.SurfaceSource); len(hl.Selected) != 0 {
		t.Errorf("glow not cleared: %v", hl.Selected)
	}

	click(t, s, interaction.SurfaceTarget, "planItem2")
	if _, err := s.AddMapping(model.ActionActivate); err != nil {
		t.Fatal(err)
	}
	if got := s.Summary(); got != "Mapping 1 Review, planItem2  -  Mapping 2 planItem2" {
		t.Errorf("summary = %q", got)
	}
}

func TestAddMapping_Guards(t *testing.T) {
	plain := newTestSession(t, Config{})
	click(t, plain, interaction.SurfaceSource, "planItem1")
	if _, err := plain.AddMapping(model.ActionActivate); !errors.Is(err, ErrNoMigrationTarget) {
		t.Errorf("err = %v", err)
	}
	mig := newTestSession(t, Config{MigrationTargetID: "def-2"})
	if _, err := mig.AddMapping(model.ActionActivate); !errors.Is(err, ErrEmptySelection) {
		t.Errorf("err = %v", err)
	}
}

func TestMappingEntry_JSON(t *testing.T) {
	data, err := json.Marshal(MappingEntry{Kind: model.ActionMoveToAvailable, PlanItemDefinitionIDs: []string{"a"}})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"availableItemIds":["a"]}` {
		t.Errorf("json = %s", data)
	}
}

func TestMigrationDocument_EmptyBuckets(t *testing.T) {
	s := newTestSession(t, Config{MigrationTargetID: "def-2"})
	doc, err := s.MigrationDocument()
	if err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(doc)
	want := `{"toCaseDefinitionId":"def-2","activatePlanItemDefinitions":[],"moveToAvailablePlanItemDefinitions":[],"terminatePlanItemDefinitions":[]}`
	if string(data) != want {
		t.Errorf("json = %s", data)
	}
}

func TestExecuteMigration_InstanceAndBatch(t *testing.T) {
	for _, tc := range []struct {
		name     string
		ref      client.Ref
		wantKind string
		wantID   string
	}{
		{"instance", client.Ref{InstanceID: "case-1"}, "migrate", "case-1"},
		{"definition", client.Ref{DefinitionID: "def-1"}, "batch-migrate", "def-1"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			poster := &fakePoster{}
			s := newTestSession(t, Config{Poster: poster, Ref: tc.ref, MigrationTargetID: "def-2"})
			click(t, s, interaction.SurfaceSource, "planItem1")
			if _, err := s.AddMapping(model.ActionTerminate); err != nil {
				t.Fatal(err)
			}
			if err := s.ExecuteMigration(context.Background()); err != nil {
				t.Fatal(err)
			}
			if len(poster.posts) != 1 || poster.posts[0].kind != tc.wantKind || poster.posts[0].id != tc.wantID {
				t.Fatalf("posts = %+v", poster.posts)
			}
			doc := poster.posts[0].doc.(model.MigrationDocument)
			if doc.ToCaseDefinitionID != "def-2" || len(doc.TerminatePlanItemDefinitions) != 1 {
				t.Errorf("doc = %+v", doc)
			}
			if s.MigrationTarget() != "" || len(s.Mapping()) != 0 || s.Layer().MigrationMode() {
				t.Error("migration state not reset")
			}
			if s.Source() != nil || s.Target() != nil {
				t.Error("canvases not cleared")
			}
		})
	}
}

func TestExecuteMigration_FailureKeepsMapping(t *testing.T) {
	poster := &fakePoster{err: errors.New("conflict")}
	s := newTestSession(t, Config{Poster: poster, MigrationTargetID: "def-2"})
	click(t, s, interaction.SurfaceSource, "planItem1")
	if _, err := s.AddMapping(model.ActionActivate); err != nil {
		t.Fatal(err)
	}
	if err := s.ExecuteMigration(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(s.Mapping()) != 1 || s.MigrationTarget() != "def-2" {
		t.Error("mapping lost after failed POST")
	}
}

// Flattening keeps the order of entries and of ids within each bucket.
func TestMigrationDocument_OrderProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(rt, "elements")
		d := &model.Diagram{DiagramWidth: 1000, DiagramHeight: 100}
		for i := 0; i < n; i++ {
			d.Elements = append(d.Elements, model.Element{
				ID: fmt.Sprintf("e%d", i), Type: "HumanTask", PlanItemDefinitionID: fmt.Sprintf("pid%d", i),
				X: float64(i * 100), Width: 80, Height: 60,
			})
		}
		s, err := New(Config{
			Source:            client.ModelSource(staticSource{d}),
			Ref:               client.Ref{InstanceID: "case-1"},
			MigrationTargetID: "def-2",
		})
		if err != nil {
			rt.Fatal(err)
		}
		if err := s.Init(context.Background()); err != nil {
			rt.Fatal(err)
		}

		want := map[model.Action][]string{}
		steps := rapid.IntRange(0, 6).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			picks := rapid.SliceOfNDistinct(rapid.IntRange(0, n-1), 1, n, rapid.ID[int]).Draw(rt, "picks")
			kind := rapid.SampledFrom(model.Actions).Draw(rt, "kind")
			for _, p := range picks {
				if _, err := s.Layer().Click(interaction.SurfaceSource, fmt.Sprintf("e%d", p)); err != nil {
					rt.Fatal(err)
				}
				want[kind] = append(want[kind], fmt.Sprintf("pid%d", p))
			}
			if _, err := s.AddMapping(kind); err != nil {
				rt.Fatal(err)
			}
		}

		doc, err := s.MigrationDocument()
		if err != nil {
			rt.Fatal(err)
		}
		check := func(kind model.Action, got []model.PlanItemDefinitionRef) {
			ids := make([]string, len(got))
			for i, r := range got {
				ids[i] = r.PlanItemDefinitionID
			}
			if strings.Join(ids, ",") != strings.Join(want[kind], ",") {
				rt.Fatalf("%s bucket = %v, want %v", kind, ids, want[kind])
			}
		}
		check(model.ActionActivate, doc.ActivatePlanItemDefinitions)
		check(model.ActionMoveToAvailable, doc.MoveToAvailablePlanItemDefinitions)
		check(model.ActionTerminate, doc.TerminatePlanItemDefinitions)
		if len(s.Mapping()) != steps {
			rt.Fatalf("mapping len = %d, want %d", len(s.Mapping()), steps)
		}
	})
}

type staticSource struct{ d *model.Diagram }

func (s staticSource) ModelJSON(context.Context, client.Ref) (*model.Diagram, error) {
	return s.d, nil
}

func TestAddMapping_MissingDefinitionIDRejected(t *testing.T) {
	d := twoElementDiagram()
	d.Elements[1].PlanItemDefinitionID = ""
	s := newTestSession(t, Config{Source: staticSource{d}, MigrationTargetID: "def-2"})
	click(t, s, interaction.SurfaceSource, "planItem1", "planItem2")

	_, err := s.AddMapping(model.ActionActivate)
	if !errors.Is(err, interaction.ErrNoPlanItemDefinition) || !strings.Contains(err.Error(), "planItem2") {
		t.Fatalf("err = %v", err)
	}
	if len(s.Mapping()) != 0 || s.Layer().Selection().Len() != 2 {
		t.Errorf("mapping = %+v, selection len = %d", s.Mapping(), s.Layer().Selection().Len())
	}
}

func TestMigration_SameIDOnBothSurfaces(t *testing.T) {
	s := newTestSession(t, Config{Poster: &fakePoster{}, MigrationTargetID: "def-2"})
	click(t, s, interaction.SurfaceSource, "planItem1")
	click(t, s, interaction.SurfaceTarget, "planItem1")
	entry, err := s.AddMapping(model.ActionActivate)
	if err != nil {
		t.Fatal(err)
	}
	if len(entry.PlanItemDefinitionIDs) != 2 || entry.Label != "Review, Review" {
		t.Errorf("entry = %+v", entry)
	}
}

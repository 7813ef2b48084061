package model

import (
	"strings"
	"testing"

	json "github.com/goccy/go-json"
)

const sampleModel = `{
  "elements": [
    {"id": "planItem1", "type": "HumanTask", "name": "Review", "x": 10, "y": 20, "width": 100, "height": 80, "current": true, "planItemDefinitionId": "pid1",
     "properties": [{"name": "Assignee", "type": "string", "value": "kermit"}]},
    {"id": "planItem2", "type": "Milestone", "x": 150, "y": 20, "width": 100, "height": 40, "available": true, "planItemDefinitionId": "pid2"}
  ],
  "flows": [
    {"id": "f1", "type": "association", "sourceId": "planItem1", "targetId": "planItem2", "waypoints": [{"x": 110, "y": 60}, {"x": 150, "y": 40}]}
  ],
  "diagramWidth": 400,
  "diagramHeight": 200
}`

func TestDecode_Sample(t *testing.T) {
	d, err := Decode([]byte(sampleModel), "")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if d.ModelType != ModelCMMN {
		t.Errorf("ModelType = %q, want cmmn", d.ModelType)
	}
	if len(d.Elements) != 2 || len(d.Flows) != 1 {
		t.Fatalf("got %d elements, %d flows", len(d.Elements), len(d.Flows))
	}
	if d.Flows[0].SourceRef != "planItem1" || d.Flows[0].TargetRef != "planItem2" {
		t.Errorf("flow refs = %q -> %q", d.Flows[0].SourceRef, d.Flows[0].TargetRef)
	}
	if len(d.Flows[0].Waypoints) != 2 {
		t.Errorf("waypoints = %d, want 2", len(d.Flows[0].Waypoints))
	}
	e, ok := d.Element("planItem1")
	if !ok || e.PlanItemDefinitionID != "pid1" || len(e.Properties) != 1 {
		t.Errorf("planItem1 = %+v", e)
	}
}

func TestFlow_PrefersSourceRef(t *testing.T) {
	var f Flow
	if err := json.Unmarshal([]byte(`{"sourceRef":"a","sourceId":"x","targetRef":"b"}`), &f); err != nil {
		t.Fatal(err)
	}
	if f.SourceRef != "a" || f.TargetRef != "b" {
		t.Errorf("got %q -> %q", f.SourceRef, f.TargetRef)
	}
}

func TestDecode_Invalid(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{"not json", `{`, "decoding model json"},
		{"missing id", `{"elements":[{"type":"Task"}]}`, "has no id"},
		{"duplicate id", `{"elements":[{"id":"a"},{"id":"a"}]}`, "duplicate element id"},
		{"negative size", `{"elements":[],"diagramWidth":-1}`, "negative diagram size"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.doc), ModelCMMN)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestLifecycleOf_Precedence(t *testing.T) {
	cases := []struct {
		e    Element
		want Lifecycle
	}{
		{Element{Current: true, Available: true, Completed: true}, LifecycleCurrent},
		{Element{Available: true, Completed: true}, LifecycleAvailable},
		{Element{Completed: true}, LifecycleCompleted},
		{Element{}, LifecycleOther},
	}
	for _, tc := range cases {
		if got := LifecycleOf(tc.e); got != tc.want {
			t.Errorf("LifecycleOf(%+v) = %v, want %v", tc.e, got, tc.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := (Element{ID: "a", Name: " "}).DisplayName(); got != "a" {
		t.Errorf("blank name fallback = %q", got)
	}
	if got := (Element{ID: "a", Name: "Review"}).DisplayName(); got != "Review" {
		t.Errorf("DisplayName = %q", got)
	}
}

func TestParseModelType(t *testing.T) {
	if mt, err := ParseModelType("BPMN"); err != nil || mt != ModelBPMN {
		t.Errorf("bpmn: %v %v", mt, err)
	}
	if mt, err := ParseModelType(""); err != nil || mt != ModelCMMN {
		t.Errorf("default: %v %v", mt, err)
	}
	if _, err := ParseModelType("dmn"); err == nil {
		t.Error("expected error for dmn")
	}
}

func TestChangeStateDocument_OneField(t *testing.T) {
	data, err := json.Marshal(NewChangeStateDocument(ActionTerminate, []string{"pid1"}))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"terminatePlanItemDefinitionIds":["pid1"]}` {
		t.Errorf("body = %s", data)
	}
}

func TestParseAction(t *testing.T) {
	for _, a := range Actions {
		got, err := ParseAction(a.String())
		if err != nil || got != a {
			t.Errorf("ParseAction(%q) = %v, %v", a.String(), got, err)
		}
	}
	if _, err := ParseAction("suspend"); err == nil {
		t.Error("expected error")
	}
}

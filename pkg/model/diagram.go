// Package model holds the diagram documents served by the admin model-json
// endpoints and the lifecycle helpers derived from them.
package model

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// ModelType selects which engine a diagram belongs to.
type ModelType string

const (
	ModelCMMN ModelType = "cmmn"
	ModelBPMN ModelType = "bpmn"
)

// ParseModelType accepts "cmmn" or "bpmn" (case-insensitive). Empty means cmmn.
func ParseModelType(s string) (ModelType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cmmn", "case":
		return ModelCMMN, nil
	case "bpmn", "process":
		return ModelBPMN, nil
	default:
		return "", fmt.Errorf("unknown model type %q (want cmmn or bpmn)", s)
	}
}

// Property is a name/type/value triple attached to an element.
type Property struct {
	Name  string `json:"name"`
	Type  string `json:"type,omitempty"`
	Value any    `json:"value,omitempty"`
}

// Element is one visual node of a diagram.
type Element struct {
	ID                   string     `json:"id"`
	Type                 string     `json:"type"`
	Name                 string     `json:"name,omitempty"`
	X                    float64    `json:"x"`
	Y                    float64    `json:"y"`
	Width                float64    `json:"width"`
	Height               float64    `json:"height"`
	Current              bool       `json:"current,omitempty"`
	Available            bool       `json:"available,omitempty"`
	Completed            bool       `json:"completed,omitempty"`
	PlanItemDefinitionID string     `json:"planItemDefinitionId,omitempty"`
	Properties           []Property `json:"properties,omitempty"`
}

// DisplayName returns the element name, falling back to its id.
func (e Element) DisplayName() string {
	if strings.TrimSpace(e.Name) != "" {
		return e.Name
	}
	return e.ID
}

// Point is a waypoint on a flow.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Flow is a directed connector between two elements. Only used for drawing.
type Flow struct {
	ID        string  `json:"id,omitempty"`
	Type      string  `json:"type,omitempty"`
	SourceRef string  `json:"sourceRef"`
	TargetRef string  `json:"targetRef"`
	Waypoints []Point `json:"waypoints,omitempty"`
}

// UnmarshalJSON accepts both sourceRef/targetRef and sourceId/targetId.
func (f *Flow) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string  `json:"id"`
		Type      string  `json:"type"`
		SourceRef string  `json:"sourceRef"`
		TargetRef string  `json:"targetRef"`
		SourceID  string  `json:"sourceId"`
		TargetID  string  `json:"targetId"`
		Waypoints []Point `json:"waypoints"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.ID = raw.ID
	f.Type = raw.Type
	f.SourceRef = raw.SourceRef
	if f.SourceRef == "" {
		f.SourceRef = raw.SourceID
	}
	f.TargetRef = raw.TargetRef
	if f.TargetRef == "" {
		f.TargetRef = raw.TargetID
	}
	f.Waypoints = raw.Waypoints
	return nil
}

// Lane is a horizontal band inside a pool.
type Lane struct {
	ID     string  `json:"id"`
	Name   string  `json:"name,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Pool is a BPMN participant drawn behind its elements.
type Pool struct {
	ID     string  `json:"id"`
	Name   string  `json:"name,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Lanes  []Lane  `json:"lanes,omitempty"`
}

// Diagram is the model-json document for one instance or definition.
type Diagram struct {
	Elements      []Element `json:"elements"`
	Flows         []Flow    `json:"flows"`
	Pools         []Pool    `json:"pools,omitempty"`
	DiagramWidth  float64   `json:"diagramWidth"`
	DiagramHeight float64   `json:"diagramHeight"`
	DiagramBeginX float64   `json:"diagramBeginX,omitempty"`

	ModelType ModelType `json:"-"`
}

// Decode parses a model-json document.
func Decode(data []byte, mt ModelType) (*Diagram, error) {
	var d Diagram
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding model json: %w", err)
	}
	if mt == "" {
		mt = ModelCMMN
	}
	d.ModelType = mt
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks that element ids are present and unique.
func (d *Diagram) Validate() error {
	seen := make(map[string]bool, len(d.Elements))
	for i, e := range d.Elements {
		if e.ID == "" {
			return fmt.Errorf("element %d has no id", i)
		}
		if seen[e.ID] {
			return fmt.Errorf("duplicate element id %q", e.ID)
		}
		seen[e.ID] = true
	}
	if d.DiagramWidth < 0 || d.DiagramHeight < 0 {
		return fmt.Errorf("negative diagram size %.0fx%.0f", d.DiagramWidth, d.DiagramHeight)
	}
	return nil
}

// Element returns the element with the given id.
func (d *Diagram) Element(id string) (Element, bool) {
	if d == nil {
		return Element{}, false
	}
	for _, e := range d.Elements {
		if e.ID == id {
			return e, true
		}
	}
	return Element{}, false
}

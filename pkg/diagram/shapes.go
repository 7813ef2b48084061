// Package diagram renders model-json diagrams to SVG and PNG surfaces.
//
// Element types are mapped to shapes through an explicit table. Types that are
// not in the table are handled according to UnknownTypePolicy instead of being
// looked up dynamically.
package diagram

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/caseview/pkg/model"
)

// ShapeKind is the drawing routine used for an element type.
type ShapeKind int

const (
	ShapeTask ShapeKind = iota + 1
	ShapeStage
	ShapePlanModel
	ShapeMilestone
	ShapeEvent
	ShapeCriterion
	ShapeGateway
	ShapeSubProcess
	ShapeAnnotation
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeTask:
		return "task"
	case ShapeStage:
		return "stage"
	case ShapePlanModel:
		return "planmodel"
	case ShapeMilestone:
		return "milestone"
	case ShapeEvent:
		return "event"
	case ShapeCriterion:
		return "criterion"
	case ShapeGateway:
		return "gateway"
	case ShapeSubProcess:
		return "subprocess"
	case ShapeAnnotation:
		return "annotation"
	default:
		return fmt.Sprintf("shape(%d)", int(k))
	}
}

// Geometry is the outline used for both drawing and hit testing.
type Geometry int

const (
	GeometryRect Geometry = iota
	GeometryCircle
	GeometryRhombus
)

// Geometry returns the outline of the shape kind.
func (k ShapeKind) Geometry() Geometry {
	switch k {
	case ShapeEvent:
		return GeometryCircle
	case ShapeCriterion, ShapeGateway:
		return GeometryRhombus
	default:
		return GeometryRect
	}
}

// Container shapes are drawn before the shapes they enclose.
func (k ShapeKind) Container() bool {
	return k == ShapePlanModel || k == ShapeStage || k == ShapeSubProcess
}

var shapeTable = map[string]ShapeKind{
	// CMMN
	"PlanModel":             ShapePlanModel,
	"Stage":                 ShapeStage,
	"Task":                  ShapeTask,
	"HumanTask":             ShapeTask,
	"CaseTask":              ShapeTask,
	"ProcessTask":           ShapeTask,
	"DecisionTask":          ShapeTask,
	"ServiceTask":           ShapeTask,
	"HttpServiceTask":       ShapeTask,
	"ScriptServiceTask":     ShapeTask,
	"ExternalWorkerTask":    ShapeTask,
	"Milestone":             ShapeMilestone,
	"EntryCriterion":        ShapeCriterion,
	"ExitCriterion":         ShapeCriterion,
	"EventListener":         ShapeEvent,
	"GenericEventListener":  ShapeEvent,
	"TimerEventListener":    ShapeEvent,
	"UserEventListener":     ShapeEvent,
	"SignalEventListener":   ShapeEvent,
	"VariableEventListener": ShapeEvent,
	"TextAnnotation":        ShapeAnnotation,

	// BPMN
	"StartEvent":             ShapeEvent,
	"EndEvent":               ShapeEvent,
	"BoundaryEvent":          ShapeEvent,
	"IntermediateCatchEvent": ShapeEvent,
	"ThrowEvent":             ShapeEvent,
	"UserTask":               ShapeTask,
	"ScriptTask":             ShapeTask,
	"ManualTask":             ShapeTask,
	"ReceiveTask":            ShapeTask,
	"SendTask":               ShapeTask,
	"BusinessRuleTask":       ShapeTask,
	"CallActivity":           ShapeTask,
	"SubProcess":             ShapeSubProcess,
	"EventSubProcess":        ShapeSubProcess,
	"AdhocSubProcess":        ShapeSubProcess,
	"ExclusiveGateway":       ShapeGateway,
	"ParallelGateway":        ShapeGateway,
	"InclusiveGateway":       ShapeGateway,
	"EventGateway":           ShapeGateway,
	"ComplexGateway":         ShapeGateway,
}

// LookupShape returns the shape registered for an element type.
func LookupShape(elementType string) (ShapeKind, bool) {
	k, ok := shapeTable[elementType]
	return k, ok
}

// KnownTypes returns every registered element type, sorted.
func KnownTypes() []string {
	types := make([]string, 0, len(shapeTable))
	for t := range shapeTable {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// UnknownTypePolicy decides what happens to elements with an unregistered type.
type UnknownTypePolicy string

const (
	UnknownSkip UnknownTypePolicy = "skip"
	UnknownFail UnknownTypePolicy = "fail"
)

// ParseUnknownTypePolicy accepts "skip" (default) or "fail".
func ParseUnknownTypePolicy(s string) (UnknownTypePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip":
		return UnknownSkip, nil
	case "fail":
		return UnknownFail, nil
	default:
		return "", fmt.Errorf("unknown type policy %q (want skip or fail)", s)
	}
}

// UnknownTypeError is returned under UnknownFail.
type UnknownTypeError struct {
	ElementID string
	Type      string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("element %s has unsupported type %q", e.ElementID, e.Type)
}

// Shape is an element paired with its drawing routine.
type Shape struct {
	Element model.Element
	Kind    ShapeKind
}

// Contains reports whether the point lies inside the shape outline.
func (s Shape) Contains(x, y float64) bool {
	e := s.Element
	switch s.Kind.Geometry() {
	case GeometryCircle:
		r := minf(e.Width, e.Height) / 2
		cx, cy := e.X+e.Width/2, e.Y+e.Height/2
		dx, dy := x-cx, y-cy
		return dx*dx+dy*dy <= r*r
	case GeometryRhombus:
		hw, hh := e.Width/2, e.Height/2
		if hw <= 0 || hh <= 0 {
			return false
		}
		dx, dy := absf(x-(e.X+hw)), absf(y-(e.Y+hh))
		return dx/hw+dy/hh <= 1
	default:
		return x >= e.X && x <= e.X+e.Width && y >= e.Y && y <= e.Y+e.Height
	}
}

// ResolveShapes maps every element to a shape. Containers come first so that
// their children are drawn on top. Skipped holds ids of unknown-typed elements.
func ResolveShapes(d *model.Diagram, policy UnknownTypePolicy) (shapes []Shape, skipped []string, err error) {
	var containers, leaves []Shape
	for _, e := range d.Elements {
		kind, ok := LookupShape(e.Type)
		if !ok {
			if policy == UnknownFail {
				return nil, nil, &UnknownTypeError{ElementID: e.ID, Type: e.Type}
			}
			skipped = append(skipped, e.ID)
			continue
		}
		s := Shape{Element: e, Kind: kind}
		if kind.Container() {
			containers = append(containers, s)
		} else {
			leaves = append(leaves, s)
		}
	}
	// Outer containers first.
	sort.SliceStable(containers, func(i, j int) bool {
		ai := containers[i].Element.Width * containers[i].Element.Height
		aj := containers[j].Element.Width * containers[j].Element.Height
		return ai > aj
	})
	return append(containers, leaves...), skipped, nil
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

package diagram

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/caseview/pkg/model"
)

// FlowGraph indexes the flows of a diagram as a directed graph.
type FlowGraph struct {
	g     *simple.DirectedGraph
	ids   map[string]int64
	names []string
	order []string
}

// NewFlowGraph builds the graph. Flows whose endpoints are not elements of the
// diagram are returned as dangling; self-loops are ignored.
func NewFlowGraph(d *model.Diagram) (*FlowGraph, []model.Flow) {
	fg := &FlowGraph{
		g:   simple.NewDirectedGraph(),
		ids: make(map[string]int64, len(d.Elements)),
	}
	for i, e := range d.Elements {
		id := int64(i)
		fg.ids[e.ID] = id
		fg.names = append(fg.names, e.ID)
		fg.order = append(fg.order, e.ID)
		fg.g.AddNode(simple.Node(id))
	}

	var dangling []model.Flow
	for _, f := range d.Flows {
		from, ok1 := fg.ids[f.SourceRef]
		to, ok2 := fg.ids[f.TargetRef]
		if !ok1 || !ok2 {
			dangling = append(dangling, f)
			continue
		}
		if from == to {
			continue
		}
		fg.g.SetEdge(fg.g.NewEdge(simple.Node(from), simple.Node(to)))
	}
	return fg, dangling
}

// Successors returns the ids of elements reached by outgoing flows.
func (fg *FlowGraph) Successors(id string) []string {
	n, ok := fg.ids[id]
	if !ok {
		return nil
	}
	return fg.collect(fg.g.From(n))
}

// Predecessors returns the ids of elements with flows into id.
func (fg *FlowGraph) Predecessors(id string) []string {
	n, ok := fg.ids[id]
	if !ok {
		return nil
	}
	return fg.collect(fg.g.To(n))
}

// Order returns element ids in flow order. Diagrams with cycles keep the
// document order.
func (fg *FlowGraph) Order() []string {
	sorted, err := topo.SortStabilized(fg.g, func(nodes []graph.Node) {
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
	})
	if err != nil {
		return append([]string(nil), fg.order...)
	}
	out := make([]string, 0, len(sorted))
	for _, n := range sorted {
		out = append(out, fg.names[n.ID()])
	}
	return out
}

func (fg *FlowGraph) collect(it graph.Nodes) []string {
	var out []string
	for it.Next() {
		out = append(out, fg.names[it.Node().ID()])
	}
	sort.Strings(out)
	return out
}

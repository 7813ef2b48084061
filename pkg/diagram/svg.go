package diagram

import (
	"fmt"
	"html"
	"io"
	"math"

	"github.com/ajstarks/svgo"

	"github.com/vanderheijden86/caseview/pkg/model"
)

func renderSVG(w io.Writer, l *Layout, hl Highlight, hitRegions bool) error {
	canvas := svg.New(w)
	canvas.Start(l.Width, l.Height)
	canvas.Rect(0, 0, l.Width, l.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	if l.Title != "" {
		canvas.Title(l.Title)
	}

	for _, p := range l.Pools {
		drawPoolSVG(canvas, p)
	}
	for _, s := range l.Shapes {
		if hl.Selected[s.Element.ID] {
			drawGlowSVG(canvas, s)
		}
		drawShapeSVG(canvas, s, hl.Hover == s.Element.ID)
	}
	for _, f := range l.Flows {
		drawFlowSVG(canvas, l, f)
	}

	if hitRegions {
		canvas.Group(`id="hit-regions"`)
		for _, s := range l.Shapes {
			drawHitRegionSVG(canvas, s)
		}
		canvas.Gend()
	}

	canvas.End()
	return nil
}

func drawPoolSVG(canvas *svg.SVG, p model.Pool) {
	style := fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(colorPool), css(colorContainer))
	canvas.Rect(int(p.X), int(p.Y), int(p.Width), int(p.Height), style)
	canvas.Text(int(p.X)+6, int(p.Y)+16, truncate(p.Name, labelWidth(p.Width)), textStyle(11))
	for _, lane := range p.Lanes {
		canvas.Rect(int(lane.X), int(lane.Y), int(lane.Width), int(lane.Height),
			fmt.Sprintf("fill:none;stroke:%s;stroke-width:1", css(colorContainer)))
		canvas.Text(int(lane.X)+6, int(lane.Y)+16, truncate(lane.Name, labelWidth(lane.Width)), textStyle(10))
	}
}

func drawShapeSVG(canvas *svg.SVG, s Shape, hover bool) {
	e := s.Element
	stroke, width := strokeFor(s, hover)
	style := fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%.1f", css(colorFill), css(stroke), width)
	x, y, w, h := int(e.X), int(e.Y), int(e.Width), int(e.Height)

	switch s.Kind {
	case ShapePlanModel, ShapeStage, ShapeSubProcess:
		canvas.Roundrect(x, y, w, h, 6, 6, fmt.Sprintf("fill:none;stroke:%s;stroke-width:%.1f", css(stroke), width))
		canvas.Text(x+8, y+16, truncate(e.Name, labelWidth(e.Width)), textStyle(12)+";font-weight:bold")
		return
	case ShapeMilestone:
		canvas.Roundrect(x, y, w, h, h/2, h/2, style)
	case ShapeEvent:
		r := int(minf(e.Width, e.Height) / 2)
		canvas.Circle(x+w/2, y+h/2, r, style)
		if e.Name != "" {
			canvas.Text(x+w/2, y+h+14, truncate(e.Name, 24), textStyle(11)+";text-anchor:middle")
		}
		return
	case ShapeCriterion, ShapeGateway:
		xs, ys := rhombus(e)
		canvas.Polygon(xs, ys, style)
		return
	case ShapeAnnotation:
		canvas.Polyline([]int{x + 12, x, x, x + 12}, []int{y, y, y + h, y + h},
			fmt.Sprintf("fill:none;stroke:%s;stroke-width:1", css(stroke)))
		canvas.Text(x+6, y+h/2, truncate(e.Name, labelWidth(e.Width)), textStyle(11))
		return
	default:
		canvas.Roundrect(x, y, w, h, 8, 8, style)
	}
	canvas.Text(x+w/2, y+h/2+4, truncate(e.Name, labelWidth(e.Width)), textStyle(12)+";text-anchor:middle")
}

func drawGlowSVG(canvas *svg.SVG, s Shape) {
	e := s.Element
	style := fmt.Sprintf("fill:none;stroke:%s;stroke-width:6;stroke-opacity:0.5", css(colorGlow))
	switch s.Kind.Geometry() {
	case GeometryCircle:
		r := int(minf(e.Width, e.Height)/2) + 3
		canvas.Circle(int(e.X+e.Width/2), int(e.Y+e.Height/2), r, style)
	case GeometryRhombus:
		xs, ys := rhombus(e)
		canvas.Polygon(xs, ys, style)
	default:
		canvas.Roundrect(int(e.X)-3, int(e.Y)-3, int(e.Width)+6, int(e.Height)+6, 10, 10, style)
	}
}

func drawFlowSVG(canvas *svg.SVG, l *Layout, f model.Flow) {
	pts, ok := l.flowPoints(f)
	if !ok {
		return
	}
	xs := make([]int, len(pts))
	ys := make([]int, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = int(p.X), int(p.Y)
	}
	style := fmt.Sprintf("fill:none;stroke:%s;stroke-width:1.5", css(colorFlow))
	if isAssociation(f) {
		canvas.Polyline(xs, ys, style+";stroke-dasharray:4,4")
		return
	}
	canvas.Polyline(xs, ys, style)
	ax, ay := arrowHead(pts[len(pts)-2], pts[len(pts)-1])
	canvas.Polygon(ax, ay, fmt.Sprintf("fill:%s", css(colorFlow)))
}

func drawHitRegionSVG(canvas *svg.SVG, s Shape) {
	e := s.Element
	attrs := []string{
		"fill:#ffffff;fill-opacity:0;stroke:none;cursor:pointer",
		fmt.Sprintf(`data-element-id="%s"`, html.EscapeString(e.ID)),
		fmt.Sprintf(`data-lifecycle="%s"`, model.LifecycleOf(e)),
	}
	switch s.Kind.Geometry() {
	case GeometryCircle:
		canvas.Circle(int(e.X+e.Width/2), int(e.Y+e.Height/2), int(minf(e.Width, e.Height)/2), attrs...)
	case GeometryRhombus:
		xs, ys := rhombus(e)
		canvas.Polygon(xs, ys, attrs...)
	default:
		canvas.Rect(int(e.X), int(e.Y), int(e.Width), int(e.Height), attrs...)
	}
}

func rhombus(e model.Element) ([]int, []int) {
	x, y, w, h := int(e.X), int(e.Y), int(e.Width), int(e.Height)
	return []int{x + w/2, x + w, x + w/2, x}, []int{y, y + h/2, y + h, y + h/2}
}

// arrowHead returns a small triangle pointing from a to b, tip at b.
func arrowHead(a, b model.Point) ([]int, []int) {
	const size = 8.0
	angle := math.Atan2(b.Y-a.Y, b.X-a.X)
	lx := b.X - size*math.Cos(angle-math.Pi/7)
	ly := b.Y - size*math.Sin(angle-math.Pi/7)
	rx := b.X - size*math.Cos(angle+math.Pi/7)
	ry := b.Y - size*math.Sin(angle+math.Pi/7)
	return []int{int(b.X), int(lx), int(rx)}, []int{int(b.Y), int(ly), int(ry)}
}

func textStyle(px int) string {
	return fmt.Sprintf("fill:%s;font-size:%dpx;font-family:Arial,sans-serif", css(colorText), px)
}

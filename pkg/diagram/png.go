package diagram

import (
	"image/color"
	"io"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/caseview/pkg/model"
)

func renderPNG(w io.Writer, l *Layout, hl Highlight) error {
	dc := gg.NewContext(l.Width, l.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	for _, p := range l.Pools {
		drawPool(dc, p)
	}
	for _, s := range l.Shapes {
		if hl.Selected[s.Element.ID] {
			drawGlow(dc, s)
		}
		drawShape(dc, s, hl.Hover == s.Element.ID)
	}
	for _, f := range l.Flows {
		drawFlow(dc, l, f)
	}

	return dc.EncodePNG(w)
}

func drawPool(dc *gg.Context, p model.Pool) {
	dc.SetColor(colorPool)
	dc.DrawRectangle(p.X, p.Y, p.Width, p.Height)
	dc.Fill()
	dc.SetColor(colorContainer)
	dc.SetLineWidth(1)
	dc.DrawRectangle(p.X, p.Y, p.Width, p.Height)
	dc.Stroke()
	dc.SetColor(colorText)
	dc.DrawStringAnchored(truncate(p.Name, labelWidth(p.Width)), p.X+6, p.Y+12, 0, 0.5)
	for _, lane := range p.Lanes {
		dc.SetColor(colorContainer)
		dc.DrawRectangle(lane.X, lane.Y, lane.Width, lane.Height)
		dc.Stroke()
		dc.SetColor(colorText)
		dc.DrawStringAnchored(truncate(lane.Name, labelWidth(lane.Width)), lane.X+6, lane.Y+12, 0, 0.5)
	}
}

func outline(dc *gg.Context, s Shape, grow float64) {
	e := s.Element
	switch s.Kind.Geometry() {
	case GeometryCircle:
		dc.DrawCircle(e.X+e.Width/2, e.Y+e.Height/2, minf(e.Width, e.Height)/2+grow)
	case GeometryRhombus:
		cx, cy := e.X+e.Width/2, e.Y+e.Height/2
		hw, hh := e.Width/2+grow, e.Height/2+grow
		dc.NewSubPath()
		dc.MoveTo(cx, cy-hh)
		dc.LineTo(cx+hw, cy)
		dc.LineTo(cx, cy+hh)
		dc.LineTo(cx-hw, cy)
		dc.ClosePath()
	default:
		r := 8.0
		if s.Kind == ShapeMilestone {
			r = e.Height / 2
		}
		dc.DrawRoundedRectangle(e.X-grow, e.Y-grow, e.Width+2*grow, e.Height+2*grow, r)
	}
}

func drawShape(dc *gg.Context, s Shape, hover bool) {
	e := s.Element
	stroke, width := strokeFor(s, hover)

	if !s.Kind.Container() && s.Kind != ShapeAnnotation {
		dc.SetColor(colorFill)
		outline(dc, s, 0)
		dc.Fill()
	}
	dc.SetColor(stroke)
	dc.SetLineWidth(width)
	if s.Kind == ShapeAnnotation {
		dc.MoveTo(e.X+12, e.Y)
		dc.LineTo(e.X, e.Y)
		dc.LineTo(e.X, e.Y+e.Height)
		dc.LineTo(e.X+12, e.Y+e.Height)
	} else {
		outline(dc, s, 0)
	}
	dc.Stroke()

	dc.SetColor(colorText)
	label := truncate(e.Name, labelWidth(e.Width))
	switch {
	case s.Kind.Container():
		dc.DrawStringAnchored(label, e.X+8, e.Y+12, 0, 0.5)
	case s.Kind == ShapeEvent:
		dc.DrawStringAnchored(truncate(e.Name, 24), e.X+e.Width/2, e.Y+e.Height+10, 0.5, 0.5)
	case s.Kind.Geometry() == GeometryRhombus:
		// sentries and gateways carry no inline label
	default:
		dc.DrawStringAnchored(label, e.X+e.Width/2, e.Y+e.Height/2, 0.5, 0.5)
	}
}

func drawGlow(dc *gg.Context, s Shape) {
	dc.SetColor(color.RGBA{colorGlow.R, colorGlow.G, colorGlow.B, 0x80})
	dc.SetLineWidth(6)
	outline(dc, s, 3)
	dc.Stroke()
}

func drawFlow(dc *gg.Context, l *Layout, f model.Flow) {
	pts, ok := l.flowPoints(f)
	if !ok {
		return
	}
	dc.SetColor(colorFlow)
	dc.SetLineWidth(1.5)
	if isAssociation(f) {
		dc.SetDash(4, 4)
	}
	dc.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		dc.LineTo(p.X, p.Y)
	}
	dc.Stroke()
	dc.SetDash()
	if isAssociation(f) {
		return
	}
	xs, ys := arrowHead(pts[len(pts)-2], pts[len(pts)-1])
	dc.NewSubPath()
	dc.MoveTo(float64(xs[0]), float64(ys[0]))
	dc.LineTo(float64(xs[1]), float64(ys[1]))
	dc.LineTo(float64(xs[2]), float64(ys[2]))
	dc.ClosePath()
	dc.Fill()
}

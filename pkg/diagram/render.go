package diagram

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vanderheijden86/caseview/pkg/debug"
	"github.com/vanderheijden86/caseview/pkg/metrics"
	"github.com/vanderheijden86/caseview/pkg/model"
)

// Canvas padding added to the diagram size reported by the server.
const (
	PaddingX = 20.0
	PaddingY = 50.0
)

// Highlight is the interaction state painted on top of the diagram.
type Highlight struct {
	Selected map[string]bool // element ids with a glow outline
	Hover    string          // element id drawn with the hover stroke
}

// Options controls a render pass.
type Options struct {
	Title        string
	UnknownTypes UnknownTypePolicy
	Highlight    Highlight
	// HitRegions adds transparent, id-tagged overlays to SVG output.
	HitRegions bool
}

// Result describes what a render pass produced.
type Result struct {
	Width   int
	Height  int
	Drawn   int
	Flows   int
	Skipped []string
}

// Layout is a diagram resolved into drawable shapes on a sized canvas.
type Layout struct {
	Shapes  []Shape
	Flows   []model.Flow
	Pools   []model.Pool
	Width   int
	Height  int
	Skipped []string
	Title   string
}

// BuildLayout sizes the canvas and resolves element shapes.
func BuildLayout(d *model.Diagram, opts Options) (*Layout, error) {
	if d == nil {
		return nil, fmt.Errorf("no diagram to render")
	}
	shapes, skipped, err := ResolveShapes(d, opts.UnknownTypes)
	if err != nil {
		return nil, err
	}
	for _, id := range skipped {
		e, _ := d.Element(id)
		debug.Log("diagram: skipping element %s with unsupported type %q", id, e.Type)
	}

	w, h := d.DiagramWidth, d.DiagramHeight
	if w <= 0 || h <= 0 {
		// Older servers omit the size; fall back to the element extents.
		for _, s := range shapes {
			w = maxf(w, s.Element.X+s.Element.Width)
			h = maxf(h, s.Element.Y+s.Element.Height)
		}
	}

	return &Layout{
		Shapes:  shapes,
		Flows:   d.Flows,
		Pools:   d.Pools,
		Width:   int(w + PaddingX),
		Height:  int(h + PaddingY),
		Skipped: skipped,
		Title:   opts.Title,
	}, nil
}

// ShapeAt returns the topmost shape containing the point.
func (l *Layout) ShapeAt(x, y float64) (Shape, bool) {
	for i := len(l.Shapes) - 1; i >= 0; i-- {
		if l.Shapes[i].Contains(x, y) {
			return l.Shapes[i], true
		}
	}
	return Shape{}, false
}

// Shape returns the shape for an element id.
func (l *Layout) Shape(id string) (Shape, bool) {
	for _, s := range l.Shapes {
		if s.Element.ID == id {
			return s, true
		}
	}
	return Shape{}, false
}

func (l *Layout) result() Result {
	return Result{
		Width:   l.Width,
		Height:  l.Height,
		Drawn:   len(l.Shapes),
		Flows:   len(l.Flows),
		Skipped: l.Skipped,
	}
}

// Render writes the diagram in the given format ("svg" or "png").
func Render(w io.Writer, format string, d *model.Diagram, opts Options) (Result, error) {
	defer metrics.Timer(metrics.DiagramRender)()
	start := time.Now()
	defer func() { debug.LogTiming("diagram.Render", time.Since(start)) }()

	layout, err := BuildLayout(d, opts)
	if err != nil {
		return Result{}, err
	}
	switch strings.ToLower(format) {
	case "svg":
		err = renderSVG(w, layout, opts.Highlight, opts.HitRegions)
	case "png":
		err = renderPNG(w, layout, opts.Highlight)
	default:
		return Result{}, fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if err != nil {
		return Result{}, err
	}
	return layout.result(), nil
}

// FormatFromPath infers "svg" or "png" from a file extension. Unknown or
// missing extensions default to svg.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	default:
		return "svg"
	}
}

// Save renders the diagram to a file, creating parent directories. When
// format is empty it is inferred from the extension.
func Save(path, format string, d *model.Diagram, opts Options) (Result, error) {
	if path == "" {
		return Result{}, fmt.Errorf("output path is required")
	}
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	if format == "" {
		format = FormatFromPath(path)
		if filepath.Ext(path) == "" {
			path += "." + format
		}
	}
	if format != "svg" && format != "png" {
		return Result{}, fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Result{}, fmt.Errorf("create parent dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return Result{}, err
	}
	res, err := Render(f, format, d, opts)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	return res, err
}

// --- palette ---------------------------------------------------------------

var (
	colorBackdrop  = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorFill      = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorStroke    = color.RGBA{0x58, 0x58, 0x58, 0xff}
	colorContainer = color.RGBA{0xbb, 0xbb, 0xbb, 0xff}
	colorCurrent   = color.RGBA{0x01, 0x75, 0x01, 0xff}
	colorAvailable = color.RGBA{0xe3, 0xae, 0x10, 0xff}
	colorCompleted = color.RGBA{0x26, 0x32, 0xaa, 0xff}
	colorHover     = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorGlow      = color.RGBA{0x4c, 0x9a, 0xff, 0xff}
	colorFlow      = color.RGBA{0x58, 0x58, 0x58, 0xff}
	colorText      = color.RGBA{0x37, 0x3e, 0x48, 0xff}
	colorPool      = color.RGBA{0xf6, 0xf6, 0xf6, 0xff}
)

// strokeFor returns the outline colour and width for an element.
func strokeFor(s Shape, hover bool) (color.RGBA, float64) {
	if hover {
		return colorHover, 3
	}
	switch model.LifecycleOf(s.Element) {
	case model.LifecycleCurrent:
		return colorCurrent, 3
	case model.LifecycleAvailable:
		return colorAvailable, 2
	case model.LifecycleCompleted:
		return colorCompleted, 2
	}
	if s.Kind.Container() {
		return colorContainer, 1
	}
	return colorStroke, 1
}

func isAssociation(f model.Flow) bool {
	return strings.Contains(strings.ToLower(f.Type), "association")
}

// flowPoints returns the waypoints of a flow, or a centre-to-centre segment
// when the server sent none.
func (l *Layout) flowPoints(f model.Flow) ([]model.Point, bool) {
	if len(f.Waypoints) >= 2 {
		return f.Waypoints, true
	}
	src, ok1 := l.Shape(f.SourceRef)
	dst, ok2 := l.Shape(f.TargetRef)
	if !ok1 || !ok2 {
		return nil, false
	}
	return []model.Point{center(src.Element), center(dst.Element)}, true
}

func center(e model.Element) model.Point {
	return model.Point{X: e.X + e.Width/2, Y: e.Y + e.Height/2}
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// labelWidth is the number of characters that fit in a shape of width w.
func labelWidth(w float64) int {
	return int(w / 7)
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

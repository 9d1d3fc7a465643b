package render

import (
	"image"
	"image/color"
)

// Op names recorded by Recorder.
const (
	OpImage  = "image"
	OpStroke = "stroke"
	OpCircle = "circle"
	OpText   = "text"
)

// Op is one recorded drawing call.
type Op struct {
	Kind      string
	Image     image.Image
	Transform Transform
	Points    []Point
	Stroke    Stroke
	Center    Point
	Radius    float64
	Color     color.RGBA
	Text      string
	Style     TextStyle
}

// Recorder is a Surface that records calls instead of drawing them.
// It backs tests and headless runs.
type Recorder struct {
	Width  int
	Height int
	Ops    []Op
}

// NewRecorder creates a Recorder of the given size.
func NewRecorder(width, height int) *Recorder {
	return &Recorder{Width: width, Height: height}
}

// Size implements Surface.
func (r *Recorder) Size() (int, int) {
	return r.Width, r.Height
}

// DrawImage implements Surface.
func (r *Recorder) DrawImage(img image.Image, t Transform) {
	r.Ops = append(r.Ops, Op{Kind: OpImage, Image: img, Transform: t})
}

// StrokePath implements Surface.
func (r *Recorder) StrokePath(points []Point, s Stroke) {
	cp := make([]Point, len(points))
	copy(cp, points)
	r.Ops = append(r.Ops, Op{Kind: OpStroke, Points: cp, Stroke: s})
}

// FillCircle implements Surface.
func (r *Recorder) FillCircle(center Point, radius float64, c color.RGBA) {
	r.Ops = append(r.Ops, Op{Kind: OpCircle, Center: center, Radius: radius, Color: c})
}

// SetText implements Surface.
func (r *Recorder) SetText(text string, at Point, style TextStyle) {
	r.Ops = append(r.Ops, Op{Kind: OpText, Text: text, Center: at, Style: style})
}

// Count returns how many ops of kind were recorded.
func (r *Recorder) Count(kind string) int {
	n := 0
	for _, op := range r.Ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Images returns the recorded image ops in order.
func (r *Recorder) Images() []Op {
	var out []Op
	for _, op := range r.Ops {
		if op.Kind == OpImage {
			out = append(out, op)
		}
	}
	return out
}

// Reset drops all recorded ops.
func (r *Recorder) Reset() {
	r.Ops = r.Ops[:0]
}

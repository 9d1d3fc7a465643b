package render

import (
	"errors"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// alphaCutoff is the alpha value above which a warped pixel is copied onto the canvas.
const alphaCutoff = 127

// MatImage adapts a BGR or BGRA gocv.Mat to image.Image so it can travel through
// Surface without a copy. MatSurface draws it directly.
type MatImage struct {
	Mat gocv.Mat
}

// NewMatImage wraps m. The MatImage owns m and releases it on Close.
func NewMatImage(m gocv.Mat) *MatImage {
	return &MatImage{Mat: m}
}

// ColorModel implements image.Image.
func (m *MatImage) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements image.Image.
func (m *MatImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Mat.Cols(), m.Mat.Rows())
}

// At implements image.Image. It is slow and only used by non-gocv surfaces.
func (m *MatImage) At(x, y int) color.Color {
	ch := m.Mat.Channels()
	b := m.Mat.GetUCharAt(y, x*ch)
	g := m.Mat.GetUCharAt(y, x*ch+1)
	r := m.Mat.GetUCharAt(y, x*ch+2)
	a := uint8(255)
	if ch == 4 {
		a = m.Mat.GetUCharAt(y, x*ch+3)
	}
	return color.NRGBA{R: r, G: g, B: b, A: a}
}

// Close releases the wrapped Mat.
func (m *MatImage) Close() error {
	return m.Mat.Close()
}

// Cutout isolates the person in frame using a single channel mask. The result is a
// BGRA image whose alpha is the mask resized to the frame.
func Cutout(frame gocv.Mat, mask gocv.Mat) (*MatImage, error) {
	if frame.Empty() || mask.Empty() {
		return nil, errors.New("cutout needs a frame and a mask")
	}

	bgra := gocv.NewMat()
	gocv.CvtColor(frame, &bgra, gocv.ColorBGRToBGRA)

	alpha := gocv.NewMat()
	defer alpha.Close()
	if mask.Cols() != frame.Cols() || mask.Rows() != frame.Rows() {
		gocv.Resize(mask, &alpha, image.Pt(frame.Cols(), frame.Rows()), 0, 0, gocv.InterpolationLinear)
	} else {
		mask.CopyTo(&alpha)
	}

	channels := gocv.Split(bgra)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()
	channels[3].Close()
	channels[3] = alpha.Clone()

	gocv.Merge(channels, &bgra)
	return NewMatImage(bgra), nil
}

// MatSurface draws into a BGR gocv.Mat.
type MatSurface struct {
	canvas gocv.Mat
}

// NewMatSurface allocates a black canvas of the given size.
func NewMatSurface(width, height int) *MatSurface {
	return &MatSurface{
		canvas: gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3),
	}
}

// Mat returns the canvas. It stays owned by the surface.
func (s *MatSurface) Mat() *gocv.Mat {
	return &s.canvas
}

// Close releases the canvas.
func (s *MatSurface) Close() error {
	return s.canvas.Close()
}

// Clear paints the canvas black.
func (s *MatSurface) Clear() {
	s.canvas.SetTo(gocv.NewScalar(0, 0, 0, 0))
}

// Size implements Surface.
func (s *MatSurface) Size() (int, int) {
	return s.canvas.Cols(), s.canvas.Rows()
}

// DrawImage implements Surface.
func (s *MatSurface) DrawImage(img image.Image, t Transform) {
	if img == nil {
		return
	}

	src, owned, err := toBGRA(img)
	if err != nil {
		return
	}
	if owned {
		defer src.Close()
	}

	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer m.Close()
	m.SetDoubleAt(0, 0, t.Scale)
	m.SetDoubleAt(0, 1, 0)
	m.SetDoubleAt(0, 2, t.TX)
	m.SetDoubleAt(1, 0, 0)
	m.SetDoubleAt(1, 1, t.Scale)
	m.SetDoubleAt(1, 2, t.TY)

	w, h := s.Size()
	warped := gocv.NewMat()
	defer warped.Close()
	gocv.WarpAffine(src, &warped, m, image.Pt(w, h))

	channels := gocv.Split(warped)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(channels[3], &mask, alphaCutoff, 255, gocv.ThresholdBinary)

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(warped, &bgr, gocv.ColorBGRAToBGR)

	bgr.CopyToWithMask(&s.canvas, mask)
}

// toBGRA returns a 4 channel Mat for img and whether the caller must close it.
func toBGRA(img image.Image) (gocv.Mat, bool, error) {
	if mi, ok := img.(*MatImage); ok {
		switch mi.Mat.Channels() {
		case 4:
			return mi.Mat, false, nil
		case 3:
			out := gocv.NewMat()
			gocv.CvtColor(mi.Mat, &out, gocv.ColorBGRToBGRA)
			return out, true, nil
		default:
			return gocv.Mat{}, false, errors.New("unsupported channel count")
		}
	}

	rgba, err := gocv.ImageToMatRGBA(img)
	if err != nil {
		return gocv.Mat{}, false, err
	}
	defer rgba.Close()

	out := gocv.NewMat()
	gocv.CvtColor(rgba, &out, gocv.ColorRGBAToBGRA)
	return out, true, nil
}

// StrokePath implements Surface.
func (s *MatSurface) StrokePath(points []Point, st Stroke) {
	for i := 1; i < len(points); i++ {
		gocv.Line(&s.canvas, toPixel(points[i-1]), toPixel(points[i]), st.Color, st.Width)
	}
}

// FillCircle implements Surface.
func (s *MatSurface) FillCircle(center Point, radius float64, c color.RGBA) {
	gocv.Circle(&s.canvas, toPixel(center), int(math.Round(radius)), c, -1)
}

// SetText implements Surface.
func (s *MatSurface) SetText(text string, at Point, style TextStyle) {
	scale := style.Scale
	if scale <= 0 {
		scale = 0.5
	}
	thickness := style.Thickness
	if thickness <= 0 {
		thickness = 1
	}

	org := toPixel(at)
	if style.AlignRight {
		size := gocv.GetTextSize(text, gocv.FontHersheySimplex, scale, thickness)
		org.X -= size.X
	}
	gocv.PutText(&s.canvas, text, org, gocv.FontHersheySimplex, scale, style.Color, thickness)
}

func toPixel(p Point) image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

package render

import (
	"image"
	"image/color"
	"time"

	"github.com/ayusman/kagebunshin/internal/detector"
	"github.com/ayusman/kagebunshin/internal/timeline"
)

// Skeleton overlay defaults.
var (
	DefaultBoneColor  = color.RGBA{R: 0xff, G: 0x8c, B: 0x00, A: 0xff}
	DefaultJointColor = color.RGBA{R: 0xff, G: 0xcc, B: 0x00, A: 0xff}
	DefaultTextColor  = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xcc}
)

const (
	defaultBoneWidth   = 2
	defaultJointRadius = 3
	watermarkMargin    = 10
)

// ParticleDrawer draws the live particles for the frame at now.
type ParticleDrawer interface {
	Draw(s Surface, now time.Time)
}

// Scene is everything the compositor needs for one output frame.
type Scene struct {
	// Background is the raw video frame. It may be nil.
	Background image.Image
	// Person is the segmented person cutout. It may be nil before the first mask.
	Person    image.Image
	Triggered bool
	// Actors are the active clones, already in draw order.
	Actors    []timeline.Actor
	Particles ParticleDrawer
	Now       time.Time
	Right     *detector.HandLandmarks
	Left      *detector.HandLandmarks
}

// CompositorOptions configures overlay drawing.
type CompositorOptions struct {
	Skeleton    bool
	BoneColor   color.RGBA
	BoneWidth   int
	JointColor  color.RGBA
	JointRadius float64
	Watermark   string
}

// DefaultCompositorOptions draws the orange skeleton and no watermark.
func DefaultCompositorOptions() CompositorOptions {
	return CompositorOptions{
		Skeleton:    true,
		BoneColor:   DefaultBoneColor,
		BoneWidth:   defaultBoneWidth,
		JointColor:  DefaultJointColor,
		JointRadius: defaultJointRadius,
	}
}

// Compositor draws scenes onto a surface.
type Compositor struct {
	opts CompositorOptions
}

// NewCompositor creates a Compositor.
func NewCompositor(opts CompositorOptions) *Compositor {
	if opts.BoneWidth <= 0 {
		opts.BoneWidth = defaultBoneWidth
	}
	if opts.JointRadius <= 0 {
		opts.JointRadius = defaultJointRadius
	}
	return &Compositor{opts: opts}
}

// Compose draws one frame. Clones come first, the original person on top of them,
// then particles, hand skeletons and the watermark.
func (c *Compositor) Compose(s Surface, scene Scene) {
	width, height := s.Size()

	if scene.Background != nil {
		s.DrawImage(scene.Background, Identity())
	}

	if scene.Person != nil {
		if scene.Triggered {
			for _, a := range scene.Actors {
				s.DrawImage(scene.Person, CloneTransform(a, width))
			}
		}
		s.DrawImage(scene.Person, Identity())
	}

	if scene.Triggered && scene.Particles != nil {
		scene.Particles.Draw(s, scene.Now)
	}

	if c.opts.Skeleton {
		for _, hand := range []*detector.HandLandmarks{scene.Right, scene.Left} {
			if hand != nil {
				c.drawHand(s, hand, width, height)
			}
		}
	}

	if c.opts.Watermark != "" {
		s.SetText(c.opts.Watermark,
			Point{X: float64(width - watermarkMargin), Y: float64(height - watermarkMargin)},
			TextStyle{Color: DefaultTextColor, Scale: 0.5, Thickness: 1, AlignRight: true})
	}
}

// CloneTransform places a clone of a full-frame image for actor a.
func CloneTransform(a timeline.Actor, width int) Transform {
	return Transform{
		TX:    a.X + float64(width)*(1-a.Scale)/2,
		TY:    a.Y,
		Scale: a.Scale,
	}
}

func (c *Compositor) drawHand(s Surface, hand *detector.HandLandmarks, width, height int) {
	toPoint := func(i int) Point {
		p := hand.Points[i]
		return Point{X: p.X * float64(width), Y: p.Y * float64(height)}
	}

	stroke := Stroke{Color: c.opts.BoneColor, Width: c.opts.BoneWidth}
	for _, chain := range detector.FingerChains {
		path := make([]Point, len(chain))
		for i, idx := range chain {
			path[i] = toPoint(idx)
		}
		s.StrokePath(path, stroke)
	}

	for i := 0; i < detector.NumLandmarks; i++ {
		s.FillCircle(toPoint(i), c.opts.JointRadius, c.opts.JointColor)
	}
}

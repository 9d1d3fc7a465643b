package render

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/kagebunshin/internal/detector"
	"github.com/ayusman/kagebunshin/internal/timeline"
)

type countingParticles struct {
	calls int
	at    time.Time
}

func (p *countingParticles) Draw(s Surface, now time.Time) {
	p.calls++
	p.at = now
	s.FillCircle(Point{X: 1, Y: 1}, 1, DefaultJointColor)
}

func actor(x, y, scale float64, delayMS int) timeline.Actor {
	return timeline.Actor{ActorConfig: timeline.ActorConfig{
		X: x, Y: y, Scale: scale, Delay: time.Duration(delayMS) * time.Millisecond,
	}}
}

func TestCompositor_Untriggered(t *testing.T) {
	rec := NewRecorder(640, 480)
	person := image.NewRGBA(image.Rect(0, 0, 640, 480))
	particles := &countingParticles{}

	c := NewCompositor(CompositorOptions{})
	c.Compose(rec, Scene{
		Person:    person,
		Actors:    []timeline.Actor{actor(-100, 100, 0.9, 1000)},
		Particles: particles,
	})

	images := rec.Images()
	require.Len(t, images, 1)
	assert.Equal(t, Identity(), images[0].Transform)
	assert.Zero(t, particles.calls)
}

func TestCompositor_Triggered(t *testing.T) {
	rec := NewRecorder(640, 480)
	bg := image.NewRGBA(image.Rect(0, 0, 640, 480))
	person := image.NewRGBA(image.Rect(0, 0, 640, 480))
	particles := &countingParticles{}
	now := time.Date(2026, 1, 1, 0, 0, 2, 0, time.UTC)

	c := NewCompositor(CompositorOptions{})
	c.Compose(rec, Scene{
		Background: bg,
		Person:     person,
		Triggered:  true,
		Actors: []timeline.Actor{
			actor(120, 100, 0.85, 1150),
			actor(-100, 100, 0.9, 1000),
		},
		Particles: particles,
		Now:       now,
	})

	images := rec.Images()
	require.Len(t, images, 4)

	assert.Same(t, bg, images[0].Image)
	assert.InDelta(t, 168.0, images[1].Transform.TX, 1e-9)
	assert.Equal(t, 100.0, images[1].Transform.TY)
	assert.Equal(t, 0.85, images[1].Transform.Scale)
	assert.InDelta(t, -68.0, images[2].Transform.TX, 1e-9)
	assert.Equal(t, 0.9, images[2].Transform.Scale)
	assert.Equal(t, Identity(), images[3].Transform)
	assert.Same(t, person, images[3].Image)

	assert.Equal(t, 1, particles.calls)
	assert.Equal(t, now, particles.at)

	// Particles land after the last person draw.
	assert.Equal(t, OpImage, rec.Ops[3].Kind)
	assert.Equal(t, OpCircle, rec.Ops[4].Kind)
}

func TestCompositor_NoPersonYet(t *testing.T) {
	rec := NewRecorder(640, 480)
	c := NewCompositor(CompositorOptions{})
	c.Compose(rec, Scene{Triggered: true, Actors: []timeline.Actor{actor(0, 0, 1, 0)}})

	assert.Empty(t, rec.Ops)
}

func TestCompositor_Overlays(t *testing.T) {
	rec := NewRecorder(640, 480)
	right := detector.RightSealLandmarks()
	left := detector.LeftSealLandmarks()

	opts := DefaultCompositorOptions()
	opts.Watermark = "kagebunshin"
	c := NewCompositor(opts)
	c.Compose(rec, Scene{Right: &right, Left: &left})

	assert.Equal(t, 10, rec.Count(OpStroke))
	assert.Equal(t, 2*detector.NumLandmarks, rec.Count(OpCircle))
	require.Equal(t, 1, rec.Count(OpText))

	var first Op
	for _, op := range rec.Ops {
		if op.Kind == OpStroke {
			first = op
			break
		}
	}
	require.Len(t, first.Points, 5)
	assert.InDelta(t, right.Points[detector.Wrist].X*640, first.Points[0].X, 1e-9)
	assert.InDelta(t, right.Points[detector.Wrist].Y*480, first.Points[0].Y, 1e-9)
	assert.Equal(t, DefaultBoneColor, first.Stroke.Color)

	text := rec.Ops[len(rec.Ops)-1]
	assert.Equal(t, OpText, text.Kind)
	assert.Equal(t, "kagebunshin", text.Text)
	assert.True(t, text.Style.AlignRight)
	assert.Equal(t, Point{X: 630, Y: 470}, text.Center)
}

func TestCompositor_SkeletonDisabled(t *testing.T) {
	rec := NewRecorder(640, 480)
	right := detector.RightSealLandmarks()

	c := NewCompositor(CompositorOptions{Skeleton: false})
	c.Compose(rec, Scene{Right: &right})

	assert.Zero(t, rec.Count(OpStroke))
	assert.Zero(t, rec.Count(OpCircle))
}

func TestCentered(t *testing.T) {
	tr := Centered(Point{X: 100, Y: 50}, image.Pt(40, 20), 1.5)
	assert.Equal(t, Transform{TX: 70, TY: 35, Scale: 1.5}, tr)
}

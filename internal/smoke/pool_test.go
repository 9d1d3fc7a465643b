package smoke

import (
	"errors"
	"image"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/kagebunshin/internal/render"
)

type fakeLoader struct {
	mu      sync.Mutex
	missing map[string]bool
	loads   map[string]int
}

func newFakeLoader(missing ...string) *fakeLoader {
	l := &fakeLoader{missing: map[string]bool{}, loads: map[string]int{}}
	for _, m := range missing {
		l.missing[m] = true
	}
	return l
}

func (l *fakeLoader) Load(path string) (image.Image, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads[path]++
	if l.missing[path] {
		return nil, ErrFrameUnavailable
	}
	return image.NewRGBA(image.Rect(0, 0, 100, 80)), nil
}

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func ms(n int) time.Time {
	return t0.Add(time.Duration(n) * time.Millisecond)
}

func newTestPool(loader FrameLoader, seed int64) *Pool {
	return NewPool(DefaultConfig("assets"), loader, rand.New(rand.NewSource(seed)))
}

func TestPool_Spawn(t *testing.T) {
	loader := newFakeLoader()
	p := newTestPool(loader, 1)

	part := p.Spawn(320, 200, 0.9, t0)

	assert.InDelta(t, 0.9*ScaleBoost, part.Scale, 1e-12)
	assert.Equal(t, t0, part.Start)
	assert.Contains(t, DefaultFolders, part.Folder)
	require.Len(t, part.Frames, DefaultFrameCount)
	assert.Equal(t, 1, loader.loads[filepath.Join("assets", part.Folder, "1.png")])
	assert.Equal(t, 1, loader.loads[filepath.Join("assets", part.Folder, "5.png")])
	assert.Equal(t, 1, p.Len())
}

func TestPool_DeterministicStyle(t *testing.T) {
	a := newTestPool(newFakeLoader(), 42)
	b := newTestPool(newFakeLoader(), 42)

	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Spawn(0, 0, 1, t0).Folder, b.Spawn(0, 0, 1, t0).Folder)
	}
}

func TestPool_Expiry(t *testing.T) {
	tests := []struct {
		name    string
		offset  int
		present bool
		frame   int
	}{
		{"at start", 0, true, 0},
		{"end of first frame", 119, true, 0},
		{"second frame", 120, true, 1},
		{"last frame", 599, true, 4},
		{"expired at duration", 600, false, 0},
		{"long expired", 5000, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPool(newFakeLoader(), 1)
			part := p.Spawn(10, 20, 1, t0)

			sprites := p.Advance(ms(tt.offset))
			if !tt.present {
				assert.Empty(t, sprites)
				assert.Zero(t, p.Len())
				return
			}

			require.Len(t, sprites, 1)
			assert.Same(t, part.Frames[tt.frame], sprites[0].Frame)
			assert.Equal(t, tt.frame, p.FrameIndex(t0, ms(tt.offset)))
			assert.Equal(t, 1, p.Len())
		})
	}
}

func TestPool_AdvanceRemovesOnlyExpired(t *testing.T) {
	p := newTestPool(newFakeLoader(), 1)
	p.Spawn(1, 0, 1, ms(0))
	p.Spawn(2, 0, 1, ms(300))
	p.Spawn(3, 0, 1, ms(100))
	p.Spawn(4, 0, 1, ms(500))

	sprites := p.Advance(ms(750))

	xs := map[float64]bool{}
	for _, s := range sprites {
		xs[s.X] = true
	}
	assert.Equal(t, map[float64]bool{2: true, 4: true}, xs)
	assert.Equal(t, 2, p.Len())
}

func TestPool_MissingFrame(t *testing.T) {
	cfg := DefaultConfig("assets")
	cfg.Folders = []string{"smoke_1"}
	missing := cfg.FramePath("smoke_1", 0)
	p := NewPool(cfg, newFakeLoader(missing), rand.New(rand.NewSource(1)))

	p.Spawn(0, 0, 1, t0)

	assert.Empty(t, p.Advance(ms(50)), "missing frame is skipped")
	assert.Equal(t, 1, p.Len(), "particle keeps advancing")
	assert.Len(t, p.Advance(ms(150)), 1)
}

func TestPool_Draw(t *testing.T) {
	p := newTestPool(newFakeLoader(), 1)
	p.Spawn(300, 200, 1, t0)

	rec := render.NewRecorder(640, 480)
	p.Draw(rec, ms(10))

	images := rec.Images()
	require.Len(t, images, 1)
	assert.InDelta(t, 300-100*ScaleBoost/2, images[0].Transform.TX, 1e-9)
	assert.InDelta(t, 200-80*ScaleBoost/2, images[0].Transform.TY, 1e-9)
	assert.InDelta(t, ScaleBoost, images[0].Transform.Scale, 1e-12)
}

func TestPool_Reset(t *testing.T) {
	p := newTestPool(newFakeLoader(), 1)
	for i := 0; i < 6; i++ {
		p.Spawn(float64(i), 0, 1, t0)
	}
	require.Equal(t, 6, p.Len())

	p.Reset()

	assert.Zero(t, p.Len())
	assert.Empty(t, p.Advance(ms(10)))
}

func TestCachedLoader(t *testing.T) {
	inner := newFakeLoader("missing.png")
	l := NewCachedLoader(inner, 0)

	a, err := l.Load("a.png")
	require.NoError(t, err)
	b, err := l.Load("a.png")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = l.Load("missing.png")
	assert.True(t, errors.Is(err, ErrFrameUnavailable))
	_, err = l.Load("missing.png")
	assert.Error(t, err)

	assert.Equal(t, 1, inner.loads["a.png"])
	assert.Equal(t, 1, inner.loads["missing.png"])

	hits, misses := l.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(2), misses)
}

func TestCachedLoader_Preload(t *testing.T) {
	cfg := DefaultConfig("assets")
	inner := newFakeLoader(cfg.FramePath("smoke_2", 3))
	l := NewCachedLoader(inner, time.Minute)

	assert.Equal(t, 1, l.Preload(cfg))

	p := NewPool(cfg, l, rand.New(rand.NewSource(3)))
	p.Spawn(0, 0, 1, t0)
	for _, n := range inner.loads {
		assert.Equal(t, 1, n)
	}
}

type closableFrame struct {
	*image.RGBA
	closed bool
}

func (f *closableFrame) Close() error {
	f.closed = true
	return nil
}

type closableLoader struct {
	frames map[string]*closableFrame
}

func (l *closableLoader) Load(path string) (image.Image, error) {
	f := &closableFrame{RGBA: image.NewRGBA(image.Rect(0, 0, 4, 4))}
	l.frames[path] = f
	return f, nil
}

func TestCachedLoader_ClosesEvictedFrames(t *testing.T) {
	inner := &closableLoader{frames: map[string]*closableFrame{}}
	l := NewCachedLoader(inner, time.Minute)
	now := t0
	l.now = func() time.Time { return now }

	_, err := l.Load("a.png")
	require.NoError(t, err)
	l.cache.Delete("a.png")
	assert.Equal(t, 1, l.Retired())

	// Still inside the grace period: a particle may be drawing it.
	now = now.Add(30 * time.Second)
	_, err = l.Load("b.png")
	require.NoError(t, err)
	assert.False(t, inner.frames["a.png"].closed)

	now = now.Add(31 * time.Second)
	_, err = l.Load("c.png")
	require.NoError(t, err)
	assert.True(t, inner.frames["a.png"].closed)
	assert.Zero(t, l.Retired())

	l.Flush()
	assert.Equal(t, 2, l.Retired())
	now = now.Add(time.Minute)
	_, err = l.Load("d.png")
	require.NoError(t, err)
	assert.True(t, inner.frames["b.png"].closed)
	assert.True(t, inner.frames["c.png"].closed)
	assert.False(t, inner.frames["d.png"].closed)
}

// Package smoke manages the short-lived smoke puff sprites spawned when a clone appears.
package smoke

import (
	"image"
	"math/rand"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ayusman/kagebunshin/internal/logging"
	"github.com/ayusman/kagebunshin/internal/render"
)

// Defaults for the bundled smoke assets.
const (
	DefaultFrameCount = 5
	DefaultDuration   = 600 * time.Millisecond
	// ScaleBoost makes a puff slightly larger than the clone it announces.
	ScaleBoost = 1.2
)

// DefaultFolders are the bundled smoke styles.
var DefaultFolders = []string{"smoke_1", "smoke_2", "smoke_3"}

// Config describes the sprite sequences a Pool draws from.
type Config struct {
	// AssetsDir holds one directory per style.
	AssetsDir  string
	Folders    []string
	FrameCount int
	Duration   time.Duration
}

// DefaultConfig returns the bundled smoke configuration rooted at assetsDir.
func DefaultConfig(assetsDir string) Config {
	return Config{
		AssetsDir:  assetsDir,
		Folders:    append([]string(nil), DefaultFolders...),
		FrameCount: DefaultFrameCount,
		Duration:   DefaultDuration,
	}
}

// FramePath returns the path of frame i (0-based) of folder. Files are numbered from 1.
func (c Config) FramePath(folder string, i int) string {
	return filepath.Join(c.AssetsDir, folder, strconv.Itoa(i+1)+".png")
}

// Particle is one live smoke puff.
type Particle struct {
	X      float64
	Y      float64
	Scale  float64
	Start  time.Time
	Folder string
	// Frames may hold nil entries for frames that failed to load.
	Frames []image.Image
}

// Sprite is a particle frame ready to be drawn centered at (X, Y).
type Sprite struct {
	Frame image.Image
	X     float64
	Y     float64
	Scale float64
}

// Pool owns the live particles. It is not safe for concurrent use.
type Pool struct {
	cfg       Config
	loader    FrameLoader
	rng       *rand.Rand
	particles []Particle
}

// NewPool creates a Pool. A nil rng is seeded from the clock.
func NewPool(cfg Config, loader FrameLoader, rng *rand.Rand) *Pool {
	if cfg.FrameCount <= 0 {
		cfg.FrameCount = DefaultFrameCount
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if len(cfg.Folders) == 0 {
		cfg.Folders = append([]string(nil), DefaultFolders...)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Pool{cfg: cfg, loader: loader, rng: rng}
}

// Config returns the pool configuration.
func (p *Pool) Config() Config {
	return p.cfg
}

// Spawn adds a particle anchored at (x, y) using a randomly chosen style.
func (p *Pool) Spawn(x, y, scale float64, now time.Time) Particle {
	folder := p.cfg.Folders[p.rng.Intn(len(p.cfg.Folders))]

	frames := make([]image.Image, p.cfg.FrameCount)
	for i := range frames {
		path := p.cfg.FramePath(folder, i)
		img, err := p.loader.Load(path)
		if err != nil {
			logging.Debug(logging.Fields{"path": path, "error": err}, "smoke frame unavailable")
			continue
		}
		frames[i] = img
	}

	particle := Particle{
		X:      x,
		Y:      y,
		Scale:  scale * ScaleBoost,
		Start:  now,
		Folder: folder,
		Frames: frames,
	}
	p.particles = append(p.particles, particle)
	return particle
}

// FrameIndex returns the frame a particle started at start shows at now.
// A result of FrameCount or more means the particle has expired.
func (p *Pool) FrameIndex(start, now time.Time) int {
	elapsed := now.Sub(start)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed * time.Duration(p.cfg.FrameCount) / p.cfg.Duration)
}

// Advance drops expired particles and returns a sprite for every live particle
// whose current frame loaded. Order among sprites is not significant.
func (p *Pool) Advance(now time.Time) []Sprite {
	sprites := make([]Sprite, 0, len(p.particles))
	for i := len(p.particles) - 1; i >= 0; i-- {
		part := p.particles[i]
		idx := p.FrameIndex(part.Start, now)
		if idx >= p.cfg.FrameCount {
			last := len(p.particles) - 1
			p.particles[i] = p.particles[last]
			p.particles[last] = Particle{}
			p.particles = p.particles[:last]
			continue
		}
		frame := part.Frames[idx]
		if frame == nil {
			continue
		}
		sprites = append(sprites, Sprite{Frame: frame, X: part.X, Y: part.Y, Scale: part.Scale})
	}
	return sprites
}

// Draw advances the pool and draws every sprite centered on its anchor.
func (p *Pool) Draw(s render.Surface, now time.Time) {
	for _, sp := range p.Advance(now) {
		s.DrawImage(sp.Frame, render.Centered(render.Point{X: sp.X, Y: sp.Y}, sp.Frame.Bounds().Size(), sp.Scale))
	}
}

// Len returns the number of live particles.
func (p *Pool) Len() int {
	return len(p.particles)
}

// Particles returns a copy of the live particles.
func (p *Pool) Particles() []Particle {
	out := make([]Particle, len(p.particles))
	copy(out, p.particles)
	return out
}

// Reset drops every particle.
func (p *Pool) Reset() {
	for i := range p.particles {
		p.particles[i] = Particle{}
	}
	p.particles = p.particles[:0]
}

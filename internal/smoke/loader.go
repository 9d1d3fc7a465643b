package smoke

import (
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"gocv.io/x/gocv"

	"github.com/ayusman/kagebunshin/internal/render"
)

// ErrFrameUnavailable is returned for a frame that could not be decoded.
var ErrFrameUnavailable = errors.New("smoke frame unavailable")

// FrameLoader loads one sprite frame.
type FrameLoader interface {
	Load(path string) (image.Image, error)
}

// FileLoader decodes frames from disk, keeping their alpha channel.
type FileLoader struct{}

// Load implements FrameLoader.
func (FileLoader) Load(path string) (image.Image, error) {
	mat := gocv.IMRead(path, gocv.IMReadUnchanged)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%w: %s", ErrFrameUnavailable, path)
	}
	return render.NewMatImage(mat), nil
}

// CachedLoader memoizes another loader. Failures are cached too so a missing
// asset is looked up once.
//
// With a ttl, expired frames that can be closed (gocv backed ones) are retired
// rather than closed on eviction, since a live particle may still hold them.
// Load closes retired frames once they have been out of the cache for a full ttl
// (at least minRetireGrace).
// Call Load, and so Spawn, from the goroutine that draws the particles.
type CachedLoader struct {
	next  FrameLoader
	cache *cache.Cache
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	hits    int64
	misses  int64
	retired []retiredFrame
}

// minRetireGrace outlasts any particle so a retired frame is no longer drawn.
const minRetireGrace = 5 * time.Second

type retiredFrame struct {
	frame io.Closer
	at    time.Time
}

type cachedFrame struct {
	img image.Image
	err error
}

// NewCachedLoader wraps next. A ttl of zero keeps frames for the process lifetime.
func NewCachedLoader(next FrameLoader, ttl time.Duration) *CachedLoader {
	exp := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		exp = ttl
		cleanup = ttl * 2
	}
	l := &CachedLoader{
		next:  next,
		cache: cache.New(exp, cleanup),
		ttl:   ttl,
		now:   time.Now,
	}
	if ttl > 0 {
		l.cache.OnEvicted(l.retire)
	}
	return l
}

// Load implements FrameLoader.
func (l *CachedLoader) Load(path string) (image.Image, error) {
	l.reap()

	if v, found := l.cache.Get(path); found {
		l.count(true)
		f := v.(cachedFrame)
		return f.img, f.err
	}
	l.count(false)

	img, err := l.next.Load(path)
	l.cache.Set(path, cachedFrame{img: img, err: err}, cache.DefaultExpiration)
	return img, err
}

// retire is the cache eviction hook. It runs on the cache janitor goroutine.
func (l *CachedLoader) retire(_ string, v interface{}) {
	f, ok := v.(cachedFrame)
	if !ok {
		return
	}
	c, ok := f.img.(io.Closer)
	if !ok {
		return
	}
	l.mu.Lock()
	l.retired = append(l.retired, retiredFrame{frame: c, at: l.now()})
	l.mu.Unlock()
}

// reap closes retired frames that no particle can still be drawing.
func (l *CachedLoader) reap() {
	l.mu.Lock()
	if len(l.retired) == 0 {
		l.mu.Unlock()
		return
	}
	now := l.now()
	var due []io.Closer
	keep := l.retired[:0]
	for _, r := range l.retired {
		if now.Sub(r.at) >= max(l.ttl, minRetireGrace) {
			due = append(due, r.frame)
		} else {
			keep = append(keep, r)
		}
	}
	l.retired = keep
	l.mu.Unlock()

	for _, c := range due {
		_ = c.Close()
	}
}

// Retired returns how many evicted frames are waiting to be closed.
func (l *CachedLoader) Retired() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.retired)
}

func (l *CachedLoader) count(hit bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if hit {
		l.hits++
	} else {
		l.misses++
	}
}

// Stats returns cache hits and misses.
func (l *CachedLoader) Stats() (hits, misses int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hits, l.misses
}

// Preload loads every frame of every configured style so the first clone does not
// stall the frame loop. It returns the number of frames that failed.
func (l *CachedLoader) Preload(cfg Config) int {
	failed := 0
	for _, folder := range cfg.Folders {
		for i := 0; i < cfg.FrameCount; i++ {
			if _, err := l.Load(cfg.FramePath(folder, i)); err != nil {
				failed++
			}
		}
	}
	return failed
}

// Flush drops every cached frame. Closable frames are retired like evicted ones.
func (l *CachedLoader) Flush() {
	items := l.cache.Items()
	l.cache.Flush()
	for k, it := range items {
		l.retire(k, it.Object)
	}
}

package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// DefaultJPEGQuality is used when a FrameBuffer is created with quality 0.
const DefaultJPEGQuality = 80

// FrameBuffer holds the most recent composited frame as JPEG. Writers replace
// it once per frame; readers wait for a newer sequence number.
type FrameBuffer struct {
	quality int

	mu    sync.Mutex
	jpeg  []byte
	seq   uint64
	ready chan struct{}
}

// NewFrameBuffer creates an empty FrameBuffer encoding at quality (1-100).
func NewFrameBuffer(quality int) *FrameBuffer {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &FrameBuffer{quality: quality, ready: make(chan struct{})}
}

// Encode compresses m and publishes it.
func (b *FrameBuffer) Encode(m gocv.Mat) error {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, m, []int{gocv.IMWriteJpegQuality, b.quality})
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	b.Set(append([]byte(nil), buf.GetBytes()...))
	return nil
}

// Set publishes an already encoded JPEG.
func (b *FrameBuffer) Set(jpeg []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.jpeg = jpeg
	b.seq++
	close(b.ready)
	b.ready = make(chan struct{})
}

// Latest returns the current frame and its sequence number. seq is zero until
// the first frame arrives.
func (b *FrameBuffer) Latest() ([]byte, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.jpeg, b.seq
}

// Next blocks until a frame newer than after is available.
func (b *FrameBuffer) Next(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		b.mu.Lock()
		if b.seq > after {
			jpeg, seq := b.jpeg, b.seq
			b.mu.Unlock()
			return jpeg, seq, nil
		}
		ready := b.ready
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-ready:
		}
	}
}

// StreamHandler serves the composited output as MJPEG.
type StreamHandler struct {
	frames   *FrameBuffer
	interval time.Duration
}

// NewStreamHandler creates a StreamHandler limited to maxFPS frames per
// second. A non-positive maxFPS streams every frame.
func NewStreamHandler(frames *FrameBuffer, maxFPS int) *StreamHandler {
	h := &StreamHandler{frames: frames}
	if maxFPS > 0 {
		h.interval = time.Second / time.Duration(maxFPS)
	}
	return h
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	var seq uint64
	var last time.Time
	for {
		jpeg, next, err := h.frames.Next(ctx, seq)
		if err != nil {
			return
		}
		seq = next

		if h.interval > 0 {
			if wait := h.interval - time.Since(last); wait > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(wait):
				}
				// Skip to whatever is newest after the wait.
				jpeg, seq = h.frames.Latest()
			}
			last = time.Now()
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(jpeg))
		if _, err := w.Write(jpeg); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

// SnapshotHandler serves the latest frame as a single JPEG.
type SnapshotHandler struct {
	frames *FrameBuffer
}

// ServeHTTP implements the http.Handler interface.
func (h SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jpeg, seq := h.frames.Latest()
	if seq == 0 {
		http.Error(w, "No frame yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(jpeg)
}

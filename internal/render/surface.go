// Package render expresses frame drawing through a small set of surface primitives
// and composes the jutsu scene on top of them.
package render

import (
	"image"
	"image/color"
)

// Point is a position in output pixels.
type Point struct {
	X float64
	Y float64
}

// Transform places an image on the surface: source pixel (u, v) lands at
// (TX + Scale*u, TY + Scale*v).
type Transform struct {
	TX    float64
	TY    float64
	Scale float64
}

// Identity draws an image at the origin, unscaled.
func Identity() Transform {
	return Transform{Scale: 1}
}

// Centered returns the transform that draws an image of the given size centered at c.
func Centered(c Point, size image.Point, scale float64) Transform {
	return Transform{
		TX:    c.X - float64(size.X)*scale/2,
		TY:    c.Y - float64(size.Y)*scale/2,
		Scale: scale,
	}
}

// Stroke describes a path outline.
type Stroke struct {
	Color color.RGBA
	Width int
}

// TextStyle describes text drawn with SetText.
type TextStyle struct {
	Color     color.RGBA
	Scale     float64
	Thickness int
	// AlignRight anchors the text's right edge at the given point.
	AlignRight bool
}

// Surface is a 2D drawing target sized to the video frame.
type Surface interface {
	// Size returns the surface width and height in pixels.
	Size() (width, height int)
	// DrawImage composites img, honoring its alpha, under the transform.
	DrawImage(img image.Image, t Transform)
	// StrokePath draws connected line segments through points.
	StrokePath(points []Point, s Stroke)
	// FillCircle draws a filled disc.
	FillCircle(center Point, radius float64, c color.RGBA)
	// SetText draws a line of text with its baseline at the given point.
	SetText(text string, at Point, style TextStyle)
}

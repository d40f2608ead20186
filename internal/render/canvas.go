// SPDX-License-Identifier: MIT
package render

import (
	"fmt"
	"math"
)

// Point is a position in CSS pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Color is an opaque RGB color. Channels above 255 saturate when built with RGB.
type Color struct {
	R, G, B uint8
}

// RGB builds a color from integer channels, saturating each to 0..255.
func RGB(r, g, b int) Color {
	return Color{R: sat(r), G: sat(g), B: sat(b)}
}

func sat(v int) uint8 {
	return uint8(max(0, min(255, v)))
}

// String formats the color the way a 2D canvas fill style reads it.
func (c Color) String() string { return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B) }

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Palette used by the painters.
var (
	White     = Color{255, 255, 255}
	Black     = Color{0, 0, 0}
	Grid      = Color{224, 224, 224}
	Blue      = Color{33, 150, 243} // #2196f3
	SourceRed = Color{229, 57, 53}
)

// Canvas is the 2D drawing surface a painter draws on.
type Canvas interface {
	Size() (w, h float64) // CSS pixels.
	Clear(fill Color)
	FillRect(x, y, w, h float64, fill Color)
	StrokePath(points []Point, stroke Color, width float64)
	FillCircle(cx, cy, r float64, fill Color)
}

// Surface is a drawing rectangle in CSS pixels and its backing store in
// device pixels. The backing size is computed once, when the surface is made.
type Surface struct {
	CSSWidth   float64 `json:"css_width"`
	CSSHeight  float64 `json:"css_height"`
	PixelRatio float64 `json:"pixel_ratio"`
	Width      int     `json:"width"`  // Backing store, device pixels.
	Height     int     `json:"height"` // Backing store, device pixels.
}

// NewSurface sizes the backing store for a CSS rectangle at the given device
// pixel ratio. A non-positive ratio is treated as 1.
func NewSurface(cssWidth, cssHeight, pixelRatio float64) Surface {
	if pixelRatio <= 0 || math.IsNaN(pixelRatio) {
		pixelRatio = 1
	}
	return Surface{
		CSSWidth:   cssWidth,
		CSSHeight:  cssHeight,
		PixelRatio: pixelRatio,
		Width:      int(math.Round(cssWidth * pixelRatio)),
		Height:     int(math.Round(cssHeight * pixelRatio)),
	}
}

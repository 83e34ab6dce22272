// Package common holds plain value types and helpers shared by every engine package.
package common

import (
	"image/color"
)

// Color is a linear RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float32
}

// Predefined colors.
var (
	ColorBlack = Color{0, 0, 0, 1}
	ColorWhite = Color{1, 1, 1, 1}
)

// NRGBA converts c to an 8-bit non-premultiplied color, clamping each channel.
//
// Returns:
//   - color.NRGBA: the converted color
func (c Color) NRGBA() color.NRGBA {
	to8 := func(v float32) uint8 {
		return uint8(Clamp(v, 0, 1)*255 + 0.5)
	}
	return color.NRGBA{R: to8(c.R), G: to8(c.G), B: to8(c.B), A: to8(c.A)}
}

// Scale multiplies the RGB channels by f, leaving alpha untouched.
func (c Color) Scale(f float32) Color {
	return Color{c.R * f, c.G * f, c.B * f, c.A}
}

// Size is an integer pixel extent.
type Size struct {
	Width, Height int
}

// Aspect returns Width / Height, or 1 when Height is zero.
func (s Size) Aspect() float32 {
	if s.Height == 0 {
		return 1
	}
	return float32(s.Width) / float32(s.Height)
}

// Package paint draws serialized trees onto a Surface. The raster surface
// renders to an image with gg; other surfaces only need to implement the
// primitives below.
package paint

import "github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/style"

// Rect is an absolute rectangle on the surface
type Rect struct {
	X, Y, Width, Height float64
}

// TextStyle describes one text run
type TextStyle struct {
	Color  RGBA
	Size   float64
	Weight string
	Align  string
}

// Surface is a paint backend: fills, strokes, shadows and text runs over
// rounded rectangles.
type Surface interface {
	Clear(c RGBA)
	FillRoundedRect(r Rect, radius float64, c RGBA)
	StrokeRoundedRect(r Rect, radius float64, c RGBA, width float64)
	DropShadow(r Rect, radius float64, c RGBA, opacity float64, offset style.Offset)
	DrawText(text string, x, y, maxWidth float64, ts TextStyle)
	Present() error
}

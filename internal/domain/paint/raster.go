package paint

import (
	"fmt"
	"image"
	"io"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/style"
)

const lineSpacing = 1.2

var (
	fontsOnce sync.Once
	regular   *truetype.Font
	bold      *truetype.Font
	fontsErr  error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		if regular, fontsErr = truetype.Parse(goregular.TTF); fontsErr != nil {
			return
		}
		bold, fontsErr = truetype.Parse(gobold.TTF)
	})
	return fontsErr
}

type faceKey struct {
	size float64
	bold bool
}

// Raster is an in-memory image surface
type Raster struct {
	ctx    *gg.Context
	faces  map[faceKey]font.Face
	frames int
}

// NewRaster creates a width x height raster surface
func NewRaster(width, height int) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid raster size %dx%d", width, height)
	}
	if err := loadFonts(); err != nil {
		return nil, fmt.Errorf("failed to load fonts: %w", err)
	}
	return &Raster{ctx: gg.NewContext(width, height), faces: make(map[faceKey]font.Face)}, nil
}

func (r *Raster) set(c RGBA) {
	r.ctx.SetRGBA(c.R, c.G, c.B, c.A)
}

func (r *Raster) rect(rc Rect, radius float64) {
	if radius > 0 {
		radius = math.Min(radius, math.Min(rc.Width, rc.Height)/2)
		r.ctx.DrawRoundedRectangle(rc.X, rc.Y, rc.Width, rc.Height, radius)
		return
	}
	r.ctx.DrawRectangle(rc.X, rc.Y, rc.Width, rc.Height)
}

// Clear fills the whole surface
func (r *Raster) Clear(c RGBA) {
	r.set(c)
	r.ctx.Clear()
}

// FillRoundedRect fills a rectangle with rounded corners
func (r *Raster) FillRoundedRect(rc Rect, radius float64, c RGBA) {
	if rc.Width <= 0 || rc.Height <= 0 {
		return
	}
	r.set(c)
	r.rect(rc, radius)
	r.ctx.Fill()
}

// StrokeRoundedRect strokes the outline inside the rectangle
func (r *Raster) StrokeRoundedRect(rc Rect, radius float64, c RGBA, width float64) {
	if rc.Width <= 0 || rc.Height <= 0 || width <= 0 {
		return
	}
	inset := width / 2
	r.set(c)
	r.ctx.SetLineWidth(width)
	r.rect(Rect{X: rc.X + inset, Y: rc.Y + inset, Width: rc.Width - width, Height: rc.Height - width}, math.Max(radius-inset, 0))
	r.ctx.Stroke()
}

// DropShadow approximates a blurred shadow with stacked translucent rects
func (r *Raster) DropShadow(rc Rect, radius float64, c RGBA, opacity float64, offset style.Offset) {
	if rc.Width <= 0 || rc.Height <= 0 {
		return
	}
	base := Rect{X: rc.X + offset.Width, Y: rc.Y + offset.Height, Width: rc.Width, Height: rc.Height}
	steps := 4
	alpha := c.WithOpacity(opacity).A / float64(steps)
	for i := 0; i < steps; i++ {
		grow := float64(i)
		r.ctx.SetRGBA(c.R, c.G, c.B, alpha*(1-float64(i)/float64(steps)))
		r.rect(Rect{X: base.X - grow, Y: base.Y - grow, Width: base.Width + 2*grow, Height: base.Height + 2*grow}, radius+grow)
		r.ctx.Fill()
	}
}

// DrawText draws text with its top-left at (x, y), wrapped to maxWidth
func (r *Raster) DrawText(text string, x, y, maxWidth float64, ts TextStyle) {
	r.ctx.SetFontFace(r.face(ts.Size, isBold(ts.Weight)))
	r.set(ts.Color)

	align := gg.AlignLeft
	switch ts.Align {
	case "center":
		align = gg.AlignCenter
	case "right":
		align = gg.AlignRight
	}
	if maxWidth <= 0 {
		w, _ := r.ctx.MeasureString(text)
		maxWidth = w
	}
	r.ctx.DrawStringWrapped(text, x, y, 0, 0, maxWidth, lineSpacing, align)
}

// Present completes a frame
func (r *Raster) Present() error {
	r.frames++
	return nil
}

// Frames returns the number of presented frames
func (r *Raster) Frames() int {
	return r.frames
}

// Image returns the current frame
func (r *Raster) Image() image.Image {
	return r.ctx.Image()
}

// EncodePNG writes the current frame as PNG
func (r *Raster) EncodePNG(w io.Writer) error {
	return r.ctx.EncodePNG(w)
}

func (r *Raster) face(size float64, b bool) font.Face {
	key := faceKey{size: size, bold: b}
	if f, ok := r.faces[key]; ok {
		return f
	}
	ft := regular
	if b {
		ft = bold
	}
	f := truetype.NewFace(ft, &truetype.Options{Size: size})
	r.faces[key] = f
	return f
}

func isBold(weight string) bool {
	switch weight {
	case "bold", "600", "700", "800", "900":
		return true
	}
	return false
}

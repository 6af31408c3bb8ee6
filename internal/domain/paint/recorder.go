package paint

import (
	"fmt"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/style"
)

// Recorder is a Surface that records calls as readable operations. It backs
// trace output and tests.
type Recorder struct {
	Ops    []string
	Frames int
}

func (r *Recorder) add(format string, args ...any) {
	r.Ops = append(r.Ops, fmt.Sprintf(format, args...))
}

func (r *Recorder) Clear(c RGBA) {
	r.Ops = r.Ops[:0]
	r.add("clear %s", c.Hex())
}

func (r *Recorder) FillRoundedRect(rc Rect, radius float64, c RGBA) {
	r.add("fill %s r=%g %s", rectString(rc), radius, c.Hex())
}

func (r *Recorder) StrokeRoundedRect(rc Rect, radius float64, c RGBA, width float64) {
	r.add("stroke %s r=%g %s w=%g", rectString(rc), radius, c.Hex(), width)
}

func (r *Recorder) DropShadow(rc Rect, radius float64, c RGBA, opacity float64, offset style.Offset) {
	r.add("shadow %s r=%g %s o=%g d=%g,%g", rectString(rc), radius, c.Hex(), opacity, offset.Width, offset.Height)
}

func (r *Recorder) DrawText(text string, x, y, maxWidth float64, ts TextStyle) {
	r.add("text %q at %g,%g w=%g size=%g %s", text, x, y, maxWidth, ts.Size, ts.Color.Hex())
}

func (r *Recorder) Present() error {
	r.Frames++
	return nil
}

func rectString(rc Rect) string {
	return fmt.Sprintf("[%g,%g %gx%g]", rc.X, rc.Y, rc.Width, rc.Height)
}

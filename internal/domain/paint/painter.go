package paint

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/style"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/tree"
)

// Text defaults applied when a node declares none
const (
	DefaultFontSize  = 14.0
	DefaultTextColor = "#000000"
)

// Painter walks a serialized tree in paint order and issues surface calls.
// Boxes are parent-relative, so offsets accumulate during the walk.
type Painter struct {
	background RGBA
	textColor  RGBA
	logger     *zap.Logger
}

// NewPainter creates a painter that clears to background before each frame
func NewPainter(background string, logger *zap.Logger) (*Painter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bg, err := ParseColor(background)
	if err != nil {
		return nil, err
	}
	text, _ := ParseColor(DefaultTextColor)
	return &Painter{background: bg, textColor: text, logger: logger.Named("painter")}, nil
}

// Paint draws root onto s and presents the frame. A nil root presents an
// empty frame.
func (p *Painter) Paint(s Surface, root *tree.Serialized) error {
	s.Clear(p.background)
	p.node(s, root, 0, 0)
	return s.Present()
}

func (p *Painter) node(s Surface, n *tree.Serialized, offsetX, offsetY float64) {
	if n == nil {
		return
	}
	r := Rect{X: offsetX + n.Box.Left, Y: offsetY + n.Box.Top, Width: n.Box.Width, Height: n.Box.Height}
	st := n.Style

	if st.HasShadow() {
		if c, ok := p.color(n.ID, "shadowColor", st.ShadowColor); ok {
			s.DropShadow(r, st.BorderRadius, c, st.ShadowOpacity, st.ShadowOffset)
		}
	}
	if c, ok := p.color(n.ID, "backgroundColor", st.BackgroundColor); ok && c.Visible() {
		s.FillRoundedRect(r, st.BorderRadius, c)
	}
	if st.HasBorder() {
		c, ok := p.color(n.ID, "borderColor", st.BorderColor)
		if st.BorderColor == "" {
			c, ok = p.textColor, true
		}
		if ok && c.Visible() {
			s.StrokeRoundedRect(r, st.BorderRadius, c, st.BorderWidth)
		}
	}
	if n.Kind == tree.KindText && n.Text != "" {
		s.DrawText(n.Text, r.X, r.Y, r.Width, p.textStyle(n.ID, st))
	}

	for _, child := range n.Children {
		p.node(s, child, r.X, r.Y)
	}
}

func (p *Painter) textStyle(id string, st style.Paint) TextStyle {
	ts := TextStyle{Color: p.textColor, Size: st.FontSize, Weight: st.FontWeight, Align: st.TextAlign}
	if ts.Size <= 0 {
		ts.Size = DefaultFontSize
	}
	if st.Color != "" {
		if c, ok := p.color(id, "color", st.Color); ok {
			ts.Color = c
		}
	}
	return ts
}

// color parses a style color; invalid values are logged and skipped
func (p *Painter) color(id, key, value string) (RGBA, bool) {
	c, err := ParseColor(value)
	if err != nil {
		p.logger.Debug("ignoring color", zap.String("node", id), zap.String("key", key), zap.Error(err))
		return Transparent, false
	}
	return c, true
}

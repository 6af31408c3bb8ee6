package paint

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/tree"
)

// HTML exports serialized trees as static markup. Every node becomes an
// absolutely positioned div nested like the tree, so parent-relative boxes
// map onto CSS offsets unchanged. Output passes through a sanitizer that
// only admits the elements, data attributes and style properties emitted
// here.
type HTML struct {
	background RGBA
	textColor  RGBA
	policy     *bluemonday.Policy
	logger     *zap.Logger
}

// NewHTML creates an exporter whose viewport is filled with background
func NewHTML(background string, logger *zap.Logger) (*HTML, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bg, err := ParseColor(background)
	if err != nil {
		return nil, err
	}
	text, _ := ParseColor(DefaultTextColor)
	return &HTML{
		background: bg,
		textColor:  text,
		policy:     markupPolicy(),
		logger:     logger.Named("html"),
	}, nil
}

func markupPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("div")
	p.AllowDataAttributes()
	p.AllowStyles(
		"position", "left", "top", "width", "height", "box-sizing",
		"background-color", "border-radius", "border-style", "border-width", "border-color",
		"color", "font-size", "font-weight", "text-align",
	).OnElements("div")
	return p
}

const document = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body style="margin: 0">
<div data-viewport="true" style="position: relative; overflow: hidden; width: %s; height: %s; background-color: %s; font-family: sans-serif">%s</div>
</body>
</html>
`

// Render writes a complete document showing root in a width x height viewport
func (h *HTML) Render(w io.Writer, root *tree.Serialized, width, height float64, title string) error {
	body, err := h.Fragment(root)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, document, html.EscapeString(title), px(width), px(height), cssColor(h.background), body)
	return err
}

// Fragment returns the sanitized markup for root alone. A nil root yields
// an empty fragment.
func (h *HTML) Fragment(root *tree.Serialized) (string, error) {
	if root == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, h.element(root)); err != nil {
		return "", fmt.Errorf("failed to render markup: %w", err)
	}
	return h.policy.Sanitize(buf.String()), nil
}

func (h *HTML) element(n *tree.Serialized) *html.Node {
	el := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Div,
		Data:     atom.Div.String(),
		Attr: []html.Attribute{
			{Key: "data-id", Val: n.ID},
			{Key: "data-kind", Val: string(n.Kind)},
			{Key: "style", Val: h.style(n)},
		},
	}
	if n.HasPressHandler {
		el.Attr = append(el.Attr, html.Attribute{Key: "data-pressable", Val: "true"})
	}
	if n.Kind == tree.KindText && n.Text != "" {
		el.AppendChild(&html.Node{Type: html.TextNode, Data: n.Text})
	}
	for _, child := range n.Children {
		el.AppendChild(h.element(child))
	}
	return el
}

func (h *HTML) style(n *tree.Serialized) string {
	var decls []string
	decl := func(property, value string) {
		decls = append(decls, property+": "+value)
	}

	decl("position", "absolute")
	decl("box-sizing", "border-box")
	decl("left", px(n.Box.Left))
	decl("top", px(n.Box.Top))
	decl("width", px(n.Box.Width))
	decl("height", px(n.Box.Height))

	st := n.Style
	if c, ok := h.color(n.ID, st.BackgroundColor); ok && c.Visible() {
		decl("background-color", cssColor(c))
	}
	if st.BorderRadius > 0 {
		decl("border-radius", px(st.BorderRadius))
	}
	if st.HasBorder() {
		c, ok := h.color(n.ID, st.BorderColor)
		if st.BorderColor == "" {
			c, ok = h.textColor, true
		}
		if ok {
			decl("border-style", "solid")
			decl("border-width", px(st.BorderWidth))
			decl("border-color", cssColor(c))
		}
	}

	if n.Kind == tree.KindText {
		size := st.FontSize
		if size <= 0 {
			size = DefaultFontSize
		}
		decl("font-size", px(size))
		color := h.textColor
		if c, ok := h.color(n.ID, st.Color); ok && st.Color != "" {
			color = c
		}
		decl("color", cssColor(color))
		if st.FontWeight != "" {
			decl("font-weight", st.FontWeight)
		}
		if st.TextAlign != "" {
			decl("text-align", st.TextAlign)
		}
	}
	return strings.Join(decls, "; ")
}

func (h *HTML) color(id, value string) (RGBA, bool) {
	c, err := ParseColor(value)
	if err != nil {
		h.logger.Debug("ignoring color", zap.String("node", id), zap.Error(err))
		return Transparent, false
	}
	return c, true
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

func cssColor(c RGBA) string {
	if c.A >= 1 {
		return c.Hex()
	}
	r, g, b := c.RGB255()
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, strconv.FormatFloat(c.A, 'f', 3, 64))
}

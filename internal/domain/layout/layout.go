package layout

import (
	"math"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/style"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/tree"
)

// FallbackSize is used along an axis when a child declares no size, has no
// flex weight (main axis) and is not stretched (cross axis). It is an
// approximation, not a measurement.
const FallbackSize = 40.0

// Layout resolves the root against the container and arranges the whole
// tree in place. The root is placed at the origin.
func Layout(root *tree.Node, containerWidth, containerHeight float64) tree.Box {
	if root == nil {
		return tree.Box{}
	}
	s := &root.Style
	var w, h float64
	if s.FlexGrow > 0 {
		w, h = containerWidth, containerHeight
	} else {
		w = resolveOr(s.Width, containerWidth, containerWidth)
		h = resolveOr(s.Height, containerHeight, containerHeight)
	}
	root.Box = tree.Box{
		Width:  clamp(w, s.MinWidth, s.MaxWidth, containerWidth),
		Height: clamp(h, s.MinHeight, s.MaxHeight, containerHeight),
	}
	arrange(root)
	return root.Box
}

// axis maps main/cross to width/height for one container direction
type axis struct {
	row bool
}

func (a axis) mainDim(s *style.Style) (size, min, max style.Dimension) {
	if a.row {
		return s.Width, s.MinWidth, s.MaxWidth
	}
	return s.Height, s.MinHeight, s.MaxHeight
}

func (a axis) crossDim(s *style.Style) (size, min, max style.Dimension) {
	if a.row {
		return s.Height, s.MinHeight, s.MaxHeight
	}
	return s.Width, s.MinWidth, s.MaxWidth
}

func (a axis) mainMargins(e style.Edges) (lead, trail float64) {
	if a.row {
		return e.Left, e.Right
	}
	return e.Top, e.Bottom
}

func (a axis) crossMargins(e style.Edges) (lead, trail float64) {
	if a.row {
		return e.Top, e.Bottom
	}
	return e.Left, e.Right
}

// box builds a parent-relative box from main/cross coordinates
func (a axis) box(mainPos, crossPos, mainSize, crossSize float64) tree.Box {
	if a.row {
		return tree.Box{Left: mainPos, Top: crossPos, Width: mainSize, Height: crossSize}
	}
	return tree.Box{Left: crossPos, Top: mainPos, Width: crossSize, Height: mainSize}
}

// slot is the per-child sizing decision of one arrange pass
type slot struct {
	node       *tree.Node
	main       float64
	flexible   bool
	weight     float64
	leadMain   float64
	trailMain  float64
	leadCross  float64
	trailCross float64
}

// arrange lays out the children of a node whose own box size is final
func arrange(n *tree.Node) {
	if len(n.Children) == 0 || n.Kind == tree.KindText {
		return
	}

	s := &n.Style
	pad := s.Padding
	innerW := math.Max(0, n.Box.Width-pad.Horizontal())
	innerH := math.Max(0, n.Box.Height-pad.Vertical())

	ax := axis{row: s.Direction() == style.Row}
	mainSize, crossSize := innerH, innerW
	mainOrigin, crossOrigin := pad.Top, pad.Left
	if ax.row {
		mainSize, crossSize = innerW, innerH
		mainOrigin, crossOrigin = pad.Left, pad.Top
	}

	slots := make([]slot, 0, len(n.Children))
	// fixed sums literal and percentage sizes only; block also counts
	// fallback sizes and margins and feeds justification.
	var fixed, block, totalWeight float64
	for _, child := range n.Children {
		if child.Style.IsAbsolute() {
			continue
		}
		cs := &child.Style
		sl := slot{node: child}
		sl.leadMain, sl.trailMain = ax.mainMargins(cs.Margin)
		sl.leadCross, sl.trailCross = ax.crossMargins(cs.Margin)
		block += sl.leadMain + sl.trailMain

		size, min, max := ax.mainDim(cs)
		if v, ok := size.Resolve(mainSize); ok {
			sl.main = clamp(v, min, max, mainSize)
			fixed += sl.main
		} else if cs.FlexGrow > 0 {
			sl.flexible = true
			sl.weight = cs.FlexGrow
			totalWeight += cs.FlexGrow
		} else {
			sl.main = clamp(FallbackSize, min, max, mainSize)
			block += sl.main
		}
		slots = append(slots, sl)
	}

	remaining := math.Max(0, mainSize-fixed)
	var unit float64
	if totalWeight > 0 {
		unit = remaining / totalWeight
	}
	block += fixed
	for i := range slots {
		if !slots[i].flexible {
			continue
		}
		_, min, max := ax.mainDim(&slots[i].node.Style)
		slots[i].main = clamp(unit*slots[i].weight, min, max, mainSize)
		block += slots[i].main
	}

	start, gap := distribute(s.Justify(), math.Max(0, mainSize-block), len(slots))
	align := s.Align()

	cursor := start
	for _, sl := range slots {
		cs := &sl.node.Style
		cross := crossSizeOf(cs, align, crossSize, sl.leadCross+sl.trailCross, ax)

		var crossPos float64
		switch align {
		case style.AlignCenter:
			crossPos = math.Max(sl.leadCross, (crossSize-cross-sl.leadCross-sl.trailCross)/2+sl.leadCross)
		case style.AlignFlexEnd:
			// an oversized child overflows the trailing edge, never the leading one
			crossPos = math.Max(sl.leadCross, crossSize-cross-sl.trailCross)
		default:
			crossPos = sl.leadCross
		}

		sl.node.Box = ax.box(mainOrigin+cursor+sl.leadMain, crossOrigin+crossPos, sl.main, cross)
		arrange(sl.node)

		cursor += sl.leadMain + sl.main + sl.trailMain + gap
	}

	for _, child := range n.Children {
		if child.Style.IsAbsolute() {
			placeAbsolute(child, n.Box.Width, n.Box.Height, pad)
			arrange(child)
		}
	}
}

// crossSizeOf sizes a child along the cross axis. A declared size wins
// unless the child flex-grows (which fills its slot); otherwise stretch takes
// the parent's cross size and any other alignment falls back.
func crossSizeOf(cs *style.Style, align style.Align, crossSize, margins float64, ax axis) float64 {
	size, min, max := ax.crossDim(cs)
	if cs.FlexGrow <= 0 {
		if v, ok := size.Resolve(crossSize); ok {
			return clamp(v, min, max, crossSize)
		}
	}
	if align == style.AlignStretch {
		return clamp(crossSize-margins, min, max, crossSize)
	}
	return clamp(FallbackSize, min, max, crossSize)
}

// distribute returns the leading offset and inter-child gap for a
// justification mode given the leftover main-axis space.
func distribute(j style.Justify, leftover float64, count int) (start, gap float64) {
	if count == 0 {
		return 0, 0
	}
	switch j {
	case style.JustifyCenter:
		return leftover / 2, 0
	case style.JustifyFlexEnd:
		return leftover, 0
	case style.JustifySpaceBetween:
		if count < 2 {
			return 0, 0
		}
		return 0, leftover / float64(count-1)
	case style.JustifySpaceAround:
		gap = leftover / float64(count)
		return gap / 2, gap
	default:
		return 0, 0
	}
}

// placeAbsolute sizes and positions an out-of-flow child against the parent
// box. Offsets may be negative.
func placeAbsolute(n *tree.Node, parentW, parentH float64, pad style.Edges) {
	s := &n.Style
	o := s.Offsets

	w := absoluteLength(s.Width, o.Left, o.Right, parentW)
	h := absoluteLength(s.Height, o.Top, o.Bottom, parentH)
	if s.FlexGrow > 0 && s.Width.IsAuto() && s.Height.IsAuto() {
		w, h = parentW, parentH
	}
	w = clamp(w, s.MinWidth, s.MaxWidth, parentW)
	h = clamp(h, s.MinHeight, s.MaxHeight, parentH)

	left := pad.Left
	if v, ok := o.Left.Resolve(parentW); ok {
		left = v
	} else if v, ok := o.Right.Resolve(parentW); ok {
		left = parentW - v - w
	}
	top := pad.Top
	if v, ok := o.Top.Resolve(parentH); ok {
		top = v
	} else if v, ok := o.Bottom.Resolve(parentH); ok {
		top = parentH - v - h
	}

	n.Box = tree.Box{Left: left + s.Margin.Left, Top: top + s.Margin.Top, Width: w, Height: h}
}

// absoluteLength resolves a size from a declared dimension, or from both
// insets when the size is undeclared.
func absoluteLength(size, lead, trail style.Dimension, parent float64) float64 {
	if v, ok := size.Resolve(parent); ok {
		return v
	}
	l, lok := lead.Resolve(parent)
	t, tok := trail.Resolve(parent)
	if lok && tok {
		return parent - l - t
	}
	return FallbackSize
}

func resolveOr(d style.Dimension, container, fallback float64) float64 {
	if v, ok := d.Resolve(container); ok {
		return v
	}
	return fallback
}

// clamp applies max then min (min wins on conflict) and never returns a
// negative size.
func clamp(v float64, min, max style.Dimension, container float64) float64 {
	if m, ok := max.Resolve(container); ok && v > m {
		v = m
	}
	if m, ok := min.Resolve(container); ok && v < m {
		v = m
	}
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

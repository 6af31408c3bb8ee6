package style

// Direction is the main axis of a container
type Direction string

const (
	Column Direction = "column"
	Row    Direction = "row"
)

// Justify distributes children along the main axis
type Justify string

const (
	JustifyFlexStart    Justify = "flex-start"
	JustifyCenter       Justify = "center"
	JustifyFlexEnd      Justify = "flex-end"
	JustifySpaceBetween Justify = "space-between"
	JustifySpaceAround  Justify = "space-around"
)

// Align positions children along the cross axis
type Align string

const (
	AlignStretch   Align = "stretch"
	AlignFlexStart Align = "flex-start"
	AlignCenter    Align = "center"
	AlignFlexEnd   Align = "flex-end"
)

// Position selects in-flow or absolute placement
type Position string

const (
	PositionRelative Position = "relative"
	PositionAbsolute Position = "absolute"
)

// Edges holds per-edge spacing in points
type Edges struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// Horizontal returns left + right
func (e Edges) Horizontal() float64 { return e.Left + e.Right }

// Vertical returns top + bottom
func (e Edges) Vertical() float64 { return e.Top + e.Bottom }

// Offsets are the insets of an absolutely positioned node
type Offsets struct {
	Top    Dimension
	Right  Dimension
	Bottom Dimension
	Left   Dimension
}

// Offset is a two-dimensional displacement, used for shadows
type Offset struct {
	Width  float64 `json:"width" mapstructure:"width"`
	Height float64 `json:"height" mapstructure:"height"`
}

// Paint is the renderer-facing subset of a style. It is the only part of a
// style that crosses the execution boundary.
type Paint struct {
	BackgroundColor string  `json:"backgroundColor,omitempty"`
	BorderRadius    float64 `json:"borderRadius,omitempty"`
	BorderWidth     float64 `json:"borderWidth,omitempty"`
	BorderColor     string  `json:"borderColor,omitempty"`
	ShadowColor     string  `json:"shadowColor,omitempty"`
	ShadowOpacity   float64 `json:"shadowOpacity,omitempty"`
	ShadowRadius    float64 `json:"shadowRadius,omitempty"`
	ShadowOffset    Offset  `json:"shadowOffset"`
	Color           string  `json:"color,omitempty"`
	FontSize        float64 `json:"fontSize,omitempty"`
	FontWeight      string  `json:"fontWeight,omitempty"`
	TextAlign       string  `json:"textAlign,omitempty"`
}

// HasShadow reports whether a drop shadow should be painted
func (p Paint) HasShadow() bool {
	return p.ShadowColor != "" && p.ShadowOpacity > 0
}

// HasBorder reports whether a border stroke should be painted
func (p Paint) HasBorder() bool {
	return p.BorderWidth > 0
}

// Style is the decoded, typed form of a flattened style object.
// Zero values mean "not declared": auto dimensions, no spacing, column
// direction, flex-start justification, stretch alignment.
type Style struct {
	Width     Dimension
	Height    Dimension
	MinWidth  Dimension
	MinHeight Dimension
	MaxWidth  Dimension
	MaxHeight Dimension

	Padding Edges
	Margin  Edges

	FlexGrow       float64
	FlexDirection  Direction
	JustifyContent Justify
	AlignItems     Align
	Position       Position
	Offsets        Offsets

	Paint Paint
}

// Direction returns the effective main axis
func (s *Style) Direction() Direction {
	if s.FlexDirection == Row {
		return Row
	}
	return Column
}

// Justify returns the effective main-axis distribution
func (s *Style) Justify() Justify {
	switch s.JustifyContent {
	case JustifyCenter, JustifyFlexEnd, JustifySpaceBetween, JustifySpaceAround:
		return s.JustifyContent
	default:
		return JustifyFlexStart
	}
}

// Align returns the effective cross-axis alignment
func (s *Style) Align() Align {
	switch s.AlignItems {
	case AlignFlexStart, AlignCenter, AlignFlexEnd:
		return s.AlignItems
	default:
		return AlignStretch
	}
}

// IsAbsolute reports whether the node is taken out of the flow
func (s *Style) IsAbsolute() bool {
	return s.Position == PositionAbsolute
}

package style

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDimension(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    Dimension
		wantErr bool
	}{
		{name: "nil is auto", in: nil, want: Auto},
		{name: "float points", in: 12.5, want: Points(12.5)},
		{name: "int64 points", in: int64(40), want: Points(40)},
		{name: "percentage", in: "50%", want: Percent(50)},
		{name: "auto keyword", in: "auto", want: Auto},
		{name: "numeric string", in: "24", want: Points(24)},
		{name: "px suffix", in: "24px", want: Points(24)},
		{name: "garbage", in: "wide", wantErr: true},
		{name: "bad percentage", in: "x%", wantErr: true},
		{name: "bool", in: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDimension(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDimensionResolve(t *testing.T) {
	v, ok := Percent(25).Resolve(400)
	assert.True(t, ok)
	assert.Equal(t, 100.0, v)

	v, ok = Points(30).Resolve(400)
	assert.True(t, ok)
	assert.Equal(t, 30.0, v)

	_, ok = Auto.Resolve(400)
	assert.False(t, ok)
}

func TestParseLayoutKeys(t *testing.T) {
	s, err := Parse(map[string]any{
		"width":          int64(100),
		"height":         "50%",
		"minWidth":       float64(20),
		"maxHeight":      int64(300),
		"flexDirection":  "row",
		"justifyContent": "space-between",
		"alignItems":     "center",
		"flexGrow":       int64(2),
		"position":       "absolute",
		"top":            int64(-5),
		"left":           "10%",
		"unknownKey":     "ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, Points(100), s.Width)
	assert.Equal(t, Percent(50), s.Height)
	assert.Equal(t, Points(20), s.MinWidth)
	assert.Equal(t, Points(300), s.MaxHeight)
	assert.True(t, s.MaxWidth.IsAuto())
	assert.Equal(t, Row, s.Direction())
	assert.Equal(t, JustifySpaceBetween, s.Justify())
	assert.Equal(t, AlignCenter, s.Align())
	assert.Equal(t, 2.0, s.FlexGrow)
	assert.True(t, s.IsAbsolute())
	assert.Equal(t, Points(-5), s.Offsets.Top)
	assert.Equal(t, Percent(10), s.Offsets.Left)
}

func TestParseDefaults(t *testing.T) {
	s, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, Column, s.Direction())
	assert.Equal(t, JustifyFlexStart, s.Justify())
	assert.Equal(t, AlignStretch, s.Align())
	assert.False(t, s.IsAbsolute())
	assert.True(t, s.Width.IsAuto())
}

func TestParseEdgeShorthands(t *testing.T) {
	s, err := Parse(map[string]any{
		"padding":           int64(4),
		"paddingHorizontal": int64(8),
		"paddingTop":        int64(1),
		"marginVertical":    int64(6),
		"marginLeft":        float64(2),
	})
	require.NoError(t, err)

	assert.Equal(t, Edges{Top: 1, Right: 8, Bottom: 4, Left: 8}, s.Padding)
	assert.Equal(t, Edges{Top: 6, Right: 0, Bottom: 6, Left: 2}, s.Margin)
}

func TestParseFlexShorthand(t *testing.T) {
	s, err := Parse(map[string]any{"flex": int64(1)})
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.FlexGrow)

	s, err = Parse(map[string]any{"flex": int64(1), "flexGrow": int64(3)})
	require.NoError(t, err)
	assert.Equal(t, 3.0, s.FlexGrow)

	s, err = Parse(map[string]any{"flexGrow": int64(-1)})
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.FlexGrow)
}

func TestParsePaint(t *testing.T) {
	s, err := Parse(map[string]any{
		"backgroundColor": "#336699",
		"borderRadius":    int64(8),
		"borderWidth":     int64(1),
		"borderColor":     "red",
		"shadowColor":     "#000",
		"shadowRadius":    int64(4),
		"shadowOffset":    map[string]any{"width": int64(0), "height": int64(2)},
		"color":           "white",
		"fontSize":        int64(18),
		"fontWeight":      int64(700),
		"textAlign":       "center",
	})
	require.NoError(t, err)

	p := s.Paint
	assert.Equal(t, "#336699", p.BackgroundColor)
	assert.Equal(t, 8.0, p.BorderRadius)
	assert.True(t, p.HasBorder())
	assert.True(t, p.HasShadow(), "shadow color without opacity defaults to opaque")
	assert.Equal(t, Offset{Width: 0, Height: 2}, p.ShadowOffset)
	assert.Equal(t, "700", p.FontWeight)
	assert.Equal(t, 18.0, p.FontSize)
	assert.Equal(t, "center", p.TextAlign)
}

func TestParseKeepsValidKeysOnError(t *testing.T) {
	s, err := Parse(map[string]any{
		"width":           "very wide",
		"height":          int64(10),
		"backgroundColor": "blue",
	})
	assert.Error(t, err)
	assert.Equal(t, Points(10), s.Height)
	assert.Equal(t, "blue", s.Paint.BackgroundColor)
}

func TestFlatten(t *testing.T) {
	base := map[string]any{"width": int64(10), "color": "red"}
	override := map[string]any{"color": "blue"}

	got := Flatten([]any{base, nil, false, []any{override, map[string]any{"height": int64(5)}}})

	assert.Equal(t, map[string]any{
		"width":  int64(10),
		"color":  "blue",
		"height": int64(5),
	}, got)
	assert.Empty(t, Flatten(nil))
	assert.Equal(t, "red", base["color"], "inputs are not mutated")
}

package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/tree"
)

func TestLayoutAlignItems(t *testing.T) {
	tests := []struct {
		align     string
		childW    any
		wantLeft  float64
		wantWidth float64
	}{
		{align: "stretch", childW: nil, wantLeft: 0, wantWidth: 200},
		{align: "stretch", childW: 100, wantLeft: 0, wantWidth: 100},
		{align: "flex-start", childW: nil, wantLeft: 0, wantWidth: FallbackSize},
		{align: "center", childW: nil, wantLeft: 80, wantWidth: FallbackSize},
		{align: "center", childW: 100, wantLeft: 50, wantWidth: 100},
		{align: "flex-end", childW: 100, wantLeft: 100, wantWidth: 100},
	}

	for _, tt := range tests {
		t.Run(tt.align, func(t *testing.T) {
			childStyle := map[string]any{"height": 20}
			if tt.childW != nil {
				childStyle["width"] = tt.childW
			}
			child := view(t, childStyle)
			root := view(t, map[string]any{"alignItems": tt.align, "width": 200, "height": 100}, child)

			Layout(root, 200, 100)

			assert.Equal(t, tt.wantLeft, child.Box.Left)
			assert.Equal(t, tt.wantWidth, child.Box.Width)
		})
	}
}

func TestLayoutRowCrossAxisIsVertical(t *testing.T) {
	child := view(t, map[string]any{"width": 30, "height": 20})
	root := view(t, map[string]any{
		"flexDirection": "row",
		"alignItems":    "flex-end",
		"width":         100,
		"height":        100,
	}, child)

	Layout(root, 100, 100)

	assert.Equal(t, 80.0, child.Box.Top)
	assert.Equal(t, 0.0, child.Box.Left)
}

func TestLayoutFlexGrowChildIgnoresDeclaredCrossSize(t *testing.T) {
	child := view(t, map[string]any{"flexGrow": 1, "width": 10})
	root := view(t, map[string]any{"width": 200, "height": 100}, child)

	Layout(root, 200, 100)

	assert.Equal(t, 200.0, child.Box.Width)
	assert.Equal(t, 100.0, child.Box.Height)
}

func TestLayoutNestedPositionsAreParentRelative(t *testing.T) {
	leaf := view(t, map[string]any{"width": 10, "height": 10})
	inner := view(t, map[string]any{"padding": 5, "height": 50}, leaf)
	root := view(t, map[string]any{"padding": 20}, inner)

	Layout(root, 200, 200)

	assert.Equal(t, 20.0, inner.Box.Left)
	assert.Equal(t, 20.0, inner.Box.Top)
	assert.Equal(t, 5.0, leaf.Box.Left, "child box is relative to its parent, not the root")
	assert.Equal(t, 5.0, leaf.Box.Top)
}

func TestLayoutOversizedChildStaysAtLeadingEdge(t *testing.T) {
	for _, align := range []string{"center", "flex-end"} {
		t.Run(align, func(t *testing.T) {
			wide := view(t, map[string]any{"width": 200, "height": 10, "marginLeft": 4})
			root := view(t, map[string]any{"width": 100, "height": 100, "alignItems": align}, wide)

			Layout(root, 100, 100)

			assert.Equal(t, tree.Box{Left: 4, Top: 0, Width: 200, Height: 10}, wide.Box)
		})
	}
}

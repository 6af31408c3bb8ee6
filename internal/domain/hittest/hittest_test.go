package hittest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/tree"
)

func node(id string, box tree.Box, press bool, children ...*tree.Serialized) *tree.Serialized {
	return &tree.Serialized{ID: id, Kind: tree.KindView, Box: box, HasPressHandler: press, Children: children}
}

func TestResolve(t *testing.T) {
	// root (0,0,300,300)
	//   card (50,50,200,200) pressable
	//     label (10,10,100,20)
	//     a (0,100,100,100) pressable
	//     b (50,150,100,100) not pressable, drawn after a
	//   overlay (-10,-10,20,20) pressable
	root := node("root", tree.Box{Width: 300, Height: 300}, false,
		node("card", tree.Box{Left: 50, Top: 50, Width: 200, Height: 200}, true,
			node("label", tree.Box{Left: 10, Top: 10, Width: 100, Height: 20}, false),
			node("a", tree.Box{Left: 0, Top: 100, Width: 100, Height: 100}, true),
			node("b", tree.Box{Left: 50, Top: 150, Width: 100, Height: 100}, false),
		),
		node("overlay", tree.Box{Left: -10, Top: -10, Width: 20, Height: 20}, true),
	)

	tests := []struct {
		name   string
		point  Point
		wantID string
		wantOK bool
	}{
		{name: "outside every box", point: Point{X: 400, Y: 400}, wantOK: false},
		{name: "negative coordinates outside", point: Point{X: -50, Y: -50}, wantOK: false},
		{name: "root without handler", point: Point{X: 280, Y: 10}, wantOK: false},
		{name: "label bubbles to card", point: Point{X: 65, Y: 65}, wantID: "card", wantOK: true},
		{name: "direct pressable child", point: Point{X: 60, Y: 160}, wantID: "a", wantOK: true},
		{name: "topmost sibling decides", point: Point{X: 120, Y: 210}, wantID: "card", wantOK: true},
		{name: "overlay wins over root", point: Point{X: 5, Y: 5}, wantID: "overlay", wantOK: true},
		{name: "left edge inclusive", point: Point{X: 50, Y: 50}, wantID: "card", wantOK: true},
		{name: "right edge exclusive", point: Point{X: 250, Y: 60}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := Resolve(root, tt.point)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestResolveOverlappingSiblings(t *testing.T) {
	root := node("root", tree.Box{Width: 100, Height: 100}, false,
		node("under", tree.Box{Width: 100, Height: 100}, true),
		node("over", tree.Box{Left: 25, Top: 25, Width: 50, Height: 50}, true),
	)

	id, ok := Resolve(root, Point{X: 50, Y: 50})
	assert.True(t, ok)
	assert.Equal(t, "over", id)

	id, ok = Resolve(root, Point{X: 10, Y: 10})
	assert.True(t, ok)
	assert.Equal(t, "under", id)
}

func TestResolveNilTree(t *testing.T) {
	id, ok := Resolve(nil, Point{})
	assert.False(t, ok)
	assert.Empty(t, id)
}

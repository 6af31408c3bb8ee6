// Package tree defines the node model shared by the builder, the layout
// engine, serialization and hit-testing.
package tree

import (
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/style"
)

// Kind is the node type. Only two kinds exist; every recognized virtual
// element maps onto one of them.
type Kind string

const (
	KindView Kind = "View"
	KindText Kind = "Text"
)

// Box is a computed rectangle in parent-relative coordinates
type Box struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether the point lies inside the box translated by
// (offsetX, offsetY). Left and top edges are inclusive, right and bottom exclusive.
func (b Box) Contains(offsetX, offsetY, x, y float64) bool {
	left := offsetX + b.Left
	top := offsetY + b.Top
	return x >= left && x < left+b.Width && y >= top && y < top+b.Height
}

// Node is one element of the tree. Children are owned; there are no parent
// links. Box is zero until layout runs.
type Node struct {
	ID              string
	Kind            Kind
	Style           style.Style
	Text            string
	Children        []*Node
	HasPressHandler bool
	Box             Box
}

// NewView creates a View node
func NewView(id string, s style.Style, children ...*Node) *Node {
	return &Node{ID: id, Kind: KindView, Style: s, Children: children}
}

// NewText creates a Text node. Text nodes never carry children.
func NewText(id string, s style.Style, text string) *Node {
	return &Node{ID: id, Kind: KindText, Style: s, Text: text}
}

// Walk visits n and its descendants depth-first in paint order
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// Count returns the number of nodes in the subtree rooted at n
func (n *Node) Count() int {
	count := 0
	n.Walk(func(*Node) { count++ })
	return count
}

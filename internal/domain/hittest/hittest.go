// Package hittest resolves a point on the rendered surface to the node
// that should receive the input.
package hittest

import (
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/tree"
)

// Point is a position in surface coordinates
type Point struct {
	X float64
	Y float64
}

// Resolve returns the identifier of the press-flagged node under p. Children
// are tested topmost first; the first child containing the point decides for
// its subtree, and the node itself only claims the hit when no child does and
// it carries a press handler.
func Resolve(root *tree.Serialized, p Point) (string, bool) {
	id, _ := hit(root, 0, 0, p)
	return id, id != ""
}

// hit reports the resolved id (possibly empty) and whether p lies inside n
func hit(n *tree.Serialized, offsetX, offsetY float64, p Point) (string, bool) {
	if n == nil || !n.Box.Contains(offsetX, offsetY, p.X, p.Y) {
		return "", false
	}
	left := offsetX + n.Box.Left
	top := offsetY + n.Box.Top

	for i := len(n.Children) - 1; i >= 0; i-- {
		id, inside := hit(n.Children[i], left, top, p)
		if !inside {
			continue
		}
		if id != "" {
			return id, true
		}
		break
	}

	if n.HasPressHandler {
		return n.ID, true
	}
	return "", true
}

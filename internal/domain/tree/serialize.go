package tree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/style"
)

// Serialized is the boundary-safe snapshot of a laid-out node. It carries
// no closures: the press handler is reduced to a flag and the node is
// addressed by ID. Boxes stay parent-relative, so receivers accumulate
// offsets while traversing.
type Serialized struct {
	ID              string        `json:"id"`
	Kind            Kind          `json:"kind"`
	Text            string        `json:"text,omitempty"`
	Style           style.Paint   `json:"style"`
	Box             Box           `json:"box"`
	HasPressHandler bool          `json:"hasPressHandler"`
	Children        []*Serialized `json:"children,omitempty"`
}

// Serialize snapshots a laid-out tree
func Serialize(n *Node) *Serialized {
	if n == nil {
		return nil
	}
	out := &Serialized{
		ID:              n.ID,
		Kind:            n.Kind,
		Text:            n.Text,
		Style:           n.Style.Paint,
		Box:             n.Box,
		HasPressHandler: n.HasPressHandler,
	}
	if len(n.Children) > 0 {
		out.Children = make([]*Serialized, 0, len(n.Children))
		for _, child := range n.Children {
			out.Children = append(out.Children, Serialize(child))
		}
	}
	return out
}

// Count returns the number of nodes in the tree
func (s *Serialized) Count() int {
	if s == nil {
		return 0
	}
	n := 1
	for _, child := range s.Children {
		n += child.Count()
	}
	return n
}

// Find returns the node with the given id, or nil
func (s *Serialized) Find(id string) *Serialized {
	if s == nil {
		return nil
	}
	if s.ID == id {
		return s
	}
	for _, child := range s.Children {
		if found := child.Find(id); found != nil {
			return found
		}
	}
	return nil
}

// AbsoluteBox returns the screen-space box of the node with the given id by
// accumulating parent offsets along the path.
func (s *Serialized) AbsoluteBox(id string) (Box, bool) {
	return s.absoluteBox(id, 0, 0)
}

func (s *Serialized) absoluteBox(id string, offsetX, offsetY float64) (Box, bool) {
	if s == nil {
		return Box{}, false
	}
	left := offsetX + s.Box.Left
	top := offsetY + s.Box.Top
	if s.ID == id {
		return Box{Left: left, Top: top, Width: s.Box.Width, Height: s.Box.Height}, true
	}
	for _, child := range s.Children {
		if b, ok := child.absoluteBox(id, left, top); ok {
			return b, true
		}
	}
	return Box{}, false
}

// IDAllocator hands out node identifiers of the form "<generation>:<sequence>".
// Reset starts a new generation, so identifiers from a superseded tree never
// collide with identifiers of the current one.
type IDAllocator struct {
	generation uint64
	next       uint64
}

// Reset begins a new generation with the sequence at zero
func (a *IDAllocator) Reset() {
	a.generation++
	a.next = 0
}

// Next returns the next identifier of the current generation
func (a *IDAllocator) Next() string {
	id := strconv.FormatUint(a.generation, 10) + ":" + strconv.FormatUint(a.next, 10)
	a.next++
	return id
}

// Generation returns the current generation number
func (a *IDAllocator) Generation() uint64 {
	return a.generation
}

// ParseID splits an identifier into generation and sequence
func ParseID(id string) (generation, sequence uint64, err error) {
	gen, seq, ok := strings.Cut(id, ":")
	if !ok {
		return 0, 0, fmt.Errorf("malformed node id %q", id)
	}
	if generation, err = strconv.ParseUint(gen, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("malformed node id %q: %w", id, err)
	}
	if sequence, err = strconv.ParseUint(seq, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("malformed node id %q: %w", id, err)
	}
	return generation, sequence, nil
}

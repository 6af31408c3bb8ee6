package builder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/state"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/style"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/tree"
)

// PressProp is the prop carrying a press callback
const PressProp = "onPress"

// Builder converts virtual elements into nodes. A Builder belongs to one
// execution host and is not safe for concurrent passes.
type Builder struct {
	state    *state.Engine
	ids      tree.IDAllocator
	handlers map[string]Handler
	warnings []string
}

// New creates a builder backed by a state engine
func New(st *state.Engine) *Builder {
	return &Builder{
		state:    st,
		handlers: make(map[string]Handler),
	}
}

// Reset starts a new identifier generation and clears the handler table
// and the collected warnings.
func (b *Builder) Reset() {
	b.ids.Reset()
	b.handlers = make(map[string]Handler)
	b.warnings = nil
}

// Build renders v into a node tree in one depth-first sweep. A nil root
// with a nil error means nothing buildable was produced.
func (b *Builder) Build(v any) (*tree.Node, error) {
	b.state.BeginPass()
	root, err := b.build(v, "root")
	if err != nil {
		b.state.AbortPass()
		return nil, err
	}
	b.state.EndPass()
	return root, nil
}

// Handler returns the press callback registered for a node identifier
func (b *Builder) Handler(id string) (Handler, bool) {
	h, ok := b.handlers[id]
	return h, ok
}

// HandlerCount returns the size of the handler table
func (b *Builder) HandlerCount() int {
	return len(b.handlers)
}

// Warnings returns the diagnostics collected since the last Reset
func (b *Builder) Warnings() []string {
	return b.warnings
}

// Generation returns the identifier generation of the current tree
func (b *Builder) Generation() uint64 {
	return b.ids.Generation()
}

func (b *Builder) warn(format string, args ...any) {
	b.warnings = append(b.warnings, fmt.Sprintf(format, args...))
}

func (b *Builder) build(v any, path string) (*tree.Node, error) {
	switch x := v.(type) {
	case nil, bool:
		return nil, nil
	case *Element:
		if x == nil {
			return nil, nil
		}
		return b.element(x, path)
	case []any:
		// A bare array renders like a fragment.
		n := tree.NewView(b.ids.Next(), style.Style{})
		if err := b.children(n, x, path); err != nil {
			return nil, err
		}
		return n, nil
	default:
		if s, ok := textOf(v); ok {
			return tree.NewText(b.ids.Next(), style.Style{}, s), nil
		}
		b.warn("unsupported value of type %T dropped", v)
		return nil, nil
	}
}

func (b *Builder) element(e *Element, path string) (*tree.Node, error) {
	if e.Component != nil {
		key := path + ":" + e.Name()
		b.state.Enter(key)
		out, err := e.Component.Render()
		b.state.Exit()
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", e.Name(), err)
		}
		return b.build(out, key)
	}

	switch {
	case e.Type == TypeText:
		return b.text(e), nil
	case IsView(e.Type):
		return b.view(e, path)
	default:
		b.warn("unsupported element <%s> dropped", e.Type)
		return nil, nil
	}
}

func (b *Builder) view(e *Element, path string) (*tree.Node, error) {
	var s style.Style
	if e.Type != TypeFragment {
		s = b.style(e)
	}
	n := tree.NewView(b.ids.Next(), s)

	if h, ok := e.Props[PressProp].(Handler); ok && h != nil && e.Type != TypeFragment {
		n.HasPressHandler = true
		b.handlers[n.ID] = h
	}

	if err := b.children(n, e.Children, path); err != nil {
		return nil, err
	}
	return n, nil
}

func (b *Builder) children(parent *tree.Node, children []any, path string) error {
	for i, child := range children {
		childPath := path + "/" + segment(child, i)
		if nested, ok := child.([]any); ok {
			if err := b.children(parent, nested, childPath); err != nil {
				return err
			}
			continue
		}
		n, err := b.build(child, childPath)
		if err != nil {
			return err
		}
		if n != nil {
			parent.Children = append(parent.Children, n)
		}
	}
	return nil
}

// text collapses string and number children, including nested Text
// elements, into the text field of one Text node.
func (b *Builder) text(e *Element) *tree.Node {
	if _, ok := e.Props[PressProp]; ok {
		b.warn("%s on <Text> is ignored; wrap it in a pressable element", PressProp)
	}
	n := tree.NewText(b.ids.Next(), b.style(e), "")
	var sb strings.Builder
	b.collectText(&sb, e.Children)
	n.Text = sb.String()
	return n
}

func (b *Builder) collectText(sb *strings.Builder, children []any) {
	for _, child := range children {
		switch x := child.(type) {
		case nil, bool:
		case []any:
			b.collectText(sb, x)
		case *Element:
			if x.Component == nil && x.Type == TypeText {
				b.collectText(sb, x.Children)
				continue
			}
			b.warn("<%s> inside <Text> dropped", x.Name())
		default:
			if s, ok := textOf(child); ok {
				sb.WriteString(s)
				continue
			}
			b.warn("unsupported value of type %T inside <Text> dropped", child)
		}
	}
}

func (b *Builder) style(e *Element) style.Style {
	raw, ok := e.Props["style"]
	if !ok || raw == nil {
		return style.Style{}
	}
	s, err := style.Parse(style.Flatten(raw))
	if err != nil {
		b.warn("<%s>: %v", e.Type, err)
	}
	return s
}

// segment names a child position; keyed elements keep their slot when
// siblings are inserted before them.
func segment(child any, index int) string {
	if e, ok := child.(*Element); ok && e != nil && e.Key != "" {
		return "k" + e.Key
	}
	return strconv.Itoa(index)
}

func textOf(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case int:
		return strconv.Itoa(x), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	default:
		return "", false
	}
}

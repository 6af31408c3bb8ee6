// Package builder turns virtual elements into the node tree.
//
// A build is one execution pass: function components are rendered as they
// are reached in a single depth-first sweep, each inside its own state
// instance. Press callbacks are kept in a table keyed by node identifier;
// nodes only carry a flag.
package builder

// Intrinsic element types understood by the builder
const (
	TypeView               = "View"
	TypeText               = "Text"
	TypeFragment           = "Fragment"
	TypePressable          = "Pressable"
	TypeTouchableOpacity   = "TouchableOpacity"
	TypeTouchableHighlight = "TouchableHighlight"
	TypeSafeAreaView       = "SafeAreaView"
	TypeScrollView         = "ScrollView"
)

// viewTypes map onto View nodes
var viewTypes = map[string]bool{
	TypeView:               true,
	TypeFragment:           true,
	TypePressable:          true,
	TypeTouchableOpacity:   true,
	TypeTouchableHighlight: true,
	TypeSafeAreaView:       true,
	TypeScrollView:         true,
}

// Handler is a press callback retained on the host side
type Handler func() error

// Component is a function component. Render evaluates it with the props it
// was created with.
type Component struct {
	Name   string
	Render func() (any, error)
}

// Element is a virtual element: either an intrinsic Type or a Component.
// Children hold nested elements, strings, numbers or nested slices.
type Element struct {
	Type      string
	Component *Component
	Key       string
	Props     map[string]any
	Children  []any
}

// Name returns the element type or the component name
func (e *Element) Name() string {
	if e.Component != nil {
		if e.Component.Name == "" {
			return "Anonymous"
		}
		return e.Component.Name
	}
	return e.Type
}

// IsView reports whether the intrinsic type builds a View node
func IsView(t string) bool {
	return viewTypes[t]
}

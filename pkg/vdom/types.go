package vdom

// VKind represents the type of virtual node
type VKind uint8

const (
	// KindElement represents an element node
	KindElement VKind = iota
	// KindText represents a text node
	KindText
	// KindFragment groups children without a parent element
	KindFragment
)

// Props holds the attributes of an element node.
// Keys starting with "on" are event handlers and "ref" receives the host node;
// neither is rendered as an attribute.
type Props map[string]any

// VNode is an immutable node of a rendered tree.
type VNode struct {
	Kind  VKind
	Tag   string
	Props Props
	Kids  []VNode
	Text  string
}

// NewElement creates an element node. Nil children are skipped.
func NewElement(tag string, props Props, children ...*VNode) *VNode {
	return &VNode{
		Kind:  KindElement,
		Tag:   tag,
		Props: props,
		Kids:  collect(children),
	}
}

// NewText creates a text node
func NewText(text string) *VNode {
	return &VNode{Kind: KindText, Text: text}
}

// NewFragment creates a fragment. Nil children are skipped.
func NewFragment(children ...*VNode) *VNode {
	return &VNode{Kind: KindFragment, Kids: collect(children)}
}

func collect(children []*VNode) []VNode {
	kids := make([]VNode, 0, len(children))
	for _, child := range children {
		if child != nil {
			kids = append(kids, *child)
		}
	}
	return kids
}

// Attr returns a string attribute, or "" when it is missing
func (v VNode) Attr(name string) string {
	if s, ok := v.Props[name].(string); ok {
		return s
	}
	return ""
}

// Find returns the first node in depth-first order whose class attribute
// equals class.
func (v *VNode) Find(class string) *VNode {
	if v == nil {
		return nil
	}
	if v.Kind == KindElement && v.Attr("class") == class {
		return v
	}
	for i := range v.Kids {
		if found := v.Kids[i].Find(class); found != nil {
			return found
		}
	}
	return nil
}

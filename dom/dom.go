// Package dom defines the read-only document model the snapshot engine
// queries. A Tree is an immutable capture of the visible document taken at
// one point in time: node structure, attributes, computed visibility, and
// document-relative geometry. Captures are built fresh per request and never
// retain live browser handles, so a tree can outlive the page that produced
// it without stale-handle hazards.
//
// Concrete captures come from rodom (live Chrome via Rod) or from test
// builders; consumers (scan, layout) only see this package.
package dom

import "strings"

// Box is a document-relative bounding rectangle, scroll offset included.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Area returns the rectangle area, zero for degenerate boxes.
func (b Box) Area() float64 {
	if b.W <= 0 || b.H <= 0 {
		return 0
	}
	return b.W * b.H
}

// Kind distinguishes element nodes from text nodes.
type Kind int

const (
	Element Kind = iota
	Text
)

// Node is one node of a captured document. Element nodes carry tag,
// attributes, and computed style; text nodes carry their character data.
// Geometry is the rendered bounding box at capture time.
type Node struct {
	Kind Kind

	// Element fields.
	Tag        string // lowercase tag name
	Attrs      map[string]string
	Display    string // computed display ("none" = not rendered)
	Visibility string // computed visibility ("visible", "hidden", "collapse")
	Position   string // computed position ("static", "fixed", "absolute", ...)
	Disabled   bool
	Inert      bool
	Value      string // current value for form controls

	// Text node content.
	Text string

	// Handle is an opaque reference (XPath) to the source element, carried
	// so an action layer can target the element after the capture. Valid
	// only while the page has not mutated.
	Handle string

	Box      Box
	Children []*Node

	parent *Node
}

// Attr returns the attribute value, or "" when absent.
func (n *Node) Attr(name string) string {
	if n.Attrs == nil {
		return ""
	}
	return n.Attrs[name]
}

// HasAttr reports whether the attribute is present, even if empty.
func (n *Node) HasAttr(name string) bool {
	if n.Attrs == nil {
		return false
	}
	_, ok := n.Attrs[name]
	return ok
}

// Role returns the explicit ARIA role attribute, or "".
func (n *Node) Role() string {
	return strings.TrimSpace(n.Attr("role"))
}

// AriaHidden reports whether the element is marked hidden from assistive
// technology.
func (n *Node) AriaHidden() bool {
	return n.Attr("aria-hidden") == "true"
}

// Displayed reports whether the element has a rendering box at all.
func (n *Node) Displayed() bool {
	return n.Display != "none"
}

// VisibleStyle reports whether computed visibility keeps the element visible.
func (n *Node) VisibleStyle() bool {
	return n.Visibility != "hidden" && n.Visibility != "collapse"
}

// Overlay reports whether the element is taken out of normal flow
// (position fixed or absolute). Overlay subtrees are floating UI chrome
// from the linearizer's point of view.
func (n *Node) Overlay() bool {
	return n.Position == "fixed" || n.Position == "absolute"
}

// Parent returns the parent node, nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// OwnText returns the element's direct text content: its immediate child
// text nodes joined with single spaces, trimmed. Descendant element text is
// not included.
func (n *Node) OwnText() string {
	var parts []string
	for _, c := range n.Children {
		if c.Kind != Text {
			continue
		}
		if t := strings.TrimSpace(c.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// TextContent returns all text in the subtree, document order, space-joined.
func (n *Node) TextContent() string {
	var parts []string
	var walk func(*Node)
	walk = func(m *Node) {
		if m.Kind == Text {
			if t := strings.TrimSpace(m.Text); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for _, c := range m.Children {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}

// Tree is an immutable document capture. Traversal order is document
// structural order and is deterministic for a given capture.
type Tree struct {
	root *Node
	byID map[string]*Node
}

// New builds a Tree from a root node: parent links are wired and the id
// index (for aria-labelledby resolution) is populated. The node graph must
// not be modified afterwards.
func New(root *Node) *Tree {
	t := &Tree{root: root, byID: make(map[string]*Node)}
	var wire func(n *Node)
	wire = func(n *Node) {
		if n.Kind == Element {
			if id := n.Attr("id"); id != "" {
				if _, taken := t.byID[id]; !taken {
					t.byID[id] = n
				}
			}
		}
		for _, c := range n.Children {
			c.parent = n
			wire(c)
		}
	}
	if root != nil {
		wire(root)
	}
	return t
}

// Root returns the document root node.
func (t *Tree) Root() *Node {
	return t.root
}

// ByID resolves an element id to its node, nil when unknown.
func (t *Tree) ByID(id string) *Node {
	return t.byID[id]
}

// Walk traverses the tree in document order, calling visit for every node.
// Returning false prunes the node's subtree.
func (t *Tree) Walk(visit func(*Node) bool) {
	var walk func(*Node)
	walk = func(n *Node) {
		if !visit(n) {
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	if t.root != nil {
		walk(t.root)
	}
}

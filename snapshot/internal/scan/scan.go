// Package scan enumerates the interactive controls of a captured document.
// Controls receive zero-based indexes in a deterministic order; an index is
// meaningful only within the capture that produced it.
package scan

import (
	"github.com/hazyhaar/domlens/dom"
)

// Control is one interactive element found on the page.
type Control struct {
	Index  int     `json:"index"`
	Role   string  `json:"role"`
	Name   string  `json:"name"`
	Box    dom.Box `json:"box"`
	Handle string  `json:"handle"` // opaque element reference for the action layer

	// Node is the source node, used by the linearizer to suppress the
	// control's own text from the plain-text pass.
	Node *dom.Node `json:"-"`
}

// interactiveRoles is the fixed set of ARIA roles that make an element a
// control candidate regardless of its tag.
var interactiveRoles = map[string]bool{
	"button":     true,
	"link":       true,
	"checkbox":   true,
	"radio":      true,
	"combobox":   true,
	"listbox":    true,
	"menuitem":   true,
	"option":     true,
	"searchbox":  true,
	"slider":     true,
	"spinbutton": true,
	"switch":     true,
	"tab":        true,
	"textbox":    true,
}

// Controls enumerates interactive controls in document order. A single tree
// walk collects natively interactive tags together with elements carrying an
// explicit interactive role; an element matching both criteria is counted
// once. The walk order is the index assignment — the action layer addresses
// controls by index, so a roled element before a native one must come first.
func Controls(t *dom.Tree) []Control {
	var candidates []*dom.Node

	// Subtrees hidden as a whole (display:none, aria-hidden, inert) are
	// pruned so their controls never surface.
	t.Walk(func(n *dom.Node) bool {
		if n.Kind != dom.Element {
			return true
		}
		if hiddenSubtree(n) {
			return false
		}
		if (nativeInteractive(n) || interactiveRoles[n.Role()]) && eligible(n) {
			candidates = append(candidates, n)
		}
		return true
	})

	controls := make([]Control, 0, len(candidates))
	for i, n := range candidates {
		controls = append(controls, Control{
			Index:  i,
			Role:   roleOf(n),
			Name:   AccessibleName(t, n),
			Box:    n.Box,
			Handle: n.Handle,
			Node:   n,
		})
	}
	return controls
}

// nativeInteractive reports whether the element is interactive by tag alone.
func nativeInteractive(n *dom.Node) bool {
	switch n.Tag {
	case "a":
		return n.Attr("href") != ""
	case "button", "select", "textarea", "summary":
		return true
	case "input":
		return n.Attr("type") != "hidden"
	case "audio", "video":
		return n.HasAttr("controls")
	}
	return false
}

// hiddenSubtree reports whether the element hides its whole subtree.
// Computed styles of descendants do not reflect an ancestor's display:none,
// so the exclusion has to happen at the ancestor.
func hiddenSubtree(n *dom.Node) bool {
	return !n.Displayed() || n.AriaHidden() || n.Inert
}

// eligible filters out candidates hidden from users or assistive technology.
func eligible(n *dom.Node) bool {
	if n.AriaHidden() || n.Disabled || n.Inert {
		return false
	}
	return n.Displayed() && n.VisibleStyle()
}

// roleOf resolves the control's reported role: the explicit ARIA role wins,
// otherwise the implicit role of the tag (and input type).
func roleOf(n *dom.Node) string {
	if r := n.Role(); r != "" {
		return r
	}
	switch n.Tag {
	case "a":
		return "link"
	case "button", "summary":
		return "button"
	case "textarea":
		return "textbox"
	case "select":
		return "combobox"
	case "audio", "video":
		return "button"
	case "input":
		switch n.Attr("type") {
		case "checkbox":
			return "checkbox"
		case "radio":
			return "radio"
		case "range":
			return "slider"
		case "number":
			return "spinbutton"
		case "search":
			return "searchbox"
		case "button", "submit", "reset", "image":
			return "button"
		default:
			return "textbox"
		}
	}
	return n.Tag
}

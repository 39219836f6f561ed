// Package domtest provides builders for constructing dom.Tree fixtures in
// tests without a live browser.
package domtest

import "github.com/hazyhaar/domlens/dom"

// Elem builds an element node with sensible rendered defaults
// (display block, visibility visible, static position).
func Elem(tag string, attrs map[string]string, box dom.Box, children ...*dom.Node) *dom.Node {
	return &dom.Node{
		Kind:       dom.Element,
		Tag:        tag,
		Attrs:      attrs,
		Display:    "block",
		Visibility: "visible",
		Position:   "static",
		Box:        box,
		Children:   children,
	}
}

// Text builds a text node at the given box.
func Text(s string, box dom.Box) *dom.Node {
	return &dom.Node{Kind: dom.Text, Text: s, Box: box}
}

// Tree wires a body root around the given children and returns the capture.
func Tree(children ...*dom.Node) *dom.Tree {
	body := Elem("body", nil, dom.Box{X: 0, Y: 0, W: 1280, H: 2000}, children...)
	root := Elem("html", nil, dom.Box{X: 0, Y: 0, W: 1280, H: 2000}, body)
	return dom.New(root)
}

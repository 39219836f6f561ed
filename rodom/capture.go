package rodom

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/domlens/dom"
)

//go:embed capture.js
var captureJS string

// rawNode is a single entry in the flat node dump produced by capture.js.
// Parent indices refer to earlier entries; -1 marks the document root.
type rawNode struct {
	Kind       string            `json:"kind"`
	Parent     int               `json:"parent"`
	Tag        string            `json:"tag"`
	Attrs      map[string]string `json:"attrs"`
	Display    string            `json:"display"`
	Visibility string            `json:"visibility"`
	Position   string            `json:"position"`
	Disabled   bool              `json:"disabled"`
	Inert      bool              `json:"inert"`
	Value      string            `json:"value"`
	Text       string            `json:"text"`
	Handle     string            `json:"handle"`
	Box        dom.Box           `json:"box"`
}

// capture evaluates the serialisation script in the page and rebuilds the
// flat dump into a dom.Tree.
func capture(ctx context.Context, page *rod.Page) (*dom.Tree, error) {
	res, err := page.Context(ctx).Eval(captureJS)
	if err != nil {
		return nil, fmt.Errorf("rodom: capture eval: %w", err)
	}

	var raw []rawNode
	if err := json.Unmarshal([]byte(res.Value.Str()), &raw); err != nil {
		return nil, fmt.Errorf("rodom: decode capture: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("rodom: empty capture")
	}

	built := make([]*dom.Node, len(raw))
	var root *dom.Node
	for i, rn := range raw {
		n := &dom.Node{
			Tag:        rn.Tag,
			Attrs:      rn.Attrs,
			Display:    rn.Display,
			Visibility: rn.Visibility,
			Position:   rn.Position,
			Disabled:   rn.Disabled,
			Inert:      rn.Inert,
			Value:      rn.Value,
			Text:       rn.Text,
			Handle:     rn.Handle,
			Box:        rn.Box,
		}
		if rn.Kind == "text" {
			n.Kind = dom.Text
		} else {
			n.Kind = dom.Element
		}
		built[i] = n

		if rn.Parent < 0 {
			if root != nil {
				return nil, fmt.Errorf("rodom: multiple roots in capture")
			}
			root = n
			continue
		}
		if rn.Parent >= i {
			return nil, fmt.Errorf("rodom: bad parent index %d at node %d", rn.Parent, i)
		}
		p := built[rn.Parent]
		p.Children = append(p.Children, n)
	}
	if root == nil {
		return nil, fmt.Errorf("rodom: capture has no root")
	}
	return dom.New(root), nil
}

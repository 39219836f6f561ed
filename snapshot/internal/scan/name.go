package scan

import (
	"strings"

	"github.com/hazyhaar/domlens/dom"
)

// AccessibleName resolves the human-readable label of a control. The chain
// is first-non-empty: aria-label, aria-labelledby (referenced texts
// concatenated), title, current value for input-like elements, then the
// element's direct text content.
func AccessibleName(t *dom.Tree, n *dom.Node) string {
	if v := strings.TrimSpace(n.Attr("aria-label")); v != "" {
		return v
	}

	if refs := strings.Fields(n.Attr("aria-labelledby")); len(refs) > 0 {
		var parts []string
		for _, id := range refs {
			ref := t.ByID(id)
			if ref == nil {
				continue
			}
			if txt := ref.TextContent(); txt != "" {
				parts = append(parts, txt)
			}
		}
		if v := strings.TrimSpace(strings.Join(parts, " ")); v != "" {
			return v
		}
	}

	if v := strings.TrimSpace(n.Attr("title")); v != "" {
		return v
	}

	if inputLike(n) {
		if v := strings.TrimSpace(n.Value); v != "" {
			return v
		}
	}

	return n.OwnText()
}

func inputLike(n *dom.Node) bool {
	switch n.Tag {
	case "input", "textarea", "select":
		return true
	}
	return false
}

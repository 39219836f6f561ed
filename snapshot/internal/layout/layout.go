// Package layout linearizes a captured page into one textual blob. Visible
// text fragments and control placeholders are merged by on-screen position:
// a cheap approximation of reading order that needs no accessibility-tree or
// full layout computation. Fixed/absolute overlay content is deliberately
// dropped to avoid duplicated floating UI chrome.
package layout

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hazyhaar/domlens/dom"
	"github.com/hazyhaar/domlens/snapshot/internal/scan"
)

// Options tune the geometry heuristics.
type Options struct {
	// LineThreshold is the vertical distance (px) under which two items are
	// considered the same visual row. Derived from a typical line height.
	LineThreshold float64

	// BacktrackMargin is how far (px) the horizontal position may regress
	// past the previous item's right edge before a wraparound (new table
	// row, new column) forces a line break.
	BacktrackMargin float64
}

// Defaults fills zero fields.
func (o *Options) Defaults() {
	if o.LineThreshold <= 0 {
		o.LineThreshold = 10
	}
	if o.BacktrackMargin <= 0 {
		o.BacktrackMargin = 20
	}
}

// item is a positioned render unit: a text fragment or a control placeholder.
type item struct {
	text  string
	x, y  float64
	right float64
}

// Linearize renders the page as newline-joined visual lines. Controls render
// as placeholder tokens; the format is a wire contract consumed downstream
// and must not change shape.
func Linearize(t *dom.Tree, controls []scan.Control, opts Options) string {
	opts.Defaults()

	items := collectText(t, controls)
	for _, c := range controls {
		if c.Name == "" || c.Box.Area() == 0 {
			continue
		}
		items = append(items, item{
			text:  fmt.Sprintf("[%d]{%s}(%s)", c.Index, c.Role, c.Name),
			x:     c.Box.X,
			y:     c.Box.Y,
			right: c.Box.X + c.Box.W,
		})
	}
	if len(items) == 0 {
		return ""
	}

	sortByPosition(items, opts.LineThreshold)
	lines := groupLines(items, opts)
	return normalize(strings.Join(lines, "\n"))
}

// collectText walks the content subtree gathering visible text fragments.
// Skipped: non-content subtrees (script, style, head, meta, link), hidden or
// overlay subtrees, text inside counted controls, zero-area fragments.
func collectText(t *dom.Tree, controls []scan.Control) []item {
	controlNodes := make(map[*dom.Node]bool, len(controls))
	for _, c := range controls {
		controlNodes[c.Node] = true
	}

	var items []item
	t.Walk(func(n *dom.Node) bool {
		if n.Kind == dom.Element {
			switch n.Tag {
			case "script", "style", "head", "meta", "link", "noscript":
				return false
			}
			if !n.Displayed() || !n.VisibleStyle() || n.AriaHidden() || n.Overlay() {
				return false
			}
			if controlNodes[n] {
				// Control text is represented by its placeholder.
				return false
			}
			return true
		}

		content := strings.TrimSpace(n.Text)
		if content == "" || n.Box.Area() == 0 {
			return true
		}
		items = append(items, item{
			text:  content,
			x:     n.Box.X,
			y:     n.Box.Y,
			right: n.Box.X + n.Box.W,
		})
		return true
	})
	return items
}

// sortByPosition orders items top-to-bottom; items within the same visual
// row (vertical delta under the threshold) are ordered left-to-right.
func sortByPosition(items []item, threshold float64) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		dy := a.y - b.y
		if dy < 0 {
			dy = -dy
		}
		if dy < threshold {
			return a.x < b.x
		}
		return a.y < b.y
	})
}

// groupLines splits the sorted sequence into visual lines. A new line starts
// when the vertical gap exceeds the threshold, or when the horizontal
// position regresses past the previous item's right edge by more than the
// backtrack margin (wraparound, e.g. a new table row). Within a line, items
// are re-sorted by horizontal position before joining.
func groupLines(items []item, opts Options) []string {
	var lines []string
	var line []item

	flush := func() {
		if len(line) == 0 {
			return
		}
		sort.SliceStable(line, func(i, j int) bool { return line[i].x < line[j].x })
		parts := make([]string, len(line))
		for i, it := range line {
			parts[i] = it.text
		}
		lines = append(lines, strings.Join(parts, " "))
		line = line[:0]
	}

	for i, it := range items {
		if i > 0 {
			prev := items[i-1]
			breakLine := it.y-prev.y > opts.LineThreshold ||
				it.x < prev.right-opts.BacktrackMargin
			if breakLine {
				flush()
			}
		}
		line = append(line, it)
	}
	flush()
	return lines
}

var (
	leadingWS  = regexp.MustCompile(`\n[ \t]+`)
	manyBlanks = regexp.MustCompile(`\n{3,}`)
)

// normalize collapses whitespace noise: indentation after a newline becomes
// a bare newline, runs of three or more newlines collapse to two, and the
// whole blob is trimmed.
func normalize(s string) string {
	s = leadingWS.ReplaceAllString(s, "\n")
	s = manyBlanks.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

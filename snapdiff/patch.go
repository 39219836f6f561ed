package snapdiff

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Patch computes a context-bounded line-level unified diff and returns
// whichever of {patch, full snapshot} is textually shorter. No numeric or
// fragmentation filters: size is the only criterion.
type Patch struct {
	// Context is the number of context lines around each hunk. Zero means 3.
	Context int
}

// Select implements Strategy.
func (p *Patch) Select(previous, current string) Result {
	ctx := p.Context
	if ctx <= 0 {
		ctx = 3
	}

	patch, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(previous),
		B:        difflib.SplitLines(current),
		FromFile: "previous",
		ToFile:   "current",
		Context:  ctx,
	})
	if err != nil {
		// Diff failure falls back to the full snapshot, never fails the request.
		return Result{Text: current, IsDiff: false}
	}

	if patch == "" {
		return noChangesResult(current)
	}
	if len(patch) < len(current) {
		return Result{Text: patch, IsDiff: true}
	}
	return Result{Text: current, IsDiff: false}
}

// Package snapdiff selects the output for a snapshot request: the full
// current snapshot or a smaller rendered diff against the session's previous
// snapshot. Two interchangeable strategies exist — a tagged word-diff with
// noise filters and a smallest-of unified patch — behind one Strategy
// interface. The caller picks the default; the heuristics of the two are
// never merged.
//
// Strategies are pure string functions: session state is owned by the
// caller, and the baseline it stores is always the full current snapshot,
// never the diff that was returned.
package snapdiff

import "fmt"

// NoChanges is the sentinel returned when two snapshots are identical. A
// fixed literal, never an empty string: downstream consumers match on it.
const NoChanges = "No changes detected"

// noChangesResult applies the size rule to the sentinel itself: a response
// is never larger than the snapshot it stands for, so an unchanged snapshot
// shorter than the sentinel is returned as the full text instead.
func noChangesResult(current string) Result {
	if len(current) <= len(NoChanges) {
		return Result{Text: current, IsDiff: false}
	}
	return Result{Text: NoChanges, IsDiff: true}
}

// Result is the selected output for one request.
type Result struct {
	Text   string `json:"text"`
	IsDiff bool   `json:"is_diff"`
}

// Strategy decides between a rendered diff and the full current snapshot.
// previous is the session's stored baseline; callers with no baseline must
// return the full snapshot themselves rather than invoke a strategy.
type Strategy interface {
	Select(previous, current string) Result
}

// Options hold the noise thresholds of the word strategy. They are observed
// heuristics of unverified optimality, kept named and overridable rather
// than frozen as constants.
type Options struct {
	// NumericRatio: fall back to the full snapshot when more than this
	// fraction of changed lines is digits-only (counter/clock churn).
	NumericRatio float64 `yaml:"numeric_ratio"`

	// FragmentLines / FragmentChars: fall back when more than FragmentLines
	// lines changed and every one is shorter than FragmentChars (fragmented
	// low-signal noise).
	FragmentLines int `yaml:"fragment_lines"`
	FragmentChars int `yaml:"fragment_chars"`
}

// Defaults fills zero fields with the observed values.
func (o *Options) Defaults() {
	if o.NumericRatio <= 0 {
		o.NumericRatio = 0.5
	}
	if o.FragmentLines <= 0 {
		o.FragmentLines = 10
	}
	if o.FragmentChars <= 0 {
		o.FragmentChars = 10
	}
}

// New returns the named strategy: "words" (tagged word-diff with noise
// filters) or "patch" (smallest-of unified patch, no filters).
func New(name string, opts Options) (Strategy, error) {
	switch name {
	case "", "words":
		opts.Defaults()
		return &Words{opts: opts}, nil
	case "patch":
		return &Patch{}, nil
	default:
		return nil, fmt.Errorf("snapdiff: unknown strategy %q", name)
	}
}

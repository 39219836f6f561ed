package snapdiff

import (
	"strings"
	"unicode"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Words renders a word-granularity edit script as tagged lines and applies
// noise filters before committing to the diff.
type Words struct {
	opts Options
}

// Select computes the tagged word diff between previous and current and
// falls back to the full snapshot when the diff is oversized, numeric
// churn, or fragmented noise. A panic inside the diff computation is
// recovered by returning the full snapshot: a diff failure must never fail
// the request.
func (w *Words) Select(previous, current string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Text: current, IsDiff: false}
		}
	}()

	spans := changedSpans(previous, current)

	lines := make([]string, 0, len(spans))
	stripped := make([]string, 0, len(spans))
	for _, sp := range spans {
		lines = append(lines, sp.tag+" "+sp.text)
		stripped = append(stripped, sp.text)
	}
	diffText := strings.Join(lines, "\n")

	// Oversized: the diff buys nothing.
	if len(lines) > 0 && len(diffText) >= len(current) {
		return Result{Text: current, IsDiff: false}
	}

	// Numeric churn: counters and clocks produce digits-only changes.
	if len(stripped) > 0 {
		numeric := 0
		for _, s := range stripped {
			if digitsOnly(s) {
				numeric++
			}
		}
		if float64(numeric) > w.opts.NumericRatio*float64(len(stripped)) {
			return Result{Text: current, IsDiff: false}
		}
	}

	// Fragmentation: many tiny spans carry no signal.
	if len(stripped) > w.opts.FragmentLines {
		allShort := true
		for _, s := range stripped {
			if len(s) >= w.opts.FragmentChars {
				allShort = false
				break
			}
		}
		if allShort {
			return Result{Text: current, IsDiff: false}
		}
	}

	if len(lines) == 0 {
		return noChangesResult(current)
	}
	return Result{Text: diffText, IsDiff: true}
}

type span struct {
	tag  string // "[ADDED]" or "[REMOVED]"
	text string
}

// changedSpans computes a minimal word-level edit script. Tokens are mapped
// to runes so diffmatchpatch diffs whole tokens, then each contiguous
// inserted/removed run becomes one span.
func changedSpans(previous, current string) []span {
	dmp := diffmatchpatch.New()

	// The lines-to-chars encoding diffs one token per "line"; feeding tokens
	// joined by newlines turns it into a word-level diff.
	prevTok := strings.Join(tokenize(previous), "\n")
	curTok := strings.Join(tokenize(current), "\n")

	c1, c2, arr := dmp.DiffLinesToChars(prevTok, curTok)
	diffs := dmp.DiffMain(c1, c2, false)
	diffs = dmp.DiffCharsToLines(diffs, arr)

	var spans []span
	for _, d := range diffs {
		text := joinTokens(strings.Fields(d.Text))
		if text == "" {
			continue
		}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			spans = append(spans, span{tag: "[ADDED]", text: text})
		case diffmatchpatch.DiffDelete:
			spans = append(spans, span{tag: "[REMOVED]", text: text})
		}
	}
	return spans
}

// tokenize splits a snapshot into diff tokens: maximal letter/digit runs,
// with each punctuation mark standing alone. Splitting the punctuation off
// keeps an appended "!" from invalidating the word it touches.
func tokenize(s string) []string {
	var toks []string
	var run []rune
	flush := func() {
		if len(run) > 0 {
			toks = append(toks, string(run))
			run = run[:0]
		}
	}
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			run = append(run, r)
		default:
			flush()
			toks = append(toks, string(r))
		}
	}
	flush()
	return toks
}

// joinTokens renders a span's tokens back into readable text: no space
// before closing or trailing punctuation, none after an opening bracket.
func joinTokens(toks []string) string {
	var b strings.Builder
	for i, t := range toks {
		if i > 0 && !glueLeft(t) && !glueRight(toks[i-1]) {
			b.WriteByte(' ')
		}
		b.WriteString(t)
	}
	return b.String()
}

func glueLeft(tok string) bool {
	return len(tok) == 1 && strings.ContainsAny(tok, ")]}>.,:;!?%")
}

func glueRight(tok string) bool {
	return len(tok) == 1 && strings.ContainsAny(tok, "([{<")
}

// digitsOnly reports whether the span consists solely of digits, ignoring
// the spaces between words.
func digitsOnly(s string) bool {
	seen := false
	for _, r := range s {
		if r == ' ' {
			continue
		}
		if !unicode.IsDigit(r) {
			return false
		}
		seen = true
	}
	return seen
}

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/hazyhaar/domlens/dom"
	"github.com/hazyhaar/domlens/dom/domtest"
	"github.com/hazyhaar/domlens/snapdiff"
)

// fakeCapturer serves canned trees per session and implements the optional
// Navigator and HTMLSource sides.
type fakeCapturer struct {
	mu       sync.Mutex
	trees    map[string]*dom.Tree
	html     map[string][]byte
	err      error
	captures int
	opened   []string
	ended    []string
}

func newFakeCapturer() *fakeCapturer {
	return &fakeCapturer{
		trees: make(map[string]*dom.Tree),
		html:  make(map[string][]byte),
	}
}

func (f *fakeCapturer) set(sessionID string, t *dom.Tree) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trees[sessionID] = t
}

func (f *fakeCapturer) Capture(_ context.Context, sessionID string) (*dom.Tree, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captures++
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.trees[sessionID]
	if !ok {
		return nil, fmt.Errorf("no page for %s", sessionID)
	}
	return t, nil
}

func (f *fakeCapturer) Open(_ context.Context, sessionID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, sessionID+" "+url)
	return nil
}

func (f *fakeCapturer) End(sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, sessionID)
	return nil
}

func (f *fakeCapturer) HTML(_ context.Context, sessionID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.html[sessionID]
	if !ok {
		return nil, fmt.Errorf("no page for %s", sessionID)
	}
	return h, nil
}

func testEngine(t *testing.T, capt Capturer) *Engine {
	t.Helper()
	eng, err := New(capt, &Config{}, nil)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return eng
}

func pageWithText(lines ...string) *dom.Tree {
	children := make([]*dom.Node, 0, len(lines))
	for i, s := range lines {
		y := float64(20 + i*40)
		children = append(children, domtest.Elem("p", nil, dom.Box{X: 0, Y: y, W: 1280, H: 20},
			domtest.Text(s, dom.Box{X: 10, Y: y, W: 200, H: 16})))
	}
	return domtest.Tree(children...)
}

func TestEngine_FirstRequestReturnsFull(t *testing.T) {
	capt := newFakeCapturer()
	capt.set("s1", pageWithText("welcome to the page"))
	eng := testEngine(t, capt)

	res, err := eng.Compute(context.Background(), "s1")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if res.IsDiff {
		t.Fatal("first request must return the full snapshot")
	}
	if res.Text != "welcome to the page" {
		t.Fatalf("got %q", res.Text)
	}
}

func TestEngine_SecondRequestDiffs(t *testing.T) {
	capt := newFakeCapturer()
	long := "a long stable paragraph of page text that stays the same between requests"
	capt.set("s1", pageWithText(long))
	eng := testEngine(t, capt)
	ctx := context.Background()

	if _, err := eng.Compute(ctx, "s1"); err != nil {
		t.Fatal(err)
	}

	capt.set("s1", pageWithText(long, "brand new line"))
	res, err := eng.Compute(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsDiff {
		t.Fatalf("expected diff, got full: %q", res.Text)
	}
	if !strings.Contains(res.Text, "[ADDED]") {
		t.Fatalf("diff body: %q", res.Text)
	}
}

func TestEngine_UnchangedPageReturnsSentinel(t *testing.T) {
	capt := newFakeCapturer()
	capt.set("s1", pageWithText("static content that never changes"))
	eng := testEngine(t, capt)
	ctx := context.Background()

	eng.Compute(ctx, "s1")
	res, err := eng.Compute(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsDiff || res.Text != snapdiff.NoChanges {
		t.Fatalf("got %+v, want sentinel diff", res)
	}
}

func TestEngine_BaselineIsAlwaysFull(t *testing.T) {
	capt := newFakeCapturer()
	long := "a long stable paragraph of page text that stays the same between requests"
	capt.set("s1", pageWithText(long))
	eng := testEngine(t, capt)
	ctx := context.Background()

	eng.Compute(ctx, "s1")
	capt.set("s1", pageWithText(long, "second line"))
	eng.Compute(ctx, "s1") // returns a diff

	snap, ok, err := eng.Store().Get(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("baseline: ok=%v err=%v", ok, err)
	}
	if strings.Contains(snap, "[ADDED]") {
		t.Fatalf("baseline must be the full snapshot, stored: %q", snap)
	}
	if !strings.Contains(snap, "second line") {
		t.Fatalf("baseline stale: %q", snap)
	}
}

func TestEngine_CaptureFailureLeavesBaseline(t *testing.T) {
	capt := newFakeCapturer()
	capt.set("s1", pageWithText("original"))
	eng := testEngine(t, capt)
	ctx := context.Background()

	eng.Compute(ctx, "s1")

	capt.mu.Lock()
	capt.err = errors.New("target detached")
	capt.mu.Unlock()

	_, err := eng.Compute(ctx, "s1")
	if err == nil {
		t.Fatal("expected error")
	}
	var accErr *AccessorError
	if !errors.As(err, &accErr) {
		t.Fatalf("expected AccessorError, got %T: %v", err, err)
	}
	if accErr.SessionID != "s1" {
		t.Fatalf("session: got %q", accErr.SessionID)
	}

	snap, ok, _ := eng.Store().Get(ctx, "s1")
	if !ok || snap != "original" {
		t.Fatalf("baseline disturbed by failed capture: ok=%v snap=%q", ok, snap)
	}
}

func TestEngine_EmptyPageUpdatesBaseline(t *testing.T) {
	capt := newFakeCapturer()
	capt.set("s1", pageWithText("content"))
	eng := testEngine(t, capt)
	ctx := context.Background()

	eng.Compute(ctx, "s1")
	capt.set("s1", domtest.Tree())

	res, err := eng.Compute(ctx, "s1")
	if err != nil {
		t.Fatalf("empty page must not error: %v", err)
	}
	_ = res

	snap, ok, _ := eng.Store().Get(ctx, "s1")
	if !ok || snap != "" {
		t.Fatalf("baseline after empty page: ok=%v snap=%q", ok, snap)
	}
}

func TestEngine_SessionsIsolated(t *testing.T) {
	capt := newFakeCapturer()
	capt.set("a", pageWithText("a stable page body for session a"))
	capt.set("b", pageWithText("a stable page body for session b"))
	eng := testEngine(t, capt)
	ctx := context.Background()

	resA, _ := eng.Compute(ctx, "a")
	resB, _ := eng.Compute(ctx, "b")
	if resA.IsDiff || resB.IsDiff {
		t.Fatal("first request per session must be full")
	}

	// A second request for a must not see b's baseline.
	resA2, _ := eng.Compute(ctx, "a")
	if !resA2.IsDiff || resA2.Text != snapdiff.NoChanges {
		t.Fatalf("a: got %+v", resA2)
	}
}

func TestEngine_ComputeWithControls(t *testing.T) {
	capt := newFakeCapturer()
	capt.set("s1", domtest.Tree(
		domtest.Elem("button", nil, dom.Box{X: 10, Y: 10, W: 80, H: 20},
			domtest.Text("Submit", dom.Box{X: 12, Y: 12, W: 40, H: 16})),
	))
	eng := testEngine(t, capt)

	res, controls, err := eng.ComputeWithControls(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(controls) != 1 {
		t.Fatalf("controls: got %d, want 1", len(controls))
	}
	if controls[0].Name != "Submit" {
		t.Fatalf("control name: %q", controls[0].Name)
	}
	if res.Text != "[0]{button}(Submit)" {
		t.Fatalf("snapshot: %q", res.Text)
	}
}

func TestEngine_OpenSession(t *testing.T) {
	capt := newFakeCapturer()
	eng := testEngine(t, capt)

	if err := eng.OpenSession(context.Background(), "s1", "https://example.com"); err != nil {
		t.Fatal(err)
	}
	if len(capt.opened) != 1 || capt.opened[0] != "s1 https://example.com" {
		t.Fatalf("opened: %v", capt.opened)
	}
}

func TestEngine_EndSession(t *testing.T) {
	capt := newFakeCapturer()
	capt.set("s1", pageWithText("content"))
	eng := testEngine(t, capt)
	ctx := context.Background()

	eng.Compute(ctx, "s1")
	if err := eng.EndSession(ctx, "s1"); err != nil {
		t.Fatal(err)
	}

	if len(capt.ended) != 1 || capt.ended[0] != "s1" {
		t.Fatalf("ended: %v", capt.ended)
	}
	if _, ok, _ := eng.Store().Get(ctx, "s1"); ok {
		t.Fatal("baseline survived EndSession")
	}

	// The next request starts fresh with a full snapshot.
	res, err := eng.Compute(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if res.IsDiff {
		t.Fatal("post-end request must be full")
	}
}

func TestEngine_PatchStrategy(t *testing.T) {
	capt := newFakeCapturer()
	lines := make([]string, 30)
	for i := range lines {
		lines[i] = fmt.Sprintf("stable page line number %d with some words", i)
	}
	capt.set("s1", pageWithText(lines...))

	eng, err := New(capt, &Config{Diff: DiffConfig{Strategy: "patch"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	eng.Compute(ctx, "s1")
	lines[29] = "a replaced final line"
	capt.set("s1", pageWithText(lines...))

	res, err := eng.Compute(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsDiff {
		t.Fatalf("expected patch, got full: %q", res.Text)
	}
	if !strings.Contains(res.Text, "+a replaced final line") {
		t.Fatalf("patch body: %q", res.Text)
	}
}

func TestEngine_UnknownStrategyRejected(t *testing.T) {
	_, err := New(newFakeCapturer(), &Config{Diff: DiffConfig{Strategy: "bogus"}}, nil)
	if err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestEngine_UnknownStoreRejected(t *testing.T) {
	_, err := New(newFakeCapturer(), &Config{Store: StoreConfig{Backend: "redis"}}, nil)
	if err == nil {
		t.Fatal("expected error for unknown store backend")
	}
}

func TestEngine_Stats(t *testing.T) {
	capt := newFakeCapturer()
	capt.set("s1", pageWithText("content"))
	eng := testEngine(t, capt)
	ctx := context.Background()

	eng.Compute(ctx, "s1")

	stats, err := eng.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Strategy != "words" || stats.StoreBackend != "memory" {
		t.Fatalf("stats: %+v", stats)
	}
	if stats.Sessions != 1 {
		t.Fatalf("sessions: got %d, want 1", stats.Sessions)
	}
}

func TestEngine_ComputeMarkdown(t *testing.T) {
	capt := newFakeCapturer()
	capt.html["s1"] = []byte(`<html><body><h1>Title</h1><p>Some <strong>bold</strong> text.</p></body></html>`)
	eng := testEngine(t, capt)

	md, err := eng.ComputeMarkdown(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(md, "# Title") {
		t.Fatalf("markdown: %q", md)
	}
	if !strings.Contains(md, "**bold**") {
		t.Fatalf("markdown: %q", md)
	}
}

func TestEngine_MarkdownLeavesBaseline(t *testing.T) {
	capt := newFakeCapturer()
	capt.html["s1"] = []byte(`<html><body><p>hello</p></body></html>`)
	eng := testEngine(t, capt)
	ctx := context.Background()

	if _, err := eng.ComputeMarkdown(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := eng.Store().Get(ctx, "s1"); ok {
		t.Fatal("markdown mode must not create a baseline")
	}
}

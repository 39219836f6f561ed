package snapshot

import (
	"context"
	"fmt"

	"github.com/hazyhaar/domlens/docview"
)

// Document is a page rendered in reading mode.
type Document struct {
	Title    string `json:"title,omitempty"`
	Markdown string `json:"markdown"`
}

// ComputeDocument renders the session's page as readable markdown instead of
// the geometric snapshot blob. It needs a capturer that exposes the raw
// document. Reading mode bypasses the diff pipeline and never touches the
// session baseline.
func (e *Engine) ComputeDocument(ctx context.Context, sessionID string) (*Document, error) {
	src, ok := e.capt.(HTMLSource)
	if !ok {
		return nil, fmt.Errorf("snapshot: capturer does not expose raw HTML")
	}

	raw, err := src.HTML(ctx, sessionID)
	if err != nil {
		return nil, &AccessorError{SessionID: sessionID, Err: err}
	}

	md, err := docview.Render(raw)
	if err != nil {
		return nil, fmt.Errorf("snapshot: render markdown: %w", err)
	}
	return &Document{Title: docview.Title(raw), Markdown: md}, nil
}

// ComputeMarkdown is ComputeDocument without the title.
func (e *Engine) ComputeMarkdown(ctx context.Context, sessionID string) (string, error) {
	doc, err := e.ComputeDocument(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return doc.Markdown, nil
}

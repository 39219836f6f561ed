package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/domlens/connectivity"
)

// RegisterConnectivity registers the perception handlers on a connectivity
// Router.
//
// Registered services:
//
//	domlens_snapshot    — indexed text snapshot (full or diff)
//	domlens_markdown    — markdown rendering of the page
//	domlens_end_session — close a session and drop its baseline
//	domlens_stats       — engine statistics
func (e *Engine) RegisterConnectivity(router *connectivity.Router) {
	wrap := connectivity.Chain(
		connectivity.Recovery(e.logger),
		connectivity.Logging(e.logger),
	)
	router.RegisterLocal("domlens_snapshot", wrap(e.handleSnapshot))
	router.RegisterLocal("domlens_markdown", wrap(e.handleMarkdown))
	router.RegisterLocal("domlens_end_session", wrap(e.handleEndSession))
	router.RegisterLocal("domlens_stats", wrap(e.handleStats))
}

func (e *Engine) handleSnapshot(ctx context.Context, payload []byte) ([]byte, error) {
	var req snapshotRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	if req.URL != "" {
		if err := e.OpenSession(ctx, req.SessionID, req.URL); err != nil {
			return nil, err
		}
	}
	res, controls, err := e.ComputeWithControls(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&snapshotResponse{Text: res.Text, IsDiff: res.IsDiff, Controls: controls})
}

func (e *Engine) handleMarkdown(ctx context.Context, payload []byte) ([]byte, error) {
	var req snapshotRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	if req.URL != "" {
		if err := e.OpenSession(ctx, req.SessionID, req.URL); err != nil {
			return nil, err
		}
	}
	doc, err := e.ComputeDocument(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

func (e *Engine) handleEndSession(ctx context.Context, payload []byte) ([]byte, error) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := e.EndSession(ctx, req.SessionID); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"status": "ended", "session_id": req.SessionID})
}

func (e *Engine) handleStats(ctx context.Context, _ []byte) ([]byte, error) {
	stats, err := e.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(stats)
}
